package config

import (
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	// カメラ設定の検証
	if cfg.Camera.Device == "" {
		t.Error("カメラデバイスが設定されていません")
	}
	if cfg.Camera.FPS <= 0 {
		t.Error("FPSが設定されていません")
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		t.Error("解像度が設定されていません")
	}

	// モーター設定の検証
	if cfg.Motor.Device == "" {
		t.Error("Build HATデバイスが設定されていません")
	}
	if cfg.Motor.Speed <= 0 || cfg.Motor.Speed > 100 {
		t.Errorf("無効なモーター速度: %d", cfg.Motor.Speed)
	}

	// 静止画設定の検証
	if cfg.Snapshot.OutputDir == "" {
		t.Error("静止画の保存先が設定されていません")
	}
}

// TestConfigEnvOverride は環境変数による上書きをテストする
func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("CAMERA_DEVICE", "/dev/video2")
	t.Setenv("MOTOR_SPEED", "50")
	t.Setenv("SNAPSHOT_DIR", "/tmp/pictures")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Camera.Device != "/dev/video2" {
		t.Errorf("Expected device /dev/video2, got %s", cfg.Camera.Device)
	}
	if cfg.Motor.Speed != 50 {
		t.Errorf("Expected speed 50, got %d", cfg.Motor.Speed)
	}
	if cfg.Snapshot.OutputDir != "/tmp/pictures" {
		t.Errorf("Expected snapshot dir /tmp/pictures, got %s", cfg.Snapshot.OutputDir)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			Server: ServerConfig{
				Host:        "localhost",
				Port:        5002,
				ReadTimeout: 10 * time.Second,
			},
			Camera: CameraConfig{
				Device: "/dev/video0",
				FPS:    15,
				Width:  1280,
				Height: 720,
			},
			Motor: MotorConfig{
				Device:   "/dev/serial0",
				BaudRate: 115200,
				Speed:    98,
			},
		}
	}

	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{
			name:      "正常な設定",
			mutate:    func(_ *Config) {},
			expectErr: false,
		},
		{
			name:      "無効なポート番号",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			expectErr: true,
		},
		{
			name:      "ポート番号が0",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			expectErr: true,
		},
		{
			name:      "無効なFPS",
			mutate:    func(c *Config) { c.Camera.FPS = 0 },
			expectErr: true,
		},
		{
			name:      "無効な解像度",
			mutate:    func(c *Config) { c.Camera.Width = -1 },
			expectErr: true,
		},
		{
			name:      "無効なモーター速度",
			mutate:    func(c *Config) { c.Motor.Speed = 150 },
			expectErr: true,
		},
		{
			name:      "無効なボーレート",
			mutate:    func(c *Config) { c.Motor.BaudRate = 0 },
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

// TestServerAddress はリッスンアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 5002},
	}
	if addr := cfg.ServerAddress(); addr != "0.0.0.0:5002" {
		t.Errorf("Expected 0.0.0.0:5002, got %s", addr)
	}
}
