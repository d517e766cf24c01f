package config

import (
	"fmt"
	"os"
	"time"

	"soujuu/internal/buildhat"
	"soujuu/internal/car"
	"soujuu/internal/snapshot"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Camera   CameraConfig    `yaml:"camera"`
	Motor    MotorConfig     `yaml:"motor"`
	Snapshot snapshot.Config `yaml:"snapshot"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Device string `yaml:"device"` // デバイスパス (例: /dev/video0)
	FPS    int    `yaml:"fps"`    // フレームレート (fps)
	Width  int    `yaml:"width"`  // 画像幅
	Height int    `yaml:"height"` // 画像高さ
}

// MotorConfig はBuild HATとモーターの設定
type MotorConfig struct {
	Device   string `yaml:"device"`    // シリアルデバイスパス (例: /dev/serial0)
	BaudRate int    `yaml:"baud_rate"` // シリアル通信速度
	Speed    int    `yaml:"speed"`     // 走行速度（パーセント）
}

// Load は設定を読み込む
// 環境変数が設定されていればデフォルト値を上書きする
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 5002),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Device: getEnvOrDefault("CAMERA_DEVICE", "/dev/video0"),
			FPS:    getEnvAsIntOrDefault("CAMERA_FPS", 15),
			Width:  getEnvAsIntOrDefault("CAMERA_WIDTH", 1280),
			Height: getEnvAsIntOrDefault("CAMERA_HEIGHT", 720),
		},
		Motor: MotorConfig{
			Device:   getEnvOrDefault("BUILDHAT_DEVICE", buildhat.DefaultDevice),
			BaudRate: getEnvAsIntOrDefault("BUILDHAT_BAUD_RATE", buildhat.DefaultBaudRate),
			Speed:    getEnvAsIntOrDefault("MOTOR_SPEED", car.DefaultSpeed),
		},
		Snapshot: snapshot.DefaultConfig(),
	}

	if dir := os.Getenv("SNAPSHOT_DIR"); dir != "" {
		cfg.Snapshot.OutputDir = dir
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.FPS < 1 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	// モーター設定の検証
	if c.Motor.Speed < 1 || c.Motor.Speed > 100 {
		return fmt.Errorf("無効なモーター速度: %d", c.Motor.Speed)
	}
	if c.Motor.BaudRate < 1 {
		return fmt.Errorf("無効なボーレート: %d", c.Motor.BaudRate)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
