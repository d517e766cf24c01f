package main

import (
	"context"
	"log"

	"soujuu/internal/buildhat"
	"soujuu/internal/camera"
	"soujuu/internal/car"
	"soujuu/internal/config"
	"soujuu/internal/server"
	"soujuu/internal/snapshot"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// カメラデバイスを自動検出する
	hasCamera := camera.HasDevice(cfg.Camera.Device)
	log.Printf("カメラデバイス %s: 検出=%v", cfg.Camera.Device, hasCamera)

	source := camera.NewFFmpegSource(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	streamer := camera.NewStreamer(source)

	// Build HATへ接続する。未接続時はエミュレーションモードで動作する
	var driver buildhat.Driver
	if serialDriver, err := buildhat.Open(cfg.Motor.Device, cfg.Motor.BaudRate); err != nil {
		log.Printf("Build HATが見つかりません。エミュレーションモードで動作します: %v", err)
		driver = buildhat.NewEmulationDriver()
	} else {
		driver = serialDriver
	}
	defer func() { _ = driver.Close() }()

	drive, err := car.New(driver, car.DefaultWheelPorts(), cfg.Motor.Speed)
	if err != nil {
		log.Fatalf("車体の初期化に失敗しました: %v", err)
	}

	// 静止画管理を開始する
	snapshots := snapshot.NewManager(cfg.Snapshot)
	if err := snapshots.Start(); err != nil {
		log.Fatalf("静止画管理の開始に失敗しました: %v", err)
	}
	defer snapshots.Stop()

	// サーバーを作成
	srv := server.New(cfg, streamer, drive, snapshots, hasCamera)

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
