// Package main はSoujuuサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"soujuu/internal/buildhat"
	"soujuu/internal/camera"
	"soujuu/internal/car"
	"soujuu/internal/config"
	"soujuu/internal/server"
	"soujuu/internal/snapshot"
)

func main() {
	// コマンドラインオプション
	var (
		host   = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port   = flag.Int("port", 0, "サーバーのポート (デフォルト: 5002)")
		device = flag.String("camera", "", "カメラデバイス (デフォルト: /dev/video0)")
		speed  = flag.Int("speed", 0, "モーター速度パーセント (デフォルト: 98)")
		help   = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Soujuu")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *speed != 0 {
		cfg.Motor.Speed = *speed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
	}

	// カメラデバイスを自動検出する
	hasCamera := camera.HasDevice(cfg.Camera.Device)
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

	// サーバーを作成して起動
	srv := server.New(cfg, streamer, drive, snapshots, hasCamera)

	log.Printf("Soujuu サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
