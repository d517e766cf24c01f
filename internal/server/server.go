package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soujuu/internal/camera"
	"soujuu/internal/config"
	"soujuu/internal/snapshot"

	"github.com/gin-gonic/gin"
)

// Streamer はカメラストリーミング操作のインターフェース
// camera.Streamerが実装する
type Streamer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() camera.State
	Streaming() bool
	WaitFrame(ctx context.Context, lastSeq uint64) (camera.Frame, error)
	Latest() (camera.Frame, bool)
}

// Drive は走行コマンド実行のインターフェース
// car.Carが実装する
type Drive interface {
	Dispatch(cmd string) error
}

// Snapshots は静止画保存のインターフェース
// snapshot.Managerが実装する
type Snapshots interface {
	Save(data []byte) (string, error)
	List() ([]snapshot.Info, error)
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server

	streamer  Streamer
	drive     Drive
	snapshots Snapshots
	hasCamera bool
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, streamer Streamer, drive Drive, snapshots Snapshots, hasCamera bool) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:    cfg,
		engine:    engine,
		streamer:  streamer,
		drive:     drive,
		snapshots: snapshots,
		hasCamera: hasCamera,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// 操作ページ
	s.engine.GET("/", s.handleIndex)

	// カメラエンドポイント
	s.engine.GET("/video_feed", s.handleVideoFeed)
	s.engine.GET("/video_ws", s.handleVideoWS)
	s.engine.POST("/toggle_camera", s.handleToggleCamera)
	s.engine.GET("/camera_status", s.handleCameraStatus)

	// 走行コマンド
	s.engine.POST("/cmd", s.handleCmd)

	// 静止画
	s.engine.GET("/api/snapshots", s.handleSnapshots)

	// ヘルスチェックとステータス
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/api/status", s.handleStatus)
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// カメラとモーターも停止する
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 映像配信を止めてストリーミング中のクライアントを解放する
	if err := s.streamer.Stop(ctx); err != nil {
		log.Printf("カメラの停止に失敗: %v", err)
	}

	// 念のためモーターを止める
	if err := s.drive.Dispatch("stop"); err != nil {
		log.Printf("モーターの停止に失敗: %v", err)
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// Engine はginエンジンを返す。テスト用
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
