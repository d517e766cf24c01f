package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Streamer はキャプチャゴルーチンのライフサイクルを管理する
//
// キャプチャゴルーチンは常に最大1つ。取得したフレームはFrameHubへ
// 公開され、任意の数のHTTPハンドラがWaitFrameで消費する。
// Start/Stopは冪等で、複数のリクエストハンドラから同時に呼ばれても安全。
type Streamer struct {
	source Source

	// タイムアウト設定
	firstFrameTimeout time.Duration
	stopTimeout       time.Duration

	mu     sync.Mutex
	state  State
	hub    *FrameHub          // 現在の実行のハブ。一度もStartしていなければnil
	cancel context.CancelFunc // キャプチャゴルーチンの停止用
	done   chan struct{}      // キャプチャゴルーチン終了の通知
}

// NewStreamer は新しいStreamerを作成する
func NewStreamer(source Source) *Streamer {
	return &Streamer{
		source:            source,
		firstFrameTimeout: 10 * time.Second,
		stopTimeout:       5 * time.Second,
		state:             StateStopped,
	}
}

// SetFirstFrameTimeout は最初のフレームの待機タイムアウトを設定する
func (s *Streamer) SetFirstFrameTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firstFrameTimeout = d
}

// Start はキャプチャを開始する
//
// 既に起動中・配信中の場合は何もせずnilを返す（冪等）。
// ソースを開いてキャプチャゴルーチンを起動し、最初のフレームが
// 公開されるまで限度付きで待機する。
func (s *Streamer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return nil // 既に動作中
	}
	s.state = StateStarting

	hub := NewFrameHub()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.hub = hub
	s.cancel = cancel
	s.done = done
	firstFrameTimeout := s.firstFrameTimeout
	s.mu.Unlock()

	// ソースを初期化する。runCtxがソースの生存期間を制御する
	if err := s.source.Open(runCtx); err != nil {
		cancel()
		close(done) // ゴルーチンは起動していないため、ここで終了を通知する
		hub.Close(fmt.Errorf("キャプチャソースを開けません: %w", err))
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return fmt.Errorf("キャプチャソースの初期化に失敗: %w", err)
	}

	go s.captureLoop(runCtx, hub, done)

	// 最初のフレームを限度付きで待つ
	waitCtx, waitCancel := context.WithTimeout(ctx, firstFrameTimeout)
	defer waitCancel()

	if _, err := hub.WaitFrame(waitCtx, 0); err != nil {
		_ = s.Stop(ctx)
		return fmt.Errorf("最初のフレームの待機に失敗: %w", err)
	}

	s.mu.Lock()
	if s.state == StateStarting {
		s.state = StateStreaming
	}
	s.mu.Unlock()

	log.Println("カメラストリーミングを開始しました")
	return nil
}

// Stop はキャプチャを停止し、待機中の全クライアントを解放する
//
// 既に停止している場合は何もせずnilを返す（冪等）。
// キャプチャゴルーチンの終了を限度付きで待機する。
func (s *Streamer) Stop(_ context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil // 既に停止している
	}
	cancel := s.cancel
	done := s.done
	stopTimeout := s.stopTimeout
	s.mu.Unlock()

	// キャプチャゴルーチンへ停止を通知する
	cancel()

	// ゴルーチンの終了を限度付きで待つ
	select {
	case <-done:
	case <-time.After(stopTimeout):
		return fmt.Errorf("キャプチャゴルーチンの停止がタイムアウトしました (%s)", stopTimeout)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	log.Println("カメラストリーミングを停止しました")
	return nil
}

// captureLoop はキャプチャゴルーチンの本体
//
// ソースからフレームを取得して最新フレームとして公開する処理を
// 繰り返す。過去フレームのバッファリングは行わない。
func (s *Streamer) captureLoop(ctx context.Context, hub *FrameHub, done chan struct{}) {
	for {
		data, err := s.source.Next(ctx)
		if err != nil {
			// 状態遷移の前にソースを解放する。再起動時に新しい実行が
			// 開き直したソースを閉じてしまわないようにするため
			_ = s.source.Close()

			if ctx.Err() != nil {
				// 通常の停止。待機者はErrStreamStoppedで解放される
				hub.Close(nil)
			} else {
				// ソース障害。待機者を解放して停止状態へ遷移する
				log.Printf("キャプチャソースでエラーが発生しました: %v", err)
				hub.Close(fmt.Errorf("キャプチャソースが停止: %w", err))
				s.mu.Lock()
				s.state = StateStopped
				s.mu.Unlock()
			}
			close(done)
			return
		}
		hub.Publish(data)
	}
}

// WaitFrame はlastSeqより新しいフレームが公開されるまで待機して返す
//
// 一度もStartされていない場合は即座にErrNotStreamingを返す。
// ストリーム停止時は保留中のフレームを返し切った後、
// ErrStreamStoppedで解放される。
func (s *Streamer) WaitFrame(ctx context.Context, lastSeq uint64) (Frame, error) {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()

	if hub == nil {
		return Frame{}, ErrNotStreaming
	}
	return hub.WaitFrame(ctx, lastSeq)
}

// Latest は最新フレームをブロックせずに返す
func (s *Streamer) Latest() (Frame, bool) {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()

	if hub == nil {
		return Frame{}, false
	}
	return hub.Latest()
}

// State は現在のライフサイクル状態を返す
func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Streaming はフレーム配信中かどうかを返す
func (s *Streamer) Streaming() bool {
	return s.State() == StateStreaming
}
