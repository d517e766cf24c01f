package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource はテスト用のキャプチャソース実装
//
// 一定間隔で連番入りの合成フレームを生成する。Open回数のカウントや
// 指定フレーム数後の失敗など、テスト用の制御機能を持つ
type MockSource struct {
	// Interval はフレーム生成間隔（デフォルト: 1ミリ秒）
	Interval time.Duration

	// FailAfter が正の場合、そのフレーム数を生成した後にNextが失敗する
	FailAfter int

	mu        sync.Mutex
	opened    bool
	produced  int
	openCount atomic.Int64
}

// NewMockSource は新しいMockSourceを作成する
func NewMockSource() *MockSource {
	return &MockSource{
		Interval: time.Millisecond,
	}
}

// Open はモックソースを開く
func (m *MockSource) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened {
		return fmt.Errorf("モック: ソースは既に開かれています")
	}
	m.opened = true
	m.produced = 0
	m.openCount.Add(1)
	return nil
}

// Next は次の合成フレームを返す
func (m *MockSource) Next(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	if !m.opened {
		m.mu.Unlock()
		return nil, fmt.Errorf("モック: ソースが開かれていません")
	}
	if m.FailAfter > 0 && m.produced >= m.FailAfter {
		m.mu.Unlock()
		return nil, fmt.Errorf("モック: キャプチャに失敗")
	}
	m.produced++
	n := m.produced
	interval := m.Interval
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(interval):
	}

	return []byte(fmt.Sprintf("frame-%d", n)), nil
}

// Close はモックソースを閉じる
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}

// OpenCount はOpenが呼ばれた回数を返す
func (m *MockSource) OpenCount() int64 {
	return m.openCount.Load()
}

// Produced は生成したフレーム数を返す
func (m *MockSource) Produced() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.produced
}
