package camera

import (
	"context"
	"sync"
)

// FrameHub は1つのプロデューサーから複数のコンシューマーへ
// 「新しいフレームが利用可能」を通知するブロードキャスト機構
//
// 保持するのは最新の1フレームのみ。各コンシューマーは自分が最後に
// 観測したシーケンス番号を渡して待機し、共有カウンターがそれを
// 追い越した時点で起こされる。プロデューサーはコンシューマーを
// 待たない（publishは決してブロックしない）。
type FrameHub struct {
	mu     sync.Mutex
	seq    uint64        // 共有の単調増加カウンター
	frame  []byte        // 最新フレーム
	wake   chan struct{} // publish毎にcloseして作り直すブロードキャスト用チャンネル
	closed bool
	err    error // closeの理由。待機者へ返す
}

// NewFrameHub は新しいFrameHubを作成する
func NewFrameHub() *FrameHub {
	return &FrameHub{
		wake: make(chan struct{}),
	}
}

// Publish は新しいフレームを最新フレームとして保存し、
// 待機中の全コンシューマーを起こす。close後の呼び出しは無視される
func (h *FrameHub) Publish(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.seq++
	h.frame = data

	// closeのブロードキャストで全待機者を起こし、次の待機用に作り直す
	close(h.wake)
	h.wake = make(chan struct{})
}

// WaitFrame はlastSeqより新しいフレームが公開されるまでブロックする
//
// 既に新しいフレームが存在する場合は即座に返る。ハブがcloseされた
// 場合は保留中のフレームを返し切った後、closeの理由を返す。
// コンテキストのキャンセルでも解放される。
func (h *FrameHub) WaitFrame(ctx context.Context, lastSeq uint64) (Frame, error) {
	for {
		h.mu.Lock()
		if h.seq > lastSeq && h.frame != nil {
			f := Frame{Seq: h.seq, Data: h.frame}
			h.mu.Unlock()
			return f, nil
		}
		if h.closed {
			err := h.err
			h.mu.Unlock()
			return Frame{}, err
		}
		wake := h.wake
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-wake:
			// 新しいフレームまたはcloseを確認するためループする
		}
	}
}

// Latest は最新フレームをブロックせずに返す。まだ1枚も公開されて
// いない場合は false を返す
func (h *FrameHub) Latest() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frame == nil {
		return Frame{}, false
	}
	return Frame{Seq: h.seq, Data: h.frame}, true
}

// Seq は現在のシーケンス番号を返す
func (h *FrameHub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Close はハブを閉じ、待機中の全コンシューマーを解放する。冪等。
// errがnilの場合はErrStreamStoppedが待機者へ返される
func (h *FrameHub) Close(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	if err == nil {
		err = ErrStreamStopped
	}
	h.err = err
	close(h.wake)
}
