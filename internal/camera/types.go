package camera

import (
	"context"
	"errors"
)

// State はストリーミングのライフサイクル状態を表す
type State string

const (
	StateStopped   State = "stopped"   // キャプチャは停止中
	StateStarting  State = "starting"  // キャプチャゴルーチンを起動中
	StateStreaming State = "streaming" // フレームを配信中
)

// Frame は1枚のエンコード済み画像と単調増加するシーケンス番号を保持する
type Frame struct {
	Seq  uint64 // フレームのシーケンス番号（1始まり）
	Data []byte // JPEGバイト列。受信側は変更してはならない
}

// Source はフレームを供給するキャプチャソースのインターフェース
//
// Openに渡したコンテキストがキャンセルされると、ブロック中のNextは
// エラーを返して解放される。
type Source interface {
	// Open はソースを初期化する。ctxはソースの生存期間を制御する
	Open(ctx context.Context) error

	// Next は次のフレームを返す。エンドレスに呼び出せる
	Next(ctx context.Context) ([]byte, error)

	// Close はソースのリソースを解放する
	Close() error
}

var (
	// ErrNotStreaming はキャプチャが開始されていない状態でのフレーム要求を表す
	ErrNotStreaming = errors.New("カメラはストリーミングしていません")

	// ErrStreamStopped はストリーム停止によって待機が解放されたことを表す
	ErrStreamStopped = errors.New("ストリームは停止されました")
)
