package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// JPEGマーカー
var (
	jpegSOI = []byte{0xFF, 0xD8} // 開始マーカー
	jpegEOI = []byte{0xFF, 0xD9} // 終了マーカー
)

// FFmpegSource はffmpeg経由でV4L2デバイスから連続的にJPEGフレームを
// 取得するキャプチャソース
//
// ffmpegのimage2pipe出力をJPEGマーカーで分割してフレーム単位で返す。
// Openに渡されたコンテキストのキャンセルでffmpegプロセスが終了し、
// ブロック中のNextはエラーで解放される。
type FFmpegSource struct {
	device string
	width  int
	height int
	fps    int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    bytes.Buffer // 読み取り済みだが未分割のデータ
	chunk  []byte       // 読み取り用バッファ
}

// NewFFmpegSource は新しいFFmpegSourceを作成する
func NewFFmpegSource(device string, width, height, fps int) *FFmpegSource {
	return &FFmpegSource{
		device: device,
		width:  width,
		height: height,
		fps:    fps,
		chunk:  make([]byte, 64*1024),
	}
}

// Open はffmpegプロセスを起動する
func (f *FFmpegSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cmd != nil {
		return fmt.Errorf("ソースは既に開かれています: %s", f.device)
	}

	// コンテキストのキャンセルでffmpegが終了し、stdoutがEOFになる
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", f.width, f.height),
		"-r", strconv.Itoa(f.fps),
		"-i", f.device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	f.cmd = cmd
	f.stdout = stdout
	f.buf.Reset()
	return nil
}

// Next は次の完全なJPEGフレームを返す
func (f *FFmpegSource) Next(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	stdout := f.stdout
	f.mu.Unlock()

	if stdout == nil {
		return nil, fmt.Errorf("ソースが開かれていません: %s", f.device)
	}

	for {
		// バッファ内の完全なフレームを先に探す
		if frame, ok := f.extractFrame(); ok {
			return frame, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := stdout.Read(f.chunk)
		if n > 0 {
			f.buf.Write(f.chunk[:n])
		}
		if err != nil {
			return nil, fmt.Errorf("フレームの読み取りに失敗: %w", err)
		}
	}
}

// extractFrame はバッファからJPEGマーカーで区切られた完全な1フレームを
// 取り出す。完全なフレームがまだない場合はfalseを返す
func (f *FFmpegSource) extractFrame() ([]byte, bool) {
	data := f.buf.Bytes()

	startIdx := bytes.Index(data, jpegSOI)
	if startIdx == -1 {
		return nil, false
	}

	endIdx := bytes.Index(data[startIdx+2:], jpegEOI)
	if endIdx == -1 {
		// 不完全なフレーム。開始マーカーより前のゴミは捨てる
		if startIdx > 0 {
			rest := make([]byte, len(data)-startIdx)
			copy(rest, data[startIdx:])
			f.buf.Reset()
			f.buf.Write(rest)
		}
		return nil, false
	}

	// マーカーを含めた完全なフレームを抽出する
	endIdx += startIdx + 2 + 2
	frame := make([]byte, endIdx-startIdx)
	copy(frame, data[startIdx:endIdx])

	// 処理済みデータをバッファから取り除く
	rest := make([]byte, len(data)-endIdx)
	copy(rest, data[endIdx:])
	f.buf.Reset()
	f.buf.Write(rest)

	return frame, true
}

// Close はffmpegプロセスを終了してリソースを解放する
func (f *FFmpegSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cmd == nil {
		return nil
	}

	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	_ = f.cmd.Wait() // コンテキストキャンセル時のエラーは無視

	f.cmd = nil
	f.stdout = nil
	f.buf.Reset()
	return nil
}
