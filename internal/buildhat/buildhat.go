// Package buildhat はLEGO Build HATのパッシブモーター制御を担う
//
// Build HATはRaspberry PiのUARTに接続され、テキストプロトコルで
// 制御する。本パッケージはモーター駆動に必要なコマンド
// （pwm設定とポートオフ）のみを実装する。
//
// # 前提要件
//   - /dev/serial0 が有効であること（raspi-configでシリアルを有効化）
//   - dialoutグループへの参加: sudo usermod -a -G dialout $USER
package buildhat

import (
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

// モーターポート。基板上の表記A〜Dに対応する
const (
	PortA = 0
	PortB = 1
	PortC = 2
	PortD = 3
)

// DefaultDevice はRaspberry PiのUARTデバイスパス
const DefaultDevice = "/dev/serial0"

// DefaultBaudRate はBuild HATファームウェアの通信速度
const DefaultBaudRate = 115200

// Driver はモーター出力のインターフェース
//
// 実機向けのSerialDriverと、HAT未接続環境向けのEmulationDriverが実装する。
type Driver interface {
	// SetPWM は指定ポートのモーターを-1.0〜1.0のデューティ比で回す
	SetPWM(port int, value float64) error

	// Off は指定ポートの出力を止める
	Off(port int) error

	// Close はドライバーのリソースを解放する
	Close() error
}

// SerialDriver はシリアルポート経由でBuild HATを制御する
type SerialDriver struct {
	mu   sync.Mutex
	conn io.WriteCloser
}

// Open はBuild HATのシリアルポートを開いてドライバーを初期化する
func Open(device string, baudRate int) (*SerialDriver, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("Build HATのシリアルポートを開けません (%s): %w", device, err)
	}

	d := newSerialDriver(port)

	// プロンプトのエコーバックを止めてノイズを抑える
	if err := d.send("echo 0"); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("Build HATの初期化に失敗: %w", err)
	}

	return d, nil
}

// newSerialDriver は書き込み先を指定してSerialDriverを作成する。テスト用
func newSerialDriver(conn io.WriteCloser) *SerialDriver {
	return &SerialDriver{conn: conn}
}

// SetPWM は指定ポートのモーターを回す。値は-1.0〜1.0に丸められる
func (d *SerialDriver) SetPWM(port int, value float64) error {
	if err := validatePort(port); err != nil {
		return err
	}
	return d.send(fmt.Sprintf("port %d ; pwm ; set %.2f", port, clamp(value, -1, 1)))
}

// Off は指定ポートの出力を止める
func (d *SerialDriver) Off(port int) error {
	if err := validatePort(port); err != nil {
		return err
	}
	return d.send(fmt.Sprintf("port %d ; off", port))
}

// Close はシリアルポートを閉じる
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Close()
}

// send はコマンド1行をBuild HATへ送信する
func (d *SerialDriver) send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.conn.Write([]byte(cmd + "\r")); err != nil {
		return fmt.Errorf("コマンドの送信に失敗 (%q): %w", cmd, err)
	}
	return nil
}

// EmulationDriver はHAT未接続環境向けのドライバー実装
//
// コマンドをログに出力するだけで何も駆動しない。テストでは
// 記録されたコマンド列を検証に使える。
type EmulationDriver struct {
	mu       sync.Mutex
	commands []string
}

// NewEmulationDriver は新しいEmulationDriverを作成する
func NewEmulationDriver() *EmulationDriver {
	return &EmulationDriver{}
}

// SetPWM はコマンドを記録してログに出力する
func (e *EmulationDriver) SetPWM(port int, value float64) error {
	if err := validatePort(port); err != nil {
		return err
	}
	e.record(fmt.Sprintf("port %d ; pwm ; set %.2f", port, clamp(value, -1, 1)))
	return nil
}

// Off はコマンドを記録してログに出力する
func (e *EmulationDriver) Off(port int) error {
	if err := validatePort(port); err != nil {
		return err
	}
	e.record(fmt.Sprintf("port %d ; off", port))
	return nil
}

// Close は何もしない
func (e *EmulationDriver) Close() error {
	return nil
}

// Commands は記録されたコマンド列のコピーを返す
func (e *EmulationDriver) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

// Reset は記録をクリアする
func (e *EmulationDriver) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = nil
}

func (e *EmulationDriver) record(cmd string) {
	e.mu.Lock()
	e.commands = append(e.commands, cmd)
	e.mu.Unlock()
	log.Printf("エミュレーション: %s", cmd)
}

// validatePort はポート番号の妥当性を検証する
func validatePort(port int) error {
	if port < PortA || port > PortD {
		return fmt.Errorf("無効なモーターポート: %d", port)
	}
	return nil
}

// clamp はvalueを[lo, hi]の範囲に丸める
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
