// Package car はメカナムホイール車体の駆動制御を担う
//
// # 責務
// - 走行コマンド（前進・後退・旋回・斜め移動）の各輪デューティ比への変換
// - 取り付け向きによる回転方向の補正
// - WebコマンドIDから走行操作へのディスパッチ
//
// 各輪の係数は以下のメカナムホイール構成に基づく:
// https://docs.revrobotics.com/duo-build/mecanum-drivetrain-kit-mecanum-drivetrain/mecanum-wheel-setup-and-behavior
package car

import (
	"fmt"
	"log"
)

// DefaultSpeed はモーターのデフォルト速度（パーセント）
const DefaultSpeed = 98

// Driver はモーター出力のインターフェース。buildhatパッケージの
// SerialDriver / EmulationDriverが実装する
type Driver interface {
	SetPWM(port int, value float64) error
	Off(port int) error
}

// Directions は各輪の回転係数（-1.0〜1.0）を表す
type Directions struct {
	LeftFront  float64
	LeftRear   float64
	RightFront float64
	RightRear  float64
}

// WheelPorts は各輪が接続されたBuild HATのポート番号を表す
type WheelPorts struct {
	LeftFront  int
	LeftRear   int
	RightFront int
	RightRear  int
}

// DefaultWheelPorts は標準の配線を返す
// （右前=A、左前=B、左後=C、右後=D）
func DefaultWheelPorts() WheelPorts {
	return WheelPorts{
		RightFront: 0,
		LeftFront:  1,
		LeftRear:   2,
		RightRear:  3,
	}
}

// Car はメカナムホイール車体を表す
type Car struct {
	driver Driver
	ports  WheelPorts
	speed  int // 速度（パーセント）

	// 左側モーターは鏡像に取り付けられているため回転方向を反転する
	correction Directions
}

// New は新しいCarを作成する。speedは1〜100のパーセント値
func New(driver Driver, ports WheelPorts, speed int) (*Car, error) {
	if speed < 1 || speed > 100 {
		return nil, fmt.Errorf("無効な速度: %d", speed)
	}

	return &Car{
		driver: driver,
		ports:  ports,
		speed:  speed,
		correction: Directions{
			LeftFront:  -1,
			LeftRear:   -1,
			RightFront: 1,
			RightRear:  1,
		},
	}, nil
}

// Front は前進する
func (c *Car) Front() error {
	return c.run(Directions{LeftFront: 1, LeftRear: 1, RightFront: 1, RightRear: 1})
}

// Rear は後退する
func (c *Car) Rear() error {
	return c.run(Directions{LeftFront: -1, LeftRear: -1, RightFront: -1, RightRear: -1})
}

// Left は左へ平行移動する
func (c *Car) Left() error {
	return c.run(Directions{LeftFront: -1, LeftRear: 1, RightFront: 1, RightRear: -1})
}

// Right は右へ平行移動する
func (c *Car) Right() error {
	return c.run(Directions{LeftFront: 0.8, LeftRear: -1, RightFront: -0.8, RightRear: 1})
}

// FrontLeft は左斜め前へ移動する
func (c *Car) FrontLeft() error {
	return c.run(Directions{LeftFront: -1, LeftRear: -0.5, RightFront: 1, RightRear: 0.5})
}

// FrontRight は右斜め前へ移動する
func (c *Car) FrontRight() error {
	return c.run(Directions{LeftFront: 1, LeftRear: 0, RightFront: -1, RightRear: 0})
}

// RearLeft は左斜め後ろへ移動する
func (c *Car) RearLeft() error {
	return c.run(Directions{LeftFront: -0.5, LeftRear: -1, RightFront: 0.5, RightRear: 1})
}

// RearRight は右斜め後ろへ移動する
func (c *Car) RearRight() error {
	return c.run(Directions{LeftFront: 0.5, LeftRear: 1, RightFront: -0.5, RightRear: -1})
}

// Stop は全輪の出力を止める
func (c *Car) Stop() error {
	for _, port := range []int{c.ports.RightRear, c.ports.RightFront, c.ports.LeftRear, c.ports.LeftFront} {
		if err := c.driver.Off(port); err != nil {
			return fmt.Errorf("モーターの停止に失敗 (ポート%d): %w", port, err)
		}
	}
	return nil
}

// Dispatch はWebレイヤーのコマンドIDを走行操作へ変換して実行する
func (c *Car) Dispatch(cmd string) error {
	log.Printf("走行コマンド: %s", cmd)

	switch cmd {
	case "ic-up":
		return c.Front()
	case "ic-down":
		return c.Rear()
	case "ic-left":
		return c.Left()
	case "ic-right":
		return c.Right()
	case "ic-left-up":
		return c.FrontLeft()
	case "ic-right-up":
		return c.FrontRight()
	case "ic-left-down":
		return c.RearLeft()
	case "ic-right-down":
		return c.RearRight()
	case "ic-stop", "stop":
		return c.Stop()
	default:
		return fmt.Errorf("不明なコマンド: %s", cmd)
	}
}

// run は補正×方向×速度を各輪に適用する
func (c *Car) run(d Directions) error {
	pwm := float64(c.speed) / 100

	wheels := []struct {
		port       int
		correction float64
		direction  float64
	}{
		{c.ports.RightRear, c.correction.RightRear, d.RightRear},
		{c.ports.RightFront, c.correction.RightFront, d.RightFront},
		{c.ports.LeftRear, c.correction.LeftRear, d.LeftRear},
		{c.ports.LeftFront, c.correction.LeftFront, d.LeftFront},
	}

	for _, w := range wheels {
		if err := c.driver.SetPWM(w.port, w.correction*w.direction*pwm); err != nil {
			return fmt.Errorf("モーターの駆動に失敗 (ポート%d): %w", w.port, err)
		}
	}
	return nil
}
