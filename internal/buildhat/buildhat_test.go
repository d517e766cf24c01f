package buildhat

import (
	"bytes"
	"strings"
	"testing"
)

// fakeConn はシリアルポートの代わりに書き込みを記録する
type fakeConn struct {
	buf    bytes.Buffer
	closed bool
}

func (f *fakeConn) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestSerialDriver_CommandFormat(t *testing.T) {
	testCases := []struct {
		name     string
		exec     func(d *SerialDriver) error
		expected string
	}{
		{
			name:     "正転",
			exec:     func(d *SerialDriver) error { return d.SetPWM(PortA, 0.98) },
			expected: "port 0 ; pwm ; set 0.98\r",
		},
		{
			name:     "逆転",
			exec:     func(d *SerialDriver) error { return d.SetPWM(PortC, -0.5) },
			expected: "port 2 ; pwm ; set -0.50\r",
		},
		{
			name:     "範囲外の値は丸められる",
			exec:     func(d *SerialDriver) error { return d.SetPWM(PortB, 1.5) },
			expected: "port 1 ; pwm ; set 1.00\r",
		},
		{
			name:     "停止",
			exec:     func(d *SerialDriver) error { return d.Off(PortD) },
			expected: "port 3 ; off\r",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := &fakeConn{}
			driver := newSerialDriver(conn)

			if err := tc.exec(driver); err != nil {
				t.Fatalf("Command failed: %v", err)
			}
			if got := conn.buf.String(); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSerialDriver_InvalidPort(t *testing.T) {
	driver := newSerialDriver(&fakeConn{})

	if err := driver.SetPWM(4, 0.5); err == nil {
		t.Error("Expected error for port beyond D")
	}
	if err := driver.Off(-1); err == nil {
		t.Error("Expected error for negative port")
	}
}

func TestSerialDriver_Close(t *testing.T) {
	conn := &fakeConn{}
	driver := newSerialDriver(conn)

	if err := driver.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !conn.closed {
		t.Error("Expected underlying connection to be closed")
	}
}

func TestEmulationDriver_RecordsCommands(t *testing.T) {
	driver := NewEmulationDriver()

	if err := driver.SetPWM(PortA, 1.0); err != nil {
		t.Fatalf("SetPWM failed: %v", err)
	}
	if err := driver.Off(PortA); err != nil {
		t.Fatalf("Off failed: %v", err)
	}

	commands := driver.Commands()
	if len(commands) != 2 {
		t.Fatalf("Expected 2 commands, got %d", len(commands))
	}
	if !strings.Contains(commands[0], "pwm ; set 1.00") {
		t.Errorf("Unexpected first command: %s", commands[0])
	}
	if commands[1] != "port 0 ; off" {
		t.Errorf("Unexpected second command: %s", commands[1])
	}

	driver.Reset()
	if len(driver.Commands()) != 0 {
		t.Error("Expected no commands after reset")
	}
}
