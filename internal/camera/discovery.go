package camera

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ScanDevices はシステム内のV4L2デバイスをデバイス番号順で返す
func ScanDevices() ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	return matches, nil
}

// HasDevice は指定されたカメラデバイスが存在するかを返す
//
// 起動時の自動検出に使用する。存在しない場合、サーバーは
// カメラなしモード（モーター制御のみ）で動作する
func HasDevice(device string) bool {
	info, err := os.Stat(device)
	if err != nil {
		return false
	}
	// 通常ファイルではなくデバイスファイルであること
	return info.Mode()&os.ModeDevice != 0
}

var deviceNumberPattern = regexp.MustCompile(`(\d+)$`)

// extractDeviceNumber はデバイスパスから末尾の番号を取り出す
func extractDeviceNumber(device string) int {
	m := deviceNumberPattern.FindString(device)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
