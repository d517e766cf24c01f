// Package snapshot は静止画の保存と管理を担う
//
// # 責務
// - take-pictureコマンドで撮影したJPEGのファイル保存
// - 保存済み静止画の一覧取得
// - 保持期間を過ぎた静止画の定期削除
package snapshot

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config は静止画管理の設定
type Config struct {
	OutputDir     string        `json:"output_dir"`     // 保存先ディレクトリ
	RetentionDays int           `json:"retention_days"` // 保持期間（日数）。0で無期限
	CleanupEvery  time.Duration `json:"cleanup_every"`  // 削除処理の実行間隔
}

// DefaultConfig はデフォルトの静止画設定を返す
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		OutputDir:     filepath.Join(home, "pictures"),
		RetentionDays: 30,
		CleanupEvery:  1 * time.Hour,
	}
}

// Info は保存済み静止画の情報
type Info struct {
	FileName  string    `json:"file_name"`  // ファイル名
	FilePath  string    `json:"file_path"`  // フルパス
	FileSize  int64     `json:"file_size"`  // ファイルサイズ
	CreatedAt time.Time `json:"created_at"` // 作成日時
}

// Manager は静止画の保存・一覧・削除を管理する
type Manager struct {
	config Config

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
	active bool
}

// NewManager は新しいManagerを作成する
func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start は保存先ディレクトリを作成し、定期削除を開始する
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return nil // 既に開始している
	}

	if err := os.MkdirAll(m.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}

	if m.config.RetentionDays > 0 && m.config.CleanupEvery > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}

	m.active = true
	return nil
}

// Stop は定期削除を停止する
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}

	close(m.stopCh)
	m.wg.Wait()
	m.stopCh = make(chan struct{})
	m.active = false
}

// Save はJPEGデータをタイムスタンプ付きファイル名で保存する
func (m *Manager) Save(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("空のフレームは保存できません")
	}

	name := fmt.Sprintf("picture_%s.jpg", time.Now().Format("20060102_150405"))
	path := filepath.Join(m.config.OutputDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("静止画の保存に失敗: %w", err)
	}

	log.Printf("静止画を保存しました: %s", path)
	return path, nil
}

// List は保存済み静止画を新しい順で返す
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.config.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("静止画一覧の取得に失敗: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isSnapshotFile(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(m.config.OutputDir, entry.Name()),
			FileSize:  fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}

// Cleanup は保持期間を過ぎた静止画を削除し、削除した数を返す
func (m *Manager) Cleanup(now time.Time) (int, error) {
	if m.config.RetentionDays <= 0 {
		return 0, nil
	}

	infos, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.AddDate(0, 0, -m.config.RetentionDays)
	removed := 0
	for _, info := range infos {
		if info.CreatedAt.Before(cutoff) {
			if err := os.Remove(info.FilePath); err != nil {
				log.Printf("静止画の削除に失敗: %v", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		log.Printf("保持期間を過ぎた静止画を%d件削除しました", removed)
	}
	return removed, nil
}

// cleanupLoop は定期的に保持期間切れの静止画を削除する
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.Cleanup(time.Now()); err != nil {
				log.Printf("静止画の定期削除に失敗: %v", err)
			}
		}
	}
}

// isSnapshotFile は本パッケージが保存したファイル名かを判定する
func isSnapshotFile(name string) bool {
	return strings.HasPrefix(name, "picture_") && strings.HasSuffix(name, ".jpg")
}
