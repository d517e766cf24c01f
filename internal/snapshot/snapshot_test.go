package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		OutputDir:     t.TempDir(),
		RetentionDays: 7,
		CleanupEvery:  time.Hour,
	}
}

func TestManager_SaveAndList(t *testing.T) {
	cfg := testConfig(t)
	manager := NewManager(cfg)

	if err := manager.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	path, err := manager.Save([]byte("jpeg-data"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// ファイル名の形式を確認
	name := filepath.Base(path)
	if !isSnapshotFile(name) {
		t.Errorf("Unexpected file name: %s", name)
	}

	// 保存内容を確認
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "jpeg-data" {
		t.Errorf("Unexpected file content: %q", data)
	}

	infos, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(infos))
	}
	if infos[0].FileName != name {
		t.Errorf("Expected %s, got %s", name, infos[0].FileName)
	}
}

func TestManager_SaveEmptyFrame(t *testing.T) {
	manager := NewManager(testConfig(t))

	// 空フレームは保存できない
	if _, err := manager.Save(nil); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestManager_ListIgnoresOtherFiles(t *testing.T) {
	cfg := testConfig(t)
	manager := NewManager(cfg)

	// 管理対象外のファイルは一覧に含まれない
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := manager.Save([]byte("jpeg-data")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	infos, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(infos))
	}
}

func TestManager_Cleanup(t *testing.T) {
	cfg := testConfig(t)
	manager := NewManager(cfg)

	if _, err := manager.Save([]byte("jpeg-data")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 保持期間内は削除されない
	removed, err := manager.Cleanup(time.Now())
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected 0 removed, got %d", removed)
	}

	// 保持期間を過ぎた時点では削除される
	removed, err = manager.Cleanup(time.Now().AddDate(0, 0, cfg.RetentionDays+1))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	infos, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected no snapshots after cleanup, got %d", len(infos))
	}
}

func TestManager_StartStopIdempotent(t *testing.T) {
	manager := NewManager(testConfig(t))

	if err := manager.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := manager.Start(); err != nil {
		t.Fatalf("Second start failed: %v", err)
	}

	manager.Stop()
	manager.Stop() // 2回目のStopも安全

	// 再開可能であること
	if err := manager.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	manager.Stop()
}
