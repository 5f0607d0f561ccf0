package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMigrationFilesOrdered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("写入文件失败: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles 不应报错: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("期望 2 个 sql 文件, 实际 %v", files)
	}
	if filepath.Base(files[0]) != "001_init.sql" || filepath.Base(files[1]) != "002_more.sql" {
		t.Fatalf("迁移顺序不正确: %v", files)
	}
}

func TestRepositoryMigrationPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("仓库应包含 migrations 目录: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("migrations 目录不应为空")
	}
}

func TestNilStoreNotConfigured(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if _, err := s.ListStations(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("期望 ErrNotConfigured, 实际 %v", err)
	}
	if _, err := s.UpsertMeasurements(ctx, []Measurement{{Metric: "实际功率"}}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("期望 ErrNotConfigured, 实际 %v", err)
	}
	if _, _, err := s.TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("期望 ErrNotConfigured, 实际 %v", err)
	}
	s.Close()
}

func TestIntervalRecordDuration(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := IntervalRecord{Start: start, End: start.Add(45 * time.Minute)}
	if rec.Duration() != 45*time.Minute {
		t.Fatalf("期望 45m, 实际 %s", rec.Duration())
	}
}
