package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupConfig controls the periodic snapshot loop.
type BackupConfig struct {
	Dir       string
	Interval  time.Duration
	Retention time.Duration
}

// Backup writes a consistent snapshot of the database to dest.
func (s *Store) Backup(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// CleanupBackups removes snapshot files in dir older than retention and
// returns how many were deleted.
func CleanupBackups(dir string, retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read backup dir: %w", err)
	}

	cutoff := now.Add(-retention)
	deleted := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// RunBackups snapshots the database every cfg.Interval until ctx ends.
func (s *Store) RunBackups(ctx context.Context, cfg BackupConfig) {
	if cfg.Dir == "" {
		cfg.Dir = "backups"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 14 * 24 * time.Hour
	}

	s.logger.Info().Str("dir", cfg.Dir).Dur("interval", cfg.Interval).Msg("backup loop started")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runBackupTask(ctx, cfg)
		}
	}
}

func (s *Store) runBackupTask(ctx context.Context, cfg BackupConfig) {
	dest := filepath.Join(cfg.Dir, fmt.Sprintf("techslots_%s.db", time.Now().Format("20060102_150405")))

	s.logger.Info().Str("path", dest).Msg("starting database backup")
	if err := s.Backup(ctx, dest); err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}

	deleted, err := CleanupBackups(cfg.Dir, cfg.Retention, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}
