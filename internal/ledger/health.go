package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth describes the ledger database for diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	TotalEvents      int
	TotalShifts      int
	OpenAttempts     int
	Error            string
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT version FROM schema_version LIMIT 1", &health.SchemaVersion},
		{"SELECT COUNT(1) FROM events", &health.TotalEvents},
		{"SELECT COUNT(1) FROM worker_shifts", &health.TotalShifts},
		{"SELECT COUNT(1) FROM pack_attempts WHERE state <> '" + ClosedAttemptState + "'", &health.OpenAttempts},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(connCtx, c.query).Scan(c.dst); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("health query %q: %w", c.query, err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
