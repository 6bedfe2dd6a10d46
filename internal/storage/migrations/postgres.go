package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded postgres file in name order.
// Files use IF NOT EXISTS so a rerun is harmless.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger log.FieldLogger) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		logger.WithField("file", file).Debug("postgres migration applied")
	}
	return nil
}

// sqlFiles lists the .sql files of dir, sorted.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	// fs.ReadDir already sorts by name.
	return files, nil
}
