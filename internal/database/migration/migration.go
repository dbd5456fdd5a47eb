package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"impugnaya/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_generated_documents",
		SQL: `CREATE TABLE IF NOT EXISTS generated_documents (
  name         TEXT        PRIMARY KEY,
  storage_path TEXT        NOT NULL,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at   TIMESTAMPTZ NULL
);`,
	},
	{
		Name: "create_index_generated_documents_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_generated_documents_expires_at ON generated_documents (expires_at) WHERE expires_at IS NOT NULL;`,
	},
	{
		Name: "create_index_generated_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_generated_documents_created_at ON generated_documents (created_at);`,
	},
}

const sentinelQuery = "SELECT to_regclass('public.generated_documents') IS NOT NULL"

// EnsureMigrated creates the document registry schema when the generated_documents table is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *logging.Logger, dbHost string) error {
	start := time.Now()
	base := func(event, status string) map[string]any {
		return map[string]any{
			"component": "database",
			"event":     event,
			"status":    status,
			"db_host":   dbHost,
		}
	}

	logger.Info("checking registry schema", base("db_migration_check", "starting"))

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		f := base("db_migration_failed", "error")
		f["duration_ms"] = time.Since(start).Milliseconds()
		logger.Error("failed to check sentinel table", err, f)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		f := base("db_migration_skip", "success")
		f["duration_ms"] = time.Since(start).Milliseconds()
		logger.Info("schema already exists, skipping migration", f)
		return nil
	}

	logger.Info("applying registry schema", base("db_migration_start", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			f := base("db_migration_failed", "error")
			f["migration_step"] = step.Name
			f["duration_ms"] = time.Since(start).Milliseconds()
			f["step_duration_ms"] = time.Since(stepStart).Milliseconds()
			logger.Error("migration step failed", err, f)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		f := base("db_migration_step", "success")
		f["migration_step"] = step.Name
		f["step_duration_ms"] = time.Since(stepStart).Milliseconds()
		logger.Info("migration step applied", f)
	}

	f := base("db_migration_success", "success")
	f["duration_ms"] = time.Since(start).Milliseconds()
	logger.Info("registry schema ready", f)
	return nil
}
