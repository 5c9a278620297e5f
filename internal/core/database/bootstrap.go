package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/markdave123-py/Learnify/internal/logger"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// schemaVersion is the version scripts/initdb.sql brings the database to.
// Bump it whenever the script changes so running instances re-apply it.
const schemaVersion = 1

// bootstrapLockID keys the advisory lock that keeps two instances from
// applying the schema at the same time.
const bootstrapLockID = 0x6c6561726e // "learn"

// EnsureBootstrapped applies scripts/initdb.sql when the highest version
// recorded in learnify_meta is older than schemaVersion. The script is
// idempotent, so re-running it on an older schema only adds what is missing.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	applied, err := appliedVersion(ctxBoot, db)
	if err != nil {
		return err
	}
	if !needsBootstrap(applied) {
		logger.Debug("schema up to date", "version", applied)
		return nil
	}
	return runBootstrap(ctxBoot, db, applied)
}

// appliedVersion returns the newest recorded schema version, 0 when the meta
// table does not exist yet.
func appliedVersion(ctx context.Context, q execQuerier) (int, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'learnify_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		return 0, nil
	}

	var v sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(version) FROM learnify_meta`).Scan(&v); err != nil {
		return 0, fmt.Errorf("meta version check failed: %w", err)
	}
	return int(v.Int64), nil
}

func needsBootstrap(applied int) bool {
	return applied < schemaVersion
}

func runBootstrap(ctx context.Context, db *sql.DB, from int) error {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return fmt.Errorf("read initdb.sql: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID); err != nil {
		return fmt.Errorf("bootstrap lock: %w", err)
	}

	// another instance may have finished while we waited for the lock
	current, err := appliedVersion(ctx, tx)
	if err != nil {
		return err
	}
	if !needsBootstrap(current) {
		return nil
	}

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO learnify_meta (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	logger.Info("schema bootstrapped", "from", from, "to", schemaVersion)
	return nil
}
