package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// Ключ advisory lock, под которым прогоняются миграции схемы заказов.
const schemaLockKey = int64(0x6F726472)

const migrationLedgerDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// migrationScript — пара up/down SQL-файлов одной версии схемы.
type migrationScript struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// EnsureSchema применяет все недостающие up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// MigrateUp применяет до steps недостающих миграций; steps=0 — все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigrations(ctx, func(ctx context.Context, m *migrator) error {
		return m.up(ctx, steps)
	})
}

// MigrateDown откатывает steps последних миграций; steps<=0 — одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.runMigrations(ctx, func(ctx context.Context, m *migrator) error {
		return m.down(ctx, steps)
	})
}

// MigrationStatus возвращает максимальную применённую версию и число
// применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("postgres store is not initialized")
	}

	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(statusCtx, migrationLedgerDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration ledger: %w", err)
	}

	var (
		version int64
		applied int
	)
	err := s.db.QueryRowContext(statusCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations`,
	).Scan(&version, &applied)
	if err != nil {
		return 0, 0, fmt.Errorf("read migration ledger: %w", err)
	}
	return version, applied, nil
}

// migrator выполняет шаги миграций на одном соединении под advisory lock.
type migrator struct {
	conn    *sql.Conn
	scripts []migrationScript
}

// runMigrations берёт выделенное соединение и держит advisory lock на всё
// время прогона, чтобы параллельные инстансы сервиса не применяли миграции
// одновременно.
func (s *Store) runMigrations(ctx context.Context, fn func(context.Context, *migrator) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	scripts, err := loadMigrationScripts(migrationsFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, schemaLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationLedgerDDL); err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}

	return fn(ctx, &migrator{conn: conn, scripts: scripts})
}

func (m *migrator) up(ctx context.Context, steps int) error {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	done := 0
	for _, script := range m.scripts {
		if applied[script.Version] {
			continue
		}
		err := m.step(ctx, script, script.Up, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO schema_migrations (version, name, applied_at)
				VALUES ($1, $2, NOW())
			`, script.Version, script.Name)
			return err
		})
		if err != nil {
			return err
		}
		done++
		if steps > 0 && done >= steps {
			break
		}
	}
	return nil
}

func (m *migrator) down(ctx context.Context, steps int) error {
	byVersion := make(map[int64]migrationScript, len(m.scripts))
	for _, script := range m.scripts {
		byVersion[script.Version] = script
	}

	versions, err := m.latestVersions(ctx, steps)
	if err != nil {
		return err
	}

	for _, version := range versions {
		script, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("no down script for applied version %d", version)
		}
		err := m.step(ctx, script, script.Down, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// step применяет SQL миграции и запись в ledger в одной транзакции.
func (m *migrator) step(ctx context.Context, script migrationScript, body string, record func(*sql.Tx) error) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d_%s: %w", script.Version, script.Name, err)
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %d_%s: %w", script.Version, script.Name, err)
	}
	if err := record(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %d_%s: %w", script.Version, script.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d_%s: %w", script.Version, script.Name, err)
	}
	return nil
}

func (m *migrator) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := m.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return applied, nil
}

func (m *migrator) latestVersions(ctx context.Context, limit int) ([]int64, error) {
	rows, err := m.conn.QueryContext(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read latest versions: %w", err)
	}
	defer rows.Close()

	versions := make([]int64, 0, limit)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan latest version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest versions: %w", err)
	}
	return versions, nil
}

// loadMigrationScripts читает файлы вида NNNN_name.up.sql / NNNN_name.down.sql
// и собирает их в отсортированный по версии список. Каждая версия обязана
// иметь оба файла.
func loadMigrationScripts(fsys fs.FS) ([]migrationScript, error) {
	files, err := fs.Glob(fsys, "sql/migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	scripts := make(map[int64]*migrationScript)
	for _, file := range files {
		base := path.Base(file)
		version, name, direction, err := parseMigrationName(base)
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration %s is empty", base)
		}

		script := scripts[version]
		if script == nil {
			script = &migrationScript{Version: version, Name: name}
			scripts[version] = script
		}
		if script.Name != name {
			return nil, fmt.Errorf("version %d has conflicting names %q and %q", version, script.Name, name)
		}

		switch direction {
		case "up":
			if script.Up != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			script.Up = body
		case "down":
			if script.Down != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			script.Down = body
		}
	}

	ordered := make([]migrationScript, 0, len(scripts))
	for _, script := range scripts {
		if script.Up == "" || script.Down == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", script.Version, script.Name)
		}
		ordered = append(ordered, *script)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	return ordered, nil
}

// parseMigrationName разбирает имя файла NNNN_name.(up|down).sql.
func parseMigrationName(base string) (version int64, name, direction string, err error) {
	stem := base
	switch {
	case strings.HasSuffix(stem, ".up.sql"):
		direction = "up"
		stem = strings.TrimSuffix(stem, ".up.sql")
	case strings.HasSuffix(stem, ".down.sql"):
		direction = "down"
		stem = strings.TrimSuffix(stem, ".down.sql")
	default:
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", base)
	}

	versionPart, name, ok := strings.Cut(stem, "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", base)
	}
	version, err = strconv.ParseInt(versionPart, 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid migration version in %s: %w", base, err)
	}
	return version, name, direction, nil
}
