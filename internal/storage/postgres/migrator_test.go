package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationPair(name, up, down string) fstest.MapFS {
	return fstest.MapFS{
		"sql/migrations/" + name + ".up.sql":   {Data: []byte(up)},
		"sql/migrations/" + name + ".down.sql": {Data: []byte(down)},
	}
}

func TestParseMigrationName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base      string
		version   int64
		name      string
		direction string
		wantErr   bool
	}{
		{base: "0001_init.up.sql", version: 1, name: "init", direction: "up"},
		{base: "0002_status_history.down.sql", version: 2, name: "status_history", direction: "down"},
		{base: "not_a_migration.sql", wantErr: true},
		{base: "0001.up.sql", wantErr: true},
		{base: "abc_init.up.sql", wantErr: true},
	}

	for _, tc := range cases {
		version, name, direction, err := parseMigrationName(tc.base)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseMigrationName(%q): expected error", tc.base)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMigrationName(%q): %v", tc.base, err)
			continue
		}
		if version != tc.version || name != tc.name || direction != tc.direction {
			t.Errorf("parseMigrationName(%q) = (%d, %q, %q)", tc.base, version, name, direction)
		}
	}
}

func TestLoadMigrationScripts_SortedByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_history.up.sql":   {Data: []byte("CREATE TABLE test_b (id INT);")},
		"sql/migrations/0002_history.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_b;")},
		"sql/migrations/0001_init.up.sql":      {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/0001_init.down.sql":    {Data: []byte("DROP TABLE IF EXISTS test_a;")},
	}

	scripts, err := loadMigrationScripts(fsys)
	if err != nil {
		t.Fatalf("loadMigrationScripts: %v", err)
	}
	if len(scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(scripts))
	}
	if scripts[0].Version != 1 || scripts[0].Name != "init" {
		t.Fatalf("unexpected first script: %+v", scripts[0])
	}
	if scripts[1].Version != 2 || scripts[1].Name != "history" {
		t.Fatalf("unexpected second script: %+v", scripts[1])
	}
	if scripts[0].Up == "" || scripts[0].Down == "" {
		t.Fatal("both script bodies must be loaded")
	}
}

func TestLoadMigrationScripts_RequiresBothDirections(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE test_a (id INT);")},
	}

	_, err := loadMigrationScripts(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationScripts_RejectsEmptyBody(t *testing.T) {
	t.Parallel()

	fsys := migrationPair("0001_init", "   \n", "DROP TABLE IF EXISTS test;")

	if _, err := loadMigrationScripts(fsys); err == nil {
		t.Fatal("expected error for empty migration body")
	}
}

func TestLoadMigrationScripts_RejectsConflictingNames(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":      {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/0001_renamed.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_a;")},
	}

	if _, err := loadMigrationScripts(fsys); err == nil {
		t.Fatal("expected error for conflicting migration names")
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	scripts, err := loadMigrationScripts(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(scripts) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
}
