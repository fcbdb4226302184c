package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// migrationFilePattern matches golang-migrate file names for JSON commands.
var migrationFilePattern = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.json$`)

// knownCommands are the database commands the migrations are allowed to use.
var knownCommands = []string{"createIndexes", "dropIndexes", "create", "drop", "update", "insert", "delete"}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

func readCommands(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var cmds []map[string]any
	if err := json.Unmarshal(data, &cmds); err != nil {
		t.Fatalf("%s is not a JSON array of commands: %v", filepath.Base(path), err)
	}
	return cmds
}

// TestMigrations_FilesArePaired checks naming and that every up migration
// has a matching down migration.
func TestMigrations_FilesArePaired(t *testing.T) {
	dir := migrationsDir(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading migrations dir: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		m := migrationFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			t.Errorf("unexpected file in migrations dir: %s", e.Name())
			continue
		}
		base := strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".up.json"), ".down.json")
		if m[2] == "up" {
			ups[base] = true
		} else {
			downs[base] = true
		}
	}

	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("%s has no down migration", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("%s has no up migration", base)
		}
	}
}

// TestMigrations_CommandsAreValid parses every migration and checks each
// entry names exactly one known command.
func TestMigrations_CommandsAreValid(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(migrationsDir(t), "*.json"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	for _, f := range files {
		cmds := readCommands(t, f)
		if len(cmds) == 0 {
			t.Errorf("%s contains no commands", filepath.Base(f))
		}
		for i, cmd := range cmds {
			found := 0
			for _, name := range knownCommands {
				if _, ok := cmd[name]; ok {
					found++
				}
			}
			if found != 1 {
				t.Errorf("%s command %d: expected exactly one known command, got %d", filepath.Base(f), i, found)
			}
		}
	}
}

// TestMigrations_UniqueIdentityIndexes guards the unique indexes the login
// and seeding code rely on.
func TestMigrations_UniqueIdentityIndexes(t *testing.T) {
	want := map[string]string{
		"users_email_unique":      "users",
		"roles_slug_unique":       "roles",
		"permissions_slug_unique": "permissions",
	}

	files, _ := filepath.Glob(filepath.Join(migrationsDir(t), "*.up.json"))
	for _, f := range files {
		for _, cmd := range readCommands(t, f) {
			coll, _ := cmd["createIndexes"].(string)
			indexes, _ := cmd["indexes"].([]any)
			for _, raw := range indexes {
				idx, _ := raw.(map[string]any)
				name, _ := idx["name"].(string)
				if wantColl, ok := want[name]; ok && wantColl == coll && idx["unique"] == true {
					delete(want, name)
				}
			}
		}
	}

	for name, coll := range want {
		t.Errorf("missing unique index %s on %s", name, coll)
	}
}

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		uri, db, want string
		wantErr       bool
	}{
		{"mongodb://localhost:27017", "forgepoint", "mongodb://localhost:27017/forgepoint", false},
		{"mongodb://u:p@db:27017/admin?authSource=admin", "site", "mongodb://u:p@db:27017/site?authSource=admin", false},
		{"mongodb://localhost:27017/existing", "", "mongodb://localhost:27017/existing", false},
		{"postgres://localhost", "x", "", true},
	}
	for _, tt := range tests {
		got, err := migrationURL(tt.uri, tt.db)
		if tt.wantErr {
			if err == nil {
				t.Errorf("migrationURL(%q) expected error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Fatalf("migrationURL(%q): %v", tt.uri, err)
		}
		if got != tt.want {
			t.Errorf("migrationURL(%q, %q) = %q, want %q", tt.uri, tt.db, got, tt.want)
		}
	}
}
