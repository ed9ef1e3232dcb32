package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/pawfinderz-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMigrationsContainWorkflowConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_placement_tables": {
			"CREATE TABLE IF NOT EXISTS placement_requests",
			"CREATE TABLE IF NOT EXISTS placement_request_responses",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_placement_responses_one_accepted",
			"WHERE status = 'accepted'",
			"DROP TABLE IF EXISTS placement_request_responses",
		},
		"create_transfer_tables": {
			"CREATE TABLE IF NOT EXISTS transfer_handovers",
			"CREATE TABLE IF NOT EXISTS foster_return_handovers",
			"CHECK (from_user_id <> to_user_id)",
		},
		"create_ownership_and_relationships": {
			"CREATE TABLE IF NOT EXISTS ownership_history",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_ownership_history_one_open",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_pet_relationships_one_active",
			"WHERE end_at IS NULL",
		},
		"create_notifications": {
			"CONSTRAINT ux_notification_preferences_user_type UNIQUE (user_id, notification_type)",
			"max_attempts integer NOT NULL DEFAULT 3",
		},
		"create_settings_and_email_configurations": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_email_configurations_one_active",
		},
	}

	for suffix, checks := range cases {
		t.Run(suffix, func(t *testing.T) {
			content := readMigration(t, suffix)
			for _, sub := range checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestValidateDirRejectsBadFilenames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Pet Microchip!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_pet_microchip.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
