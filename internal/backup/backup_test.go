package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/storage"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// setupTestDB creates an initialized moldtrack database holding the given machines.
func setupTestDB(t *testing.T, machines ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "moldtrack.db")
	addMachines(t, dbPath, machines...)
	return dbPath
}

func addMachines(t *testing.T, dbPath string, machines ...string) {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	err := store.Update(context.Background(), func(tx storage.Tx) error {
		for _, name := range machines {
			if err := tx.AddMachine(models.Machine{Name: name, CreatedAt: base}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to add machines: %v", err)
	}
}

func countMachines(t *testing.T, dbPath string) int {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM machines").Scan(&n); err != nil {
		t.Fatalf("failed to count machines: %v", err)
	}
	return n
}

// steppingClock advances one hour per call so every backup gets its own name.
func steppingClock() func() time.Time {
	now := base
	return func() time.Time {
		now = now.Add(time.Hour)
		return now
	}
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t, "M-1", "M-2")

	mgr := NewManager(dbPath, WithClock(func() time.Time { return base }))
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if filepath.Base(backupPath) != "moldtrack-20250310-0800.db" {
		t.Errorf("unexpected backup name %s", filepath.Base(backupPath))
	}
	if filepath.Dir(backupPath) != filepath.Join(filepath.Dir(dbPath), constants.BackupDirName) {
		t.Errorf("backup written outside the backup dir: %s", backupPath)
	}
	if got := countMachines(t, backupPath); got != 2 {
		t.Errorf("expected 2 machines in backup, got %d", got)
	}
}

func TestBackupWithNoDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.CreateBackup(); err == nil {
		t.Error("expected error when the database does not exist")
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t, "M-1")
	mgr := NewManager(dbPath, WithClock(steppingClock()), WithRetention(3))

	for i := 0; i < 5; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup %d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups after rotation, got %d", len(backups))
	}
	if !backups[0].Timestamp.Equal(base.Add(5 * time.Hour)) {
		t.Errorf("newest backup should be kept, got %v", backups[0].Timestamp)
	}
}

func TestDefaultRetention(t *testing.T) {
	mgr := NewManager("/tmp/x.db", WithRetention(0))
	if mgr.keep != constants.MaxBackups {
		t.Errorf("keep = %d, want %d", mgr.keep, constants.MaxBackups)
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t, "M-1")
	fixed := base.Add(30 * time.Second)
	mgr := NewManager(dbPath, WithClock(func() time.Time { return fixed }))

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		p, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup %d failed: %v", i, err)
		}
		if seen[p] {
			t.Fatalf("duplicate backup path %s", p)
		}
		seen[p] = true
	}

	for _, name := range []string{
		"moldtrack-20250310-0800.db",
		"moldtrack-20250310-080030.db",
		"moldtrack-20250310-080030-1.db",
		"moldtrack-20250310-080030-2.db",
	} {
		if !seen[filepath.Join(mgr.GetBackupDir(), name)] {
			t.Errorf("expected backup %s", name)
		}
	}
}

func TestParseBackupName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		want time.Time
	}{
		{"moldtrack-20250310-0800.db", true, base},
		{"moldtrack-20250310-080030.db", true, base.Add(30 * time.Second)},
		{"moldtrack-20250310-080030-7.db", true, base.Add(30 * time.Second)},
		{"shopfloor-20250310-0800.db", false, time.Time{}},
		{"moldtrack-notadate.db", false, time.Time{}},
		{"moldtrack-20250310-0800.sql", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBackupName(tt.name)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("parseBackupName(%q) = %v, %v", tt.name, got, ok)
			}
		})
	}
}

func TestListBackupsIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t, "M-1")
	mgr := NewManager(dbPath, WithClock(steppingClock()))
	if _, err := mgr.CreateBackup(); err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	_ = os.WriteFile(filepath.Join(mgr.GetBackupDir(), "notes.txt"), []byte("x"), 0600)
	_ = os.Mkdir(filepath.Join(mgr.GetBackupDir(), "moldtrack-20250101-0000.db"), 0700)

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 1 || backups[0].Size == 0 {
		t.Errorf("expected exactly one non-empty backup, got %+v", backups)
	}
}

func TestListBackupsMissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "moldtrack.db"))
	backups, err := mgr.ListBackups()
	if err != nil || len(backups) != 0 {
		t.Errorf("ListBackups() = %v, %v", backups, err)
	}
}

func TestVerifyBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	if err := verifyBackup(dbPath); err != nil {
		t.Errorf("moldtrack database should verify, got %v", err)
	}

	foreign := filepath.Join(t.TempDir(), "other.db")
	db, _ := sql.Open("sqlite", foreign)
	_, _ = db.Exec("CREATE TABLE notes (id INTEGER)")
	db.Close()
	if err := verifyBackup(foreign); err == nil {
		t.Error("a database without the moldtrack schema should not verify")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.db")
	_ = os.WriteFile(garbage, []byte("this is not sqlite"), 0600)
	if err := verifyBackup(garbage); err == nil {
		t.Error("a non-database file should not verify")
	}
}
