package db

import (
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The iofs source driver only lists files at the root of the FS it is
// given, so callers must strip the migrations/ prefix before handing the
// embedded FS to the migrator.
func TestMigrationsVisibleToSourceDriver(t *testing.T) {
	sub, err := fs.Sub(MigrationsFS, "migrations")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	drv, err := iofs.New(sub, ".")
	if err != nil {
		t.Fatalf("iofs driver: %v", err)
	}
	first, err := drv.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if first != 1 {
		t.Errorf("first migration version = %d, want 1", first)
	}
}
