package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/moamenhredeen/oascov/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	recorder, closer, err := Open(ctx, config.StoreConfig{})
	if err != nil || recorder != nil {
		t.Errorf("Expected no recorder for empty driver, got %v, %v", recorder, err)
	}
	closer.Close()

	recorder, closer, err = Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "r.db")})
	if err != nil {
		t.Fatalf("Open sqlite3 failed: %v", err)
	}
	if _, ok := recorder.(*SQLStore); !ok {
		t.Errorf("Expected SQLStore, got %T", recorder)
	}
	closer.Close()

	recorder, _, err = Open(ctx, config.StoreConfig{Driver: config.DriverHTTP, URL: "http://localhost:8000"})
	if err != nil {
		t.Fatalf("Open http failed: %v", err)
	}
	if _, ok := recorder.(*HTTPStore); !ok {
		t.Errorf("Expected HTTPStore, got %T", recorder)
	}

	if _, _, err := Open(ctx, config.StoreConfig{Driver: "postgres"}); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}
