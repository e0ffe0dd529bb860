package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"packline/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCatalog(t *testing.T) {
	dir := t.TempDir()

	missing := CheckCatalog(filepath.Join(dir, "absent.yaml"))
	if !missing.Passed {
		t.Fatalf("missing catalog should pass, got: %s", missing.Detail)
	}

	good := filepath.Join(dir, "catalog.yaml")
	testsupport.WriteFile(t, good, "skus:\n  lamp-01:\n    title: Lamp\n    steps:\n      - {slot_id: A1, part_id: BASE, title: Base}\n")
	result := CheckCatalog(good)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 SKUs") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	bad := filepath.Join(dir, "bad.yaml")
	testsupport.WriteFile(t, bad, "skus: [not, a, map\n")
	if CheckCatalog(bad).Passed {
		t.Fatal("expected failure for malformed catalog")
	}
}

func TestCheckBindAddress(t *testing.T) {
	if !CheckBindAddress("127.0.0.1:8000").Passed {
		t.Fatal("expected host:port to pass")
	}
	if !CheckBindAddress(":8000").Passed {
		t.Fatal("expected wildcard host to pass")
	}
	if CheckBindAddress("localhost").Passed {
		t.Fatal("expected missing port to fail")
	}
}

func TestCheckLedger(t *testing.T) {
	if CheckLedger(context.Background(), nil).Passed {
		t.Fatal("expected nil store to fail")
	}
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	result := CheckLedger(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || failed[0].Name != "Log directory" {
		t.Fatalf("expected log directory failure, got %+v", failed)
	}
}
