package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"packline/internal/ledger"
	"packline/internal/packaging"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCatalog verifies the SKU catalog parses. A missing catalog passes:
// every SKU then packs with an empty step plan.
func CheckCatalog(path string) Result {
	const name = "SKU catalog"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not present, steps disabled)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	catalog, err := packaging.LoadCatalog(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d SKUs)", path, catalog.Len())}
}

// CheckBindAddress verifies the API bind address is a host:port pair.
func CheckBindAddress(addr string) Result {
	const name = "API bind"

	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q (error: %v)", addr, err)}
	}
	if port == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%q (error: missing port)", addr)}
	}
	if host == "" {
		host = "*"
	}
	return Result{Name: name, Passed: true, Detail: net.JoinHostPort(host, port)}
}

// CheckLedger pings the ledger database and runs its integrity check.
func CheckLedger(ctx context.Context, store *ledger.Store) Result {
	const name = "Ledger"

	if store == nil {
		return Result{Name: name, Detail: "not open"}
	}
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.DBPath, err)}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed)", health.DBPath)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (schema v%d, %d events, %d open attempts)", health.DBPath, health.SchemaVersion, health.TotalEvents, health.OpenAttempts),
	}
}
