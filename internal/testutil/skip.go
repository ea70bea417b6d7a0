// Package testutil holds small helpers shared by package tests.
package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips the test if SYNCENGINE_TEST_SKIP_NETWORK is set.
// Use this for tests that bind local sockets, which may not be available
// in sandboxed environments.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv("SYNCENGINE_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: SYNCENGINE_TEST_SKIP_NETWORK is set")
	}
}

// PostgresDSN returns the postgres DSN for store tests, skipping the test
// when SYNCENGINE_TEST_POSTGRES_DSN is not set. The sqlite store covers
// the default test run; postgres coverage is opt-in.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SYNCENGINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping postgres test: SYNCENGINE_TEST_POSTGRES_DSN is not set")
	}
	return dsn
}
