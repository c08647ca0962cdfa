package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// writeConfig writes a YAML config for a sqlite database and the given inverter.
func writeConfig(t *testing.T, inverterURL, dbPath string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
database:
  driver: sqlite3
  path: "` + dbPath + `"
  migrate: true

inverter:
  status_website_url: "` + inverterURL + `/status.html"
  status_user_name: admin
  status_password: admin
  login_website_url: "` + inverterURL + `/login.html"
  login_user_name: admin
  login_password: admin
  request_timeout: 2

logging:
  level: debug
  format: text
  output: stderr
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SOLARPOLLER_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidDatabaseSettings verifies validation failures stop startup.
func TestRun_InvalidDatabaseSettings(t *testing.T) {
	configPath := writeConfig(t, "http://127.0.0.1:1", "")
	t.Setenv("SOLARPOLLER_CONFIG", configPath)

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("SOLARPOLLER_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("SOLARPOLLER_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StoresReadingAndStopsOnInterrupt runs the whole process against a
// fake inverter and a sqlite file, then cancels it like SIGINT would.
func TestRun_StoresReadingAndStopsOnInterrupt(t *testing.T) {
	inverterSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "admin" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `<script>var webdata_now_p = "532";</script>`)
	}))
	defer inverterSrv.Close()

	dbPath := filepath.Join(t.TempDir(), "solar.db")
	t.Setenv("SOLARPOLLER_CONFIG", writeConfig(t, inverterSrv.URL, dbPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	var power int
	for {
		power = readPower(dbPath)
		if power != 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() after interrupt = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if power != 532 {
		t.Errorf("stored power = %d, want 532", power)
	}
}

// readPower returns the first stored reading or 0 when none is visible yet.
func readPower(path string) int {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	var power int
	if err := db.QueryRow("SELECT Power FROM inverterdata LIMIT 1").Scan(&power); err != nil {
		return 0
	}
	return power
}
