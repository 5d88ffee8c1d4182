package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitializeDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("enrich.workers"); got != 4 {
		t.Errorf("enrich.workers = %d, want 4", got)
	}
	if got := GetInt("enrich.batch-size"); got != 10 {
		t.Errorf("enrich.batch-size = %d, want 10", got)
	}
	if got := GetInt("enrich.rate-limit"); got != 60 {
		t.Errorf("enrich.rate-limit = %d, want 60", got)
	}
	if got := GetFloat("decay.rate"); got != 0.01 {
		t.Errorf("decay.rate = %v, want 0.01", got)
	}
	if got := GetFloat("decay.floor"); got != 0.3 {
		t.Errorf("decay.floor = %v, want 0.3", got)
	}
	if got := GetDuration("resolver.cache-ttl"); got != 24*time.Hour {
		t.Errorf("resolver.cache-ttl = %v, want 24h", got)
	}
	if got := GetInt("snapshot.retention-days"); got != 30 {
		t.Errorf("snapshot.retention-days = %d, want 30", got)
	}
	if !GetBool("snapshot.keep-monthly") {
		t.Error("snapshot.keep-monthly = false, want true")
	}
}

func TestConfigFileDiscoveryWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".brain"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "enrich:\n  workers: 8\ndecay:\n  rate: 0.02\n"
	if err := os.WriteFile(filepath.Join(root, ".brain", "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sub := filepath.Join(root, "People")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Chdir(sub)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("enrich.workers"); got != 8 {
		t.Errorf("enrich.workers = %d, want 8 from config file", got)
	}
	if got := GetFloat("decay.rate"); got != 0.02 {
		t.Errorf("decay.rate = %v, want 0.02 from config file", got)
	}
	// Keys the file omits keep their defaults.
	if got := GetInt("enrich.batch-size"); got != 10 {
		t.Errorf("enrich.batch-size = %d, want default 10", got)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".brain"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".brain", "config.yaml"), []byte("enrich:\n  workers: 8\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Chdir(root)
	t.Setenv("BRAIN_ENRICH_WORKERS", "2")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("enrich.workers"); got != 2 {
		t.Errorf("enrich.workers = %d, want 2 from env", got)
	}
}

func TestRootResolution(t *testing.T) {
	t.Run("env wins", func(t *testing.T) {
		t.Setenv("BRAIN_ROOT", "/srv/brain")
		t.Chdir(t.TempDir())
		if err := Initialize(); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if got := Root(); got != "/srv/brain" {
			t.Errorf("Root() = %q", got)
		}
	})

	t.Run("marker walk-up", func(t *testing.T) {
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, ".brain"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		sub := filepath.Join(root, "Projects")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		t.Chdir(sub)
		if err := Initialize(); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		got, _ := filepath.EvalSymlinks(Root())
		want, _ := filepath.EvalSymlinks(root)
		if got != want {
			t.Errorf("Root() = %q, want %q", got, want)
		}
	})
}

func TestBootstrapSitsBeneathConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".brain"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	bootstrap := "user = \"bootstrap-actor\"\n"
	if err := os.WriteFile(filepath.Join(root, ".brain", "bootstrap.toml"), []byte(bootstrap), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Chdir(root)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("user"); got != "bootstrap-actor" {
		t.Errorf("user = %q, want bootstrap value", got)
	}

	// Env still beats bootstrap.
	t.Setenv("BRAIN_USER", "env-actor")
	if got := GetString("user"); got != "env-actor" {
		t.Errorf("user = %q, want env value", got)
	}
}

func TestActorPriority(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if got := Actor("flag-actor"); got != "flag-actor" {
		t.Errorf("Actor(flag) = %q", got)
	}

	t.Setenv("BRAIN_USER", "env-actor")
	if got := Actor(""); got != "env-actor" {
		t.Errorf("Actor() = %q, want BRAIN_USER", got)
	}

	t.Setenv("BRAIN_USER", "")
	t.Setenv("USER", "shell-actor")
	if got := Actor(""); got != "shell-actor" {
		t.Errorf("Actor() = %q, want $USER", got)
	}

	t.Setenv("USER", "")
	if got := Actor(""); got != "unknown" {
		t.Errorf("Actor() = %q, want unknown", got)
	}
}
