package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  file-secret\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file-secret" {
		t.Fatalf("expected file to take precedence, got %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("   "), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	_, err := Load(Source{Name: "api key", File: path})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInlineBeforeEnv(t *testing.T) {
	t.Setenv("TEST_API_KEY", "from-env")

	got, err := Load(Source{Value: " inline ", Env: "TEST_API_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline value, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TEST_API_KEY", " from-env ")

	got, err := Load(Source{Name: "api key", Env: "TEST_API_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("unexpected secret: %q", got)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")

	_, err := Load(Source{Name: "gemini api key", Env: "TEST_API_KEY"})
	if err == nil {
		t.Fatal("expected error when nothing is configured")
	}
	if !strings.Contains(err.Error(), "gemini api key is not configured (set TEST_API_KEY)") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Load(Source{}); err == nil || err.Error() != "secret is not configured" {
		t.Fatalf("unexpected error for empty source: %v", err)
	}
}
