package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvFallsBackToDevSecret(t *testing.T) {
	t.Setenv(EnvSecret, "")
	t.Setenv(EnvSecretPrevious, "")

	p := FromEnv()
	if string(p.Current()) != devSecret {
		t.Fatalf("expected dev secret fallback, got %q", p.Current())
	}
	if len(p.Accepted()) != 1 {
		t.Fatalf("expected single accepted key, got %d", len(p.Accepted()))
	}
}

func TestFromEnvRotation(t *testing.T) {
	t.Setenv(EnvSecret, "new-secret")
	t.Setenv(EnvSecretPrevious, "old-secret")

	p := FromEnv()
	if string(p.Current()) != "new-secret" {
		t.Fatalf("expected new-secret, got %q", p.Current())
	}

	accepted := p.Accepted()
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted keys, got %d", len(accepted))
	}
	if string(accepted[0]) != "new-secret" {
		t.Errorf("current key must come first, got %q", accepted[0])
	}
	if string(accepted[1]) != "old-secret" {
		t.Errorf("previous key must follow, got %q", accepted[1])
	}
}

func TestStatic(t *testing.T) {
	p := Static([]byte("fixed"))
	if string(p.Current()) != "fixed" {
		t.Fatalf("expected fixed key, got %q", p.Current())
	}
}

func TestFromFileBootstrapsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.key")

	p, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Current()) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(p.Current()))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected key file mode 0600, got %04o", info.Mode().Perm())
	}

	// Second load returns the persisted key, not a fresh one.
	p2, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.Current(), p2.Current()) {
		t.Fatal("reload returned a different key")
	}
}
