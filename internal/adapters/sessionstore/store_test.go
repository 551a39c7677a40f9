package sessionstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/devbush/poser/internal/ports"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	loginAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err := store.Save(&ports.StoredSession{
		Email:     "skier@example.com",
		Token:     "tok-123",
		TokenType: "bearer",
		LoginAt:   loginAt,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("session file mode = %o, want 600", perm)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Email != "skier@example.com" || got.Token != "tok-123" || got.TokenType != "bearer" {
		t.Errorf("Load() = %+v", got)
	}
	if !got.LoginAt.Equal(loginAt) {
		t.Errorf("LoginAt = %v, want %v", got.LoginAt, loginAt)
	}
}

func TestFileStore_Clear(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	_ = store.Save(&ports.StoredSession{Email: "a@b.co", Token: "t"})

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got, _ := store.Load(); got != nil {
		t.Error("Load() after Clear should return nil")
	}

	// Clearing twice is fine
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("expected error for corrupt session file")
	}
}

func TestFileStore_EmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"email":"a@b.co","access_token":""}`), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileStore(path).Load()
	if err != nil || got != nil {
		t.Errorf("Load() = %+v, %v; want nil, nil", got, err)
	}
}
