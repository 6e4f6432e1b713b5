package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
)

const testPassword = "testpassword123"

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir, WithWorkFactor(10))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store, dir
}

func TestSealUnsealRoundtrip(t *testing.T) {
	store, dir := newTestStorage(t)

	original := []byte(`{"by_org":{}}`)
	if err := store.WriteFile("dashboard-data.json", original); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := store.Seal(testPassword); err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}
	if !store.IsSealed() {
		t.Error("Expected IsSealed() to return true")
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "dashboard-data.json"))
	if !isSealed(raw) {
		t.Error("File should be sealed on disk")
	}

	read, err := store.ReadFile("dashboard-data.json")
	if err != nil {
		t.Fatalf("Failed to read sealed file: %v", err)
	}
	if string(read) != string(original) {
		t.Errorf("Content mismatch after seal: got %q, want %q", read, original)
	}

	store.Lock()
	if _, err := store.ReadFile("dashboard-data.json"); !errors.Is(err, ErrLocked) {
		t.Errorf("ReadFile while locked = %v, want ErrLocked", err)
	}
	if err := store.Unlock(testPassword); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}

	if err := store.Unseal(testPassword); err != nil {
		t.Fatalf("Failed to unseal: %v", err)
	}
	if store.IsSealed() {
		t.Error("Expected IsSealed() to return false after unseal")
	}

	raw, _ = os.ReadFile(filepath.Join(dir, "dashboard-data.json"))
	if isSealed(raw) || string(raw) != string(original) {
		t.Errorf("Raw content after unseal = %q, want %q", raw, original)
	}
}

func TestSealedDirectoryReopens(t *testing.T) {
	store, dir := newTestStorage(t)
	store.WriteFile("metadata.json", []byte(`{"organizations":[]}`))
	if err := store.Seal(testPassword); err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	if !reopened.IsSealed() || reopened.IsUnlocked() {
		t.Fatalf("reopened sealed=%v unlocked=%v, want sealed and locked", reopened.IsSealed(), reopened.IsUnlocked())
	}
	if err := reopened.Unlock(testPassword); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	if _, err := reopened.ReadFile("metadata.json"); err != nil {
		t.Errorf("ReadFile after unlock: %v", err)
	}
}

func TestWrongPassword(t *testing.T) {
	store, _ := newTestStorage(t)
	store.WriteFile("metadata.json", []byte(`{}`))

	if err := store.Seal("correctpassword"); err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}
	store.Lock()

	if err := store.Unlock("wrongpassword"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("Unlock with wrong password = %v, want ErrBadPassword", err)
	}
	if err := store.Unseal("wrongpassword"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("Unseal with wrong password = %v, want ErrBadPassword", err)
	}
}

func TestOpenDataWrongPassword(t *testing.T) {
	recipient, err := age.NewScryptRecipient(testPassword)
	if err != nil {
		t.Fatalf("NewScryptRecipient: %v", err)
	}
	recipient.SetWorkFactor(10)
	sealed, err := sealData([]byte(`{"by_org":{}}`), recipient)
	if err != nil {
		t.Fatalf("sealData: %v", err)
	}
	if !isSealed(sealed) || isSealed([]byte(`{"by_org":{}}`)) {
		t.Error("isSealed should recognise only age output")
	}

	wrong, err := age.NewScryptIdentity("another password")
	if err != nil {
		t.Fatalf("NewScryptIdentity: %v", err)
	}
	if _, err := openData(sealed, wrong); !errors.Is(err, ErrBadPassword) {
		t.Errorf("openData with another password = %v, want ErrBadPassword", err)
	}

	right, _ := age.NewScryptIdentity(testPassword)
	if got, err := openData(sealed, right); err != nil || string(got) != `{"by_org":{}}` {
		t.Errorf("openData = %q, %v", got, err)
	}
}

func TestPasswordTooShort(t *testing.T) {
	store, _ := newTestStorage(t)

	if err := store.Seal("short"); err == nil {
		t.Error("Expected error for short password")
	}
	if store.IsSealed() {
		t.Error("Storage should stay unsealed")
	}
}

func TestNewFilesSealed(t *testing.T) {
	store, dir := newTestStorage(t)

	if err := store.Seal(testPassword); err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	content := []byte("organization-a")
	if err := store.WriteFile("kv/active_org", content); err != nil {
		t.Fatalf("Failed to write new file: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "kv", "active_org"))
	if !isSealed(raw) {
		t.Error("New file should be sealed on disk")
	}

	read, err := store.ReadFile("kv/active_org")
	if err != nil {
		t.Fatalf("Failed to read new file: %v", err)
	}
	if string(read) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", read, content)
	}

	store.Lock()
	if err := store.WriteFile("kv/active_org", content); !errors.Is(err, ErrLocked) {
		t.Errorf("WriteFile while locked = %v, want ErrLocked", err)
	}
}

func TestListAndExists(t *testing.T) {
	store, _ := newTestStorage(t)
	store.WriteFile("metadata.json", []byte(`{}`))
	store.WriteFile("dashboard-data.json.gz", []byte{0x1f, 0x8b})
	store.Seal(testPassword)

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"dashboard-data.json.gz", "metadata.json"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if !store.Exists("metadata.json") {
		t.Error("Exists(metadata.json) = false")
	}
	if store.Exists("missing.json") {
		t.Error("Exists(missing.json) = true")
	}
}

func TestPathEscape(t *testing.T) {
	store, _ := newTestStorage(t)

	if _, err := store.ReadFile("../outside.json"); err == nil {
		t.Error("Expected error for path outside root")
	}
	if err := store.WriteFile("../../outside.json", []byte("x")); err == nil {
		t.Error("Expected error for write outside root")
	}
}
