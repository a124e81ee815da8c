package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "trust.md"), []byte("abcd\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := Open(dir)

	body, err := v.ReadText("trust.md")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if body != "abcd\n" {
		t.Errorf("body = %q", body)
	}

	// Extensionless references resolve to .md notes.
	body, err = v.ReadText("trust")
	if err != nil {
		t.Fatalf("ReadText extensionless: %v", err)
	}
	if body != "abcd\n" {
		t.Errorf("body = %q", body)
	}
}

func TestReadTextNotFound(t *testing.T) {
	v := Open(t.TempDir())
	_, err := v.ReadText("missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	v := Open(t.TempDir())
	if _, err := v.Resolve("../outside.md"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for escaping reference, got %v", err)
	}
}

func TestWatcherFiresAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust.md")
	if err := os.WriteFile(path, []byte("aaaa\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	w, err := NewWatcher([]string{path}, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Give the watch loop a moment, then touch the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("bbbb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire after write")
	}

	cancel()
	<-done
}

func TestVaultWatchResolvesReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust.md")
	if err := os.WriteFile(path, []byte("aaaa\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := Open(dir)
	w, err := v.Watch([]string{"trust"}, func() {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	if got := w.Paths(); len(got) != 1 || got[0] != path {
		t.Errorf("watched paths = %v, want [%s]", got, path)
	}
}

func TestWatcherSkipsAbsentPaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.md")
	if err := os.WriteFile(present, []byte("aaaa\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher([]string{present, filepath.Join(dir, "absent.md"), ""}, func() {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	if got := w.Paths(); len(got) != 1 || got[0] != present {
		t.Errorf("watched paths = %v, want only %s", got, present)
	}
}
