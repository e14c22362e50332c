package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"brochure.pdf", "j1/brochure.pdf"},
		{"  padded.png  ", "j1/padded.png"},
		{"../../etc/passwd", "j1/passwd"},
		{"nested/dir/file.pdf", "j1/file.pdf"},
		{"", "j1/file"},
		{".", "j1/file"},
	}
	for _, c := range cases {
		if got := Key("j1", c.filename); got != c.want {
			t.Fatalf("Key(j1, %q) = %q, want %q", c.filename, got, c.want)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	key := Key("j1", "art.pdf")
	content := []byte("first version")
	if err := fs.Save(ctx, key, bytes.NewReader(content), int64(len(content)), "application/pdf"); err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := fs.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read back %q, want %q", got, content)
	}

	// Same key overwrites.
	second := []byte("second version")
	if err := fs.Save(ctx, key, bytes.NewReader(second), int64(len(second)), "application/pdf"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	rc, err = fs.Open(ctx, key)
	if err != nil {
		t.Fatalf("open after overwrite: %v", err)
	}
	got, _ = io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, second) {
		t.Fatalf("after overwrite read %q, want %q", got, second)
	}

	if err := fs.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Open(ctx, key); !os.IsNotExist(err) {
		t.Fatalf("open after delete: err = %v, want not-exist", err)
	}
	// Deleting an already-missing blob is fine.
	if err := fs.Delete(ctx, key); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestFileStoreDeleteAll(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	for _, name := range []string{"a.pdf", "b.png"} {
		if err := fs.Save(ctx, Key("j1", name), strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := fs.Save(ctx, Key("j2", "keep.pdf"), strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("save j2 blob: %v", err)
	}

	if err := fs.DeleteAll(ctx, "j1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, err := fs.Open(ctx, Key("j1", "a.pdf")); !os.IsNotExist(err) {
		t.Fatalf("j1 blob survived DeleteAll: err = %v", err)
	}
	if _, err := fs.Open(ctx, Key("j2", "keep.pdf")); err != nil {
		t.Fatalf("j2 blob removed by j1 DeleteAll: %v", err)
	}
	// A job with no stored blobs is not an error.
	if err := fs.DeleteAll(ctx, "j3"); err != nil {
		t.Fatalf("delete all on empty scope: %v", err)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	for _, key := range []string{"../escape", "j1/../../escape", ".."} {
		if err := fs.Save(ctx, key, strings.NewReader("x"), 1, ""); err == nil {
			t.Fatalf("Save accepted escaping key %q", key)
		}
		if _, err := fs.Open(ctx, key); err == nil {
			t.Fatalf("Open accepted escaping key %q", key)
		}
	}
}
