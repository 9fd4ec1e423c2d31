package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"woodcore/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return fixed }
	return store
}

func TestStorePutGetHeadList(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "daily/report.json", strings.NewReader(`{"items":[]}`), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"items": "0"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "daily/report.json" || info.Size != 12 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "daily/report.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	head, err := store.Head(ctx, "daily/report.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	got, rc, err := store.Get(ctx, "daily/report.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(body) != `{"items":[]}` || got.ETag != head.ETag || got.Metadata["items"] != "0" {
		t.Fatalf("unexpected get: %+v %q", got, body)
	}
	if !got.LastModified.Equal(time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last modified %v", got.LastModified)
	}
	if _, err := store.Put(ctx, "other.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "daily/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "daily/report.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 2 || all[0].Key != "daily/report.json" || all[1].Key != "other.json" {
		t.Fatalf("expected sorted keys, got %+v", all)
	}
}

func TestStoreMissingKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Head(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "x.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	clean, err := sanitizeKey("a//b/./c.json")
	if err != nil || clean != "a/b/c.json" {
		t.Fatalf("unexpected clean key %q err=%v", clean, err)
	}
}

func TestPresignURL(t *testing.T) {
	store := newTempStore(t)
	url, err := store.PresignURL(context.Background(), "r.json", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "/reports/r.json") {
		t.Fatalf("unexpected url %q err=%v", url, err)
	}
	if _, err := store.PresignURL(context.Background(), "r.json", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	store, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != defaultRoot || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %s %s", store.Root(), store.Driver())
	}
}

func TestPutRespectsCancelledContext(t *testing.T) {
	store := newTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "x.json", strings.NewReader("{}"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
