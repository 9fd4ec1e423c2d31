package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"

	"woodcore/internal/blob/core"
)

func TestStoreMockedFlow(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "reports/a.json", strings.NewReader(`{"ok":true}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"items": "4"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "reports/a.json" || info.ContentType != "application/json" || info.Size != 11 || info.ETag == "" {
		t.Fatalf("unexpected info %#v", info)
	}
	if info.Metadata["items"] != "4" {
		t.Fatalf("metadata lost: %#v", info.Metadata)
	}
	if _, err := store.Put(ctx, "reports/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "reports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != `{"ok":true}` {
		t.Fatalf("get mismatch: %q", data)
	}
	url, err := store.PresignURL(ctx, "reports/a.json", core.SignedURLOptions{Expiry: 30 * time.Second})
	if err != nil || !strings.Contains(url, "X-Amz-Expires=30") {
		t.Fatalf("presign: %v %s", err, url)
	}
}

func TestStoreMissingKeys(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestStoreListPaginates(t *testing.T) {
	store := newMockWithPageSize(2)
	ctx := context.Background()
	for i := 4; i >= 0; i-- {
		key := fmt.Sprintf("reports/%d.json", i)
		if _, err := store.Put(ctx, key, strings.NewReader("{}"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	if _, err := store.Put(ctx, "elsewhere.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	list, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 items across pages, got %d", len(list))
	}
	for i, info := range list {
		if info.Key != fmt.Sprintf("reports/%d.json", i) {
			t.Fatalf("unexpected order at %d: %s", i, info.Key)
		}
	}
	if empty, err := store.List(ctx, "none/"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, empty)
	}
}

func TestNewAndConfigFromEnv(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://minio.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 || s.Bucket() != "bkt" {
		t.Fatalf("unexpected store %s %s", s.Driver(), s.Bucket())
	}

	t.Setenv("WOODCORE_BLOB_S3_BUCKET", "")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("WOODCORE_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("WOODCORE_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("WOODCORE_BLOB_S3_PATH_STYLE", "TRUE")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Bucket != "env-bucket" || cfg.Region != "eu-west-1" || !cfg.PathStyle {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	if _, err := OpenFromEnv(context.Background()); err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
}

func TestObjectInfoNilFields(t *testing.T) {
	info := objectInfo("k", 10, nil, aws.String(`"etagval"`), map[string]string{"x": "y"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Size != 10 || !info.LastModified.IsZero() {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("plain body should not decode")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("size mismatch should fail")
	}
	if b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected hello, got %q", b)
	}
}

func TestFakeBucketUnsupportedMethod(t *testing.T) {
	rt := &fakeBucket{objects: make(map[string]fakeObject), pageSize: 1}
	req, _ := http.NewRequest(http.MethodPatch, mockEndpoint+"/bucket/key", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %v %v", resp, err)
	}
}
