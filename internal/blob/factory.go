package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Open selects a Store implementation using environment variables.
//
//	WOODCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	WOODCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./reports)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("WOODCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("WOODCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// PutJSON encodes v as indented JSON and writes it under key.
func PutJSON(ctx context.Context, store Store, key string, v any, metadata map[string]string) (Info, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, bytes.NewReader(raw), PutOptions{ContentType: "application/json", Metadata: metadata})
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, store Store, key string, v any) (Info, error) {
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = rc.Close() }()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return Info{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return info, nil
}
