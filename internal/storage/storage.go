package storage

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

const s3Scheme = "s3://"

// Open returns the backend serving location together with the key to use
// for it. s3://bucket/key locations go to S3; anything else is a file path.
func Open(ctx context.Context, location string) (Storage, string, error) {
	if !strings.HasPrefix(location, s3Scheme) {
		s, err := NewFileStorage(ctx, FileConfig{})
		if err != nil {
			return nil, "", err
		}
		return s, location, nil
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(location, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, "", xerrors.Errorf("invalid S3 location %q: expected s3://bucket/key", location)
	}

	s, err := s3Backends.get(ctx, bucket)
	if err != nil {
		return nil, "", err
	}
	return s, key, nil
}

// s3Backends shares one client per bucket, since loading the AWS config and
// building a client on every read is wasteful.
var s3Backends = &s3Cache{
	backends: map[string]Storage{},
}

type s3Cache struct {
	mu       sync.Mutex
	backends map[string]Storage
}

func (c *s3Cache) get(ctx context.Context, bucket string) (Storage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.backends[bucket]; ok {
		return s, nil
	}

	s, err := NewS3Storage(ctx, S3Config{
		Bucket: bucket,
	})
	if err != nil {
		return nil, err
	}
	c.backends[bucket] = s
	return s, nil
}

// Read fetches the object at location from whichever backend serves it.
func Read(ctx context.Context, location string) ([]byte, error) {
	s, _, err := Open(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, location)
}
