// Package blobstore keeps uploaded document bytes. Metadata lives with the
// documents domain in Postgres; a store only knows keys, sizes and hashes.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Object describes stored bytes.
type Object struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type BlobStore interface {
	// Put stores at most limit bytes from r under key, replacing any
	// previous content. A larger body fails with ErrTooLarge and stores
	// nothing.
	Put(ctx context.Context, key string, r io.Reader, limit int64) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New returns the store named by kind: "memory" or "disk".
func New(kind, dir string) (BlobStore, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "disk":
		return NewDisk(dir)
	}
	return nil, fmt.Errorf("unknown document store %q", kind)
}

// Key builds the storage key for a company's document.
func Key(companyID, id string) string {
	return companyID + "/" + id
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// readLimited reads r fully, failing when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Memory is an in-process store for development and tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, limit int64) (Object, error) {
	if !validKey(key) {
		return Object{}, ErrInvalidKey
	}
	data, err := readLimited(r, limit)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	m.blobs[key] = data
	m.mu.Unlock()
	return Object{Key: key, Size: int64(len(data)), SHA256: digest(data)}, nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
