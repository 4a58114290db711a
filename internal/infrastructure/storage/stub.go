package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"
)

// StubObjectStorage keeps objects in memory and builds download URLs from a
// base URL. Used in development when no S3 backend is configured.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StubObject
}

// StubObject is a stored object
type StubObject struct {
	Data        []byte
	ContentType string
}

// NewStubObjectStorage creates a StubObjectStorage. An empty baseURL defaults
// to http://localhost:9000/billhub.
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:9000/billhub"
	}
	return &StubObjectStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]StubObject),
	}
}

// Upload stores a copy of data under key
func (s *StubObjectStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StubObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// GenerateDownloadURL returns BaseURL/key with an expires query parameter
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = DefaultPresignExpiration
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": []string{expiresAt.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + key + "?" + q.Encode(), expiresAt, nil
}

// DeleteObject removes key; missing keys are not an error
func (s *StubObjectStorage) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Object returns the object stored under key
func (s *StubObjectStorage) Object(key string) (StubObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}
