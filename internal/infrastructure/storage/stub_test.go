package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubObjectStorage(t *testing.T) {
	ctx := context.Background()
	s := NewStubObjectStorage("https://files.local/billhub/")
	assert.Equal(t, "https://files.local/billhub", s.BaseURL)

	data := []byte("pdf")
	require.NoError(t, s.Upload(ctx, "bills/1/a.pdf", data, "application/pdf"))
	data[0] = 'x'

	obj, ok := s.Object("bills/1/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf", string(obj.Data))
	assert.Equal(t, "application/pdf", obj.ContentType)

	url, expiresAt, err := s.GenerateDownloadURL(ctx, "bills/1/a.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://files.local/billhub/bills/1/a.pdf?expires="))
	assert.True(t, expiresAt.After(time.Now()))

	require.NoError(t, s.DeleteObject(ctx, "bills/1/a.pdf"))
	_, ok = s.Object("bills/1/a.pdf")
	assert.False(t, ok)

	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.Error(t, err)
	assert.Error(t, s.Upload(ctx, "", nil, ""))
}

func TestNewStubObjectStorage_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/billhub", NewStubObjectStorage("").BaseURL)
}
