package printing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/billhub/internal/infrastructure/storage"
)

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenderResult), args.Error(1)
}

func (m *MockRenderer) Close() error { return nil }

type failingStore struct {
	*storage.StubObjectStorage
	uploadErr  error
	presignErr error
}

func (f *failingStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	return f.StubObjectStorage.Upload(ctx, key, data, contentType)
}

func (f *failingStore) GenerateDownloadURL(ctx context.Context, key string, d time.Duration) (string, time.Time, error) {
	if f.presignErr != nil {
		return "", time.Time{}, f.presignErr
	}
	return f.StubObjectStorage.GenerateDownloadURL(ctx, key, d)
}

func pdfResult() *RenderResult {
	return &RenderResult{PDFData: []byte("%PDF-1.7 /Type /Page"), PageCount: 1}
}

func TestBillExporter_Export(t *testing.T) {
	renderer := new(MockRenderer)
	store := storage.NewStubObjectStorage("https://files.local")
	exporter := NewBillExporter(renderer, store,
		WithKeyPrefix("/statements/"),
		WithURLExpiration(time.Hour),
		WithRenderTimeout(5*time.Second),
		WithExporterLogger(zaptest.NewLogger(t)),
	)
	snap := sampleSnapshot()

	renderer.On("Render", mock.Anything, mock.MatchedBy(func(req *RenderRequest) bool {
		return req.Landscape &&
			req.PaperSize == PaperA4 &&
			req.Timeout == 5*time.Second &&
			strings.Contains(req.HTML, "apple") &&
			strings.HasSuffix(req.Title, snap.BillID.String())
	})).Return(pdfResult(), nil)

	result, err := exporter.Export(context.Background(), snap)
	require.NoError(t, err)

	wantKey := "statements/" + snap.BillID.String() + "/20240331T180000.000Z.pdf"
	assert.Equal(t, wantKey, result.StorageKey)
	assert.True(t, strings.HasPrefix(result.URL, "https://files.local/"+wantKey+"?expires="))
	require.NotNil(t, result.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *result.ExpiresAt, 5*time.Second)
	assert.Equal(t, 1, result.PageCount)

	obj, ok := store.Object(wantKey)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.ContentType)
	renderer.AssertExpectations(t)
}

func TestBillExporter_DefaultKeyPrefix(t *testing.T) {
	exporter := NewBillExporter(new(MockRenderer), storage.NewStubObjectStorage(""), WithKeyPrefix(""))
	snap := sampleSnapshot()
	assert.Equal(t, "bills/"+snap.BillID.String()+"/20240331T180000.000Z.pdf", exporter.StorageKey(snap))
}

func TestBillExporter_Failures(t *testing.T) {
	snap := sampleSnapshot()

	t.Run("render error keeps its code", func(t *testing.T) {
		renderer := new(MockRenderer)
		renderer.On("Render", mock.Anything, mock.Anything).
			Return(nil, NewRenderError(ErrCodeRenderTimeout, "timed out", context.DeadlineExceeded))

		_, err := NewBillExporter(renderer, storage.NewStubObjectStorage("")).Export(context.Background(), snap)
		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ErrCodeRenderTimeout, re.Code)
	})

	t.Run("plain render error is classified", func(t *testing.T) {
		renderer := new(MockRenderer)
		renderer.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("ws closed"))

		_, err := NewBillExporter(renderer, storage.NewStubObjectStorage("")).Export(context.Background(), snap)
		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ErrCodeRenderFailed, re.Code)
	})

	t.Run("upload failure", func(t *testing.T) {
		renderer := new(MockRenderer)
		renderer.On("Render", mock.Anything, mock.Anything).Return(pdfResult(), nil)
		store := &failingStore{StubObjectStorage: storage.NewStubObjectStorage(""), uploadErr: errors.New("503")}

		_, err := NewBillExporter(renderer, store).Export(context.Background(), snap)
		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ErrCodeStorageFailed, re.Code)
	})

	t.Run("presign failure removes the upload", func(t *testing.T) {
		renderer := new(MockRenderer)
		renderer.On("Render", mock.Anything, mock.Anything).Return(pdfResult(), nil)
		store := &failingStore{StubObjectStorage: storage.NewStubObjectStorage(""), presignErr: errors.New("no creds")}
		exporter := NewBillExporter(renderer, store)

		_, err := exporter.Export(context.Background(), snap)
		require.Error(t, err)
		_, ok := store.Object(exporter.StorageKey(snap))
		assert.False(t, ok)
	})
}
