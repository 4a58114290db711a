package printing

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/infrastructure/storage"
	"github.com/erp/billhub/internal/infrastructure/telemetry"
)

const (
	defaultKeyPrefix = "bills"
	pdfContentType   = "application/pdf"
	keyTimeLayout    = "20060102T150405.000Z"
)

// BillExporter renders a bill snapshot to PDF and stores it
type BillExporter struct {
	renderer      PDFRenderer
	store         storage.ObjectStore
	statement     *StatementTemplate
	keyPrefix     string
	urlExpiration time.Duration
	renderTimeout time.Duration
	logger        *zap.Logger
}

// BillExporterOption configures a BillExporter
type BillExporterOption func(*BillExporter)

// WithKeyPrefix sets the first segment of storage keys
func WithKeyPrefix(prefix string) BillExporterOption {
	return func(e *BillExporter) {
		if p := strings.Trim(prefix, "/"); p != "" {
			e.keyPrefix = p
		}
	}
}

// WithURLExpiration sets how long download links stay valid
func WithURLExpiration(d time.Duration) BillExporterOption {
	return func(e *BillExporter) { e.urlExpiration = d }
}

// WithRenderTimeout bounds each PDF rendering
func WithRenderTimeout(d time.Duration) BillExporterOption {
	return func(e *BillExporter) { e.renderTimeout = d }
}

// WithStatementTemplate replaces the default English statement
func WithStatementTemplate(st *StatementTemplate) BillExporterOption {
	return func(e *BillExporter) {
		if st != nil {
			e.statement = st
		}
	}
}

// WithExporterLogger sets the logger
func WithExporterLogger(l *zap.Logger) BillExporterOption {
	return func(e *BillExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewBillExporter creates a BillExporter
func NewBillExporter(renderer PDFRenderer, store storage.ObjectStore, opts ...BillExporterOption) *BillExporter {
	e := &BillExporter{
		renderer:  renderer,
		store:     store,
		keyPrefix: defaultKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.statement == nil {
		// The built-in template always parses
		e.statement, _ = NewStatementTemplate("en", time.UTC)
	}
	return e
}

// StorageKey returns where the statement of snap is stored:
// <prefix>/<bill_id>/<export time>.pdf
func (e *BillExporter) StorageKey(snap appbill.BillSnapshot) string {
	return path.Join(e.keyPrefix, snap.BillID.String(), snap.ExportTime.UTC().Format(keyTimeLayout)+".pdf")
}

// Export renders, uploads and presigns the statement of one bill
func (e *BillExporter) Export(ctx context.Context, snap appbill.BillSnapshot) (*appbill.ExportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "printing.export")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillID, snap.BillID.String(),
		telemetry.SpanAttrItemCount, len(snap.Items),
	)

	html, err := e.statement.Render(snap)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rendered, err := e.renderer.Render(ctx, &RenderRequest{
		HTML:       html,
		PaperSize:  PaperA4,
		Landscape:  true,
		Margins:    DefaultMargins(),
		Title:      e.statement.Title(snap),
		FooterHTML: pageNumberFooter,
		Timeout:    e.renderTimeout,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, asRenderError(ErrCodeRenderFailed, "failed to render statement", err)
	}

	key := e.StorageKey(snap)
	if err := e.store.Upload(ctx, key, rendered.PDFData, pdfContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to upload statement", err)
	}

	url, expiresAt, err := e.store.GenerateDownloadURL(ctx, key, e.urlExpiration)
	if err != nil {
		telemetry.RecordError(span, err)
		if delErr := e.store.DeleteObject(context.WithoutCancel(ctx), key); delErr != nil {
			e.logger.Warn("failed to remove orphaned statement", zap.String("key", key), zap.Error(delErr))
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to presign statement", err)
	}

	e.logger.Info("statement exported",
		zap.String("bill_id", snap.BillID.String()),
		zap.String("key", key),
		zap.Int("pages", rendered.PageCount),
		zap.Int("bytes", len(rendered.PDFData)))

	return &appbill.ExportResult{
		URL:        url,
		StorageKey: key,
		ExpiresAt:  &expiresAt,
		PageCount:  rendered.PageCount,
	}, nil
}

func asRenderError(code, message string, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return NewRenderError(code, message, err)
}

const pageNumberFooter = `<div style="font-size:8px;width:100%;text-align:center;">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`

var _ appbill.Exporter = (*BillExporter)(nil)
