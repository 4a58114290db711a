package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, defaultScale, r.config.Scale)
	assert.NotNil(t, r.allocCtx)
}

func TestBuildPrintParams_A4Landscape(t *testing.T) {
	r := &ChromedpRenderer{config: ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:      "<p>x</p>",
		PaperSize: PaperA4,
		Landscape: true,
		Margins:   DefaultMargins(),
	})

	assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
	assert.InDelta(t, mmToInches(10), params.marginLeft, 0.001)
	assert.True(t, params.landscape)
	assert.True(t, params.printBackground)
	assert.False(t, params.displayHeaderFooter)
}

func TestBuildPrintParams_Footer(t *testing.T) {
	r := &ChromedpRenderer{config: ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:       "<p>x</p>",
		PaperSize:  PaperA5,
		FooterHTML: pageNumberFooter,
	})

	assert.True(t, params.displayHeaderFooter)
	assert.Equal(t, pageNumberFooter, params.footerTemplate)
	assert.NotEmpty(t, params.headerTemplate)
	assert.InDelta(t, mmToInches(10), params.marginBottom, 0.001)
}

func TestBuildCompleteHTML(t *testing.T) {
	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, buildCompleteHTML(&RenderRequest{HTML: full}))

	wrapped := buildCompleteHTML(&RenderRequest{HTML: "<p>x</p>", Title: "A & B"})
	assert.Contains(t, wrapped, "<!DOCTYPE html>")
	assert.Contains(t, wrapped, "<title>A &amp; B</title>")
	assert.Contains(t, wrapped, "<body><p>x</p></body>")
}

func TestChromedpRenderer_RejectsInvalidRequests(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{})
	require.NoError(t, err)
	defer r.Close()

	tests := []struct {
		name string
		req  *RenderRequest
		code string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"empty html", &RenderRequest{HTML: "  ", PaperSize: PaperA4}, ErrCodeInvalidHTML},
		{"no paper", &RenderRequest{HTML: "<p>x</p>"}, ErrCodeInvalidPaperSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)
			var re *RenderError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.code, re.Code)
		})
	}
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.7")))
	pdf := []byte("<< /Type /Pages >> << /Type /Page >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 3, estimatePageCount(pdf))
}

func TestRenderError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRenderError(ErrCodeRenderFailed, "render failed", cause)
	assert.Equal(t, "render failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "plain", NewRenderError(ErrCodeInvalidHTML, "plain", nil).Error())
}
