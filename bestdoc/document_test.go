package bestdoc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splach-coder/dkm-apis/bestdoc"
	"github.com/splach-coder/dkm-apis/canvas/plaintext"
	"github.com/splach-coder/dkm-apis/ledger"
)

func newTestRenderer() *bestdoc.DocumentRenderer {
	return bestdoc.NewDocumentRenderer(func() bestdoc.DocumentCanvas {
		return plaintext.New(600, 500)
	})
}

func transformed(t *testing.T, members ...ledger.RawRecord) *bestdoc.DeclarationData {
	t.Helper()
	data, malformed, err := bestdoc.TransformGroup("ACME_202511", members)
	require.NoError(t, err)
	require.Empty(t, malformed)
	return data
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRender_ProducesDocumentWithManifest(t *testing.T) {
	r := newTestRenderer()
	data := transformed(t, rawRecord(101, twoItemsJSON), rawRecord(102, twoItemsJSON))

	result, err := r.Render(data)
	require.NoError(t, err)

	assert.Equal(t, "BS-ENEN-ACME.pdf", result.Filename)
	assert.NotEmpty(t, result.Data)
	assert.Equal(t, ledger.GroupKey("ACME_202511"), result.Manifest.GroupKey)
	assert.Equal(t, []ledger.RecordID{101, 102}, result.Manifest.MemberRecordIDs)
	assert.Equal(t, 4, result.Manifest.LineItemCount)
	assert.Equal(t, "4601.00", result.Manifest.TotalValue)
	assert.GreaterOrEqual(t, result.Manifest.PageCount, 1)
}

func TestRender_DocumentShowsFixedTexts(t *testing.T) {
	r := newTestRenderer()
	data := transformed(t, rawRecord(101, twoItemsJSON))

	result, err := r.Render(data)
	require.NoError(t, err)

	text := string(result.Data)
	assert.Contains(t, text, "ACME TRADING NV")
	assert.Contains(t, text, "DKM-customs")
	assert.Contains(t, text, "NOT TO BE PAID")
	assert.Contains(t, text, "MRN")
	assert.Contains(t, text, "VAT Value")
}

func TestRender_ManyRecordsFlowAcrossPages(t *testing.T) {
	// Enough records to exceed one 500-unit page body. The document grows
	// pages instead of dropping rows; every record id shows up in the table.
	members := make([]ledger.RawRecord, 0, 30)
	for i := 0; i < 30; i++ {
		members = append(members, rawRecord(1000+i, twoItemsJSON))
	}
	data := transformed(t, members...)

	r := newTestRenderer()
	result, err := r.Render(data)
	require.NoError(t, err)

	assert.Greater(t, result.Manifest.PageCount, 1)
	assert.Equal(t, 60, result.Manifest.LineItemCount)
	// The header repeats on every page.
	assert.Equal(t, result.Manifest.PageCount, strings.Count(string(result.Data), "=== page"))
}

func TestRender_PanicRecoveredAsError(t *testing.T) {
	// A drawing panic must never escape as a partial document.
	r := bestdoc.NewDocumentRenderer(func() bestdoc.DocumentCanvas {
		return &explodingCanvas{Canvas: plaintext.New(600, 500)}
	})
	data := transformed(t, rawRecord(101, twoItemsJSON))

	result, err := r.Render(data)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "ACME_202511")
}

// explodingCanvas panics on the first text draw.
type explodingCanvas struct {
	*plaintext.Canvas
}

func (c *explodingCanvas) DrawText(x, y float64, text string) {
	panic("canvas backend failure")
}

// =============================================================================
// ARTIFACT NAMING
// =============================================================================

func TestFilename_SingleRecordCarriesRecordID(t *testing.T) {
	data := transformed(t, rawRecord(101, twoItemsJSON))
	assert.Equal(t, "BS-ENEN-ACME-101.pdf", bestdoc.Filename(data))
}

func TestFilename_MergedGroupOmitsRecordID(t *testing.T) {
	data := transformed(t, rawRecord(101, twoItemsJSON), rawRecord(102, twoItemsJSON))
	assert.Equal(t, "BS-ENEN-ACME.pdf", bestdoc.Filename(data))
}

func TestFilename_UsesClientLanguage(t *testing.T) {
	rec := rawRecord(101, twoItemsJSON)
	rec.ClientLanguage = "FR"
	data := transformed(t, rec)
	assert.Equal(t, "BS-FRFR-ACME-101.pdf", bestdoc.Filename(data))
}
