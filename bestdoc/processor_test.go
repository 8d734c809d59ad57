package bestdoc_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splach-coder/dkm-apis/bestdoc"
	"github.com/splach-coder/dkm-apis/canvas/plaintext"
	"github.com/splach-coder/dkm-apis/ledger"
	"github.com/splach-coder/dkm-apis/store/memory"
)

func newTestProcessor(t *testing.T) (*bestdoc.Processor, *ledger.Ledger) {
	t.Helper()
	led := ledger.New(memory.New())
	return bestdoc.NewProcessor(led, newTestRenderer()), led
}

// =============================================================================
// END TO END CYCLE
// =============================================================================

func TestProcessor_Run_GroupsRendersAndMarks(t *testing.T) {
	// GIVEN: two records for the same client in the same month, with
	// differently cased client names and three line items between them
	// WHEN: one cycle runs
	// THEN: one merged document comes out and both records are processed

	p, led := newTestProcessor(t)
	ctx := context.Background()

	recA := rawRecord(101, twoItemsJSON)
	recB := rawRecord(102, `[{"zendtarieflijnnummer": 1, "goederencode": "61091000", "goederenomschrijving": "Cotton t-shirts", "aantal_gewicht": 50, "verkoopwaarde": 400}]`)
	recB.Client = "acme"
	recB.Date = "20251110"

	resp, err := p.Run(ctx, []ledger.RawRecord{recA, recB})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.ProcessedGroups)
	assert.Equal(t, 2, resp.TotalRecords)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 2, resp.Duplicates.ActuallyNew)

	require.Len(t, resp.Documents, 1)
	doc := resp.Documents[0]
	assert.Equal(t, ledger.GroupKey("ACME_202511"), doc.GroupKey)
	assert.Equal(t, "BS-ENEN-ACME.pdf", doc.Filename)
	assert.Equal(t, []ledger.RecordID{101, 102}, doc.Manifest.MemberRecordIDs)
	assert.Equal(t, 3, doc.Manifest.LineItemCount)

	// The payload round-trips through base64.
	raw, err := base64.StdEncoding.DecodeString(doc.PayloadBase64)
	require.NoError(t, err)
	assert.Equal(t, doc.SizeBytes, len(raw))
	assert.Contains(t, string(raw), "ACME TRADING NV")

	// Both records are marked, nothing is pending anymore.
	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	for _, rec := range snap.Records {
		assert.True(t, rec.Processed)
		assert.Equal(t, "BS-ENEN-ACME.pdf", rec.ArtifactRef)
	}
}

func TestProcessor_Run_ResendIsANoOp(t *testing.T) {
	// GIVEN: a completed first cycle
	// WHEN: the same batch arrives again
	// THEN: everything is filtered as seen and no document is generated

	p, _ := newTestProcessor(t)
	ctx := context.Background()

	batch := []ledger.RawRecord{rawRecord(101, twoItemsJSON)}
	_, err := p.Run(ctx, batch)
	require.NoError(t, err)

	resp, err := p.Run(ctx, batch)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "no unprocessed groups", resp.Message)
	assert.Empty(t, resp.Documents)
	assert.Equal(t, 1, resp.Duplicates.TotalReceived)
	assert.Equal(t, 1, resp.Duplicates.SkippedSeen)
	assert.Equal(t, 0, resp.Duplicates.ActuallyNew)
}

func TestProcessor_Run_PicksUpOlderPendingRecords(t *testing.T) {
	// A record left pending by an earlier cycle (here: seeded directly) is
	// rendered by the next cycle even though the new batch is empty.

	p, led := newTestProcessor(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{rawRecord(101, twoItemsJSON)})
	require.NoError(t, err)

	resp, err := p.Run(ctx, nil)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "BS-ENEN-ACME-101.pdf", resp.Documents[0].Filename)
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestProcessor_Run_InconsistentGroupReportedAndLeftPending(t *testing.T) {
	p, led := newTestProcessor(t)
	ctx := context.Background()

	recA := rawRecord(101, twoItemsJSON)
	recB := rawRecord(102, twoItemsJSON)
	recB.ClientName = "Someone Else BV"

	resp, err := p.Run(ctx, []ledger.RawRecord{recA, recB})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ledger.GroupKey("ACME_202511"), resp.Errors[0].GroupKey)
	assert.Equal(t, 2, resp.Errors[0].RecordCount)
	assert.Empty(t, resp.Documents)

	// The failed group stays pending for the next cycle.
	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	assert.Contains(t, pending, ledger.GroupKey("ACME_202511"))
}

func TestProcessor_Run_FailedGroupDoesNotBlockOthers(t *testing.T) {
	// GIVEN: a healthy group next to one whose records cannot transform
	// THEN: the healthy group's document is still generated and marked

	p, led := newTestProcessor(t)
	ctx := context.Background()

	good := rawRecord(101, twoItemsJSON)
	bad := rawRecord(201, `{broken`)
	bad.Client = "Beta"
	bad.ClientName = "Beta BV"

	resp, err := p.Run(ctx, []ledger.RawRecord{good, bad})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, ledger.GroupKey("ACME_202511"), resp.Documents[0].GroupKey)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ledger.GroupKey("BETA_202511"), resp.Errors[0].GroupKey)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	assert.NotContains(t, pending, ledger.GroupKey("ACME_202511"))
	assert.Contains(t, pending, ledger.GroupKey("BETA_202511"))
}

func TestProcessor_Run_MalformedMemberStaysPendingOthersProcess(t *testing.T) {
	// One member of a group has undecodable line items. The document covers
	// only the healthy member; the broken one is excluded from the document
	// and from mark-processed, so a corrected resend picks it up later.

	p, led := newTestProcessor(t)
	ctx := context.Background()

	good := rawRecord(101, twoItemsJSON)
	broken := rawRecord(102, `{broken`)

	resp, err := p.Run(ctx, []ledger.RawRecord{good, broken})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, []ledger.RecordID{101}, resp.Documents[0].Manifest.MemberRecordIDs)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	require.Contains(t, pending, ledger.GroupKey("ACME_202511"))
	assert.Equal(t, []ledger.RecordID{102}, pending["ACME_202511"].MemberIDs())
}

func TestProcessor_Run_RenderFailureReportedAndLeftPending(t *testing.T) {
	led := ledger.New(memory.New())
	p := bestdoc.NewProcessor(led, bestdoc.NewDocumentRenderer(func() bestdoc.DocumentCanvas {
		return &explodingCanvas{Canvas: plaintext.New(600, 500)}
	}))
	ctx := context.Background()

	resp, err := p.Run(ctx, []ledger.RawRecord{rawRecord(101, twoItemsJSON)})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Empty(t, resp.Documents)
	require.Len(t, resp.Errors, 1)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	assert.Contains(t, pending, ledger.GroupKey("ACME_202511"))
}

func TestProcessor_Run_MalformedBatchRecordReported(t *testing.T) {
	p, _ := newTestProcessor(t)

	noID := rawRecord(0, twoItemsJSON)
	resp, err := p.Run(context.Background(), []ledger.RawRecord{noID})
	require.NoError(t, err)
	require.Len(t, resp.Malformed, 1)
	assert.Contains(t, resp.Malformed[0], "INTERNFACTUURNUMMER")
}

func TestProcessor_Run_StoreWriteFailureAbortsCycle(t *testing.T) {
	store := memory.New()
	store.FailWrites = assert.AnError
	led := ledger.New(store)
	p := bestdoc.NewProcessor(led, newTestRenderer())

	_, err := p.Run(context.Background(), []ledger.RawRecord{rawRecord(101, twoItemsJSON)})
	require.Error(t, err)
	assert.True(t, ledger.IsRetryable(err))
}

func TestProcessor_Run_DocumentPerGroupInKeyOrder(t *testing.T) {
	p, _ := newTestProcessor(t)
	ctx := context.Background()

	beta := rawRecord(201, twoItemsJSON)
	beta.Client = "Beta"
	beta.ClientName = "Beta BV"
	acme := rawRecord(101, twoItemsJSON)

	resp, err := p.Run(ctx, []ledger.RawRecord{beta, acme})
	require.NoError(t, err)

	require.Len(t, resp.Documents, 2)
	assert.Equal(t, ledger.GroupKey("ACME_202511"), resp.Documents[0].GroupKey)
	assert.Equal(t, ledger.GroupKey("BETA_202511"), resp.Documents[1].GroupKey)
}
