package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splach-coder/dkm-apis/ledger"
	"github.com/splach-coder/dkm-apis/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	return ledger.New(store), store
}

func record(id int, client, date string) ledger.RawRecord {
	return ledger.RawRecord{
		ID:         ledger.RecordID(id),
		Client:     client,
		Date:       date,
		ClientName: client,
		LineItems:  json.RawMessage(`[]`),
	}
}

// =============================================================================
// IDEMPOTENT INGESTION
// =============================================================================

func TestLedger_Ingest_SameIDTwiceInOneBatch(t *testing.T) {
	// GIVEN: a batch containing the same record id twice
	// WHEN: the batch is ingested
	// THEN: exactly one ledger entry and one group membership exist

	led, _ := newTestLedger(t)
	ctx := context.Background()

	result, err := led.Ingest(ctx, []ledger.RawRecord{
		record(101, "ACME", "20251103"),
		record(101, "ACME", "20251103"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, []ledger.RecordID{101}, snap.Groups["ACME_202511"])
}

func TestLedger_Ingest_SameIDAcrossCycles(t *testing.T) {
	// GIVEN: record 101 was ingested in an earlier cycle
	// WHEN: a later cycle receives 101 again
	// THEN: FilterUnseen drops it and re-ingestion is a no-op

	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{record(101, "ACME", "20251103")})
	require.NoError(t, err)

	unseen, err := led.FilterUnseen(ctx, []ledger.RawRecord{
		record(101, "ACME", "20251103"),
		record(102, "ACME", "20251110"),
	})
	require.NoError(t, err)
	require.Len(t, unseen, 1)
	assert.Equal(t, ledger.RecordID(102), unseen[0].ID)

	result, err := led.Ingest(ctx, unseen)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, []ledger.RecordID{101, 102}, snap.Groups["ACME_202511"])
}

func TestLedger_FilterUnseen_DoesNotMutateState(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.FilterUnseen(ctx, []ledger.RawRecord{record(7, "Acme", "20250101")})
	require.NoError(t, err)

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Records, "filtering must not create entries")
}

func TestLedger_Ingest_MalformedRecordSkippedNotBlocking(t *testing.T) {
	// GIVEN: a batch with one record missing its id
	// THEN: the good record lands, the bad one is reported, nothing aborts

	led, _ := newTestLedger(t)
	ctx := context.Background()

	result, err := led.Ingest(ctx, []ledger.RawRecord{
		record(0, "Broken", "20251103"),
		record(103, "ACME", "20251103"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)
	require.Len(t, result.Malformed, 1)
	assert.ErrorIs(t, &result.Malformed[0], ledger.ErrRecordMalformed)
}

// =============================================================================
// GROUPING
// =============================================================================

func TestLedger_Ingest_GroupsByNormalizedClientMonth(t *testing.T) {
	// Records with differently cased client names in the same month share
	// one group; a different month opens a second group.

	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{
		record(101, "ACME", "20251103"),
		record(102, "acme", "20251110"),
		record(103, "ACME", "20251201"),
	})
	require.NoError(t, err)

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{101, 102}, snap.Groups["ACME_202511"])
	assert.Equal(t, []ledger.RecordID{103}, snap.Groups["ACME_202512"])
}

// =============================================================================
// PROCESSED / PENDING DECOUPLING
// =============================================================================

func TestLedger_MarkProcessed_KeepsMembershipPermanent(t *testing.T) {
	// GIVEN: a group with two members, one marked processed
	// THEN: pendingGroups shows only the unprocessed member, while the
	// group's permanent member list keeps its full length

	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{
		record(101, "ACME", "20251103"),
		record(102, "ACME", "20251110"),
	})
	require.NoError(t, err)

	err = led.MarkProcessed(ctx, []ledger.RecordID{101}, map[ledger.GroupKey]string{
		"ACME_202511": "BS-ENEN-ACME.pdf",
	})
	require.NoError(t, err)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	require.Contains(t, pending, ledger.GroupKey("ACME_202511"))
	assert.Equal(t, []ledger.RecordID{102}, pending["ACME_202511"].MemberIDs())

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Groups["ACME_202511"], 2, "membership is an audit trail, not a queue")

	var processed ledger.RecordState
	for _, rec := range snap.Records {
		if rec.ID == 101 {
			processed = rec
		}
	}
	assert.True(t, processed.Processed)
	assert.NotNil(t, processed.ProcessedAt)
	assert.Equal(t, "BS-ENEN-ACME.pdf", processed.ArtifactRef)
}

func TestLedger_PendingGroups_OmitsFullyProcessedGroups(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{record(101, "ACME", "20251103")})
	require.NoError(t, err)

	err = led.MarkProcessed(ctx, []ledger.RecordID{101}, map[ledger.GroupKey]string{
		"ACME_202511": "BS-ENEN-ACME-101.pdf",
	})
	require.NoError(t, err)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedger_GroupRevisitedByLaterRecords(t *testing.T) {
	// A fully processed group becomes pending again when a new record
	// arrives for the same client-month, without losing history.

	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{record(101, "ACME", "20251103")})
	require.NoError(t, err)
	require.NoError(t, led.MarkProcessed(ctx, []ledger.RecordID{101}, nil))

	_, err = led.Ingest(ctx, []ledger.RawRecord{record(102, "ACME", "20251120")})
	require.NoError(t, err)

	pending, err := led.PendingGroups(ctx)
	require.NoError(t, err)
	require.Contains(t, pending, ledger.GroupKey("ACME_202511"))
	assert.Equal(t, []ledger.RecordID{102}, pending["ACME_202511"].MemberIDs())

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.RecordID{101, 102}, snap.Groups["ACME_202511"])
}

// =============================================================================
// BOOTSTRAP AND STORE FAILURES
// =============================================================================

func TestLedger_MissingStateIsEmptyLedger(t *testing.T) {
	led, _ := newTestLedger(t)

	snap, err := led.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Zero(t, snap.Statistics.TotalRecords)
}

func TestLedger_ReadFailureTreatedAsEmpty(t *testing.T) {
	// Deliberate semantics: an unreachable store is indistinguishable from
	// a fresh one. Safe only because ingestion is idempotent by id.

	led, store := newTestLedger(t)
	store.FailReads = fmt.Errorf("storage timeout")

	pending, err := led.PendingGroups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedger_WriteFailureSurfacesAsStoreError(t *testing.T) {
	// Partial persistence must never be silent: a failed write aborts the
	// whole batch with a retryable error.

	led, store := newTestLedger(t)
	store.FailWrites = errors.New("blob write refused")

	_, err := led.Ingest(context.Background(), []ledger.RawRecord{record(101, "ACME", "20251103")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.True(t, ledger.IsRetryable(err))

	var storeErr *ledger.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "write", storeErr.Op)
}

func TestLedger_CorruptStateDocumentTreatedAsEmpty(t *testing.T) {
	led, store := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, ledger.DefaultStateKey, []byte("{not json")))

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
}

// =============================================================================
// STATISTICS
// =============================================================================

func TestLedger_StatisticsTrackCounts(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Ingest(ctx, []ledger.RawRecord{
		record(101, "ACME", "20251103"),
		record(102, "ACME", "20251110"),
		record(103, "Beta", "20251104"),
	})
	require.NoError(t, err)

	require.NoError(t, led.MarkProcessed(ctx, []ledger.RecordID{101, 102}, nil))

	snap, err := led.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Statistics.TotalRecords)
	assert.Equal(t, 1, snap.Statistics.PendingCount)
	assert.Equal(t, 2, snap.Statistics.GeneratedCount)
	assert.Equal(t, 2, snap.Statistics.LastRunProcessed)
	assert.NotNil(t, snap.Statistics.LastRun)
}
