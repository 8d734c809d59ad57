/*
ledger.go - Idempotent batch ingestion over a single state document

PURPOSE:
  The Ledger guarantees each upstream record is accepted at most once and
  tracks whether a destination document has been generated for it. All
  mutations are read-modify-write of one JSON document in the Store.

CRITICAL INVARIANTS:
  1. IDEMPOTENT: an id already in the ledger is never ingested again
  2. PERMANENT MEMBERSHIP: a group's member list only ever grows;
     MarkProcessed flips status bits, it never removes members
  3. ALL-OR-NOTHING: a batch either lands in the persisted document or
     the caller gets an error - partial persistence is surfaced, not
     swallowed

BOOTSTRAP:
  A missing state document is an empty ledger. A failed read is treated
  the same way, which keeps the first run and every re-run identical but
  means a merely-unavailable store looks like a fresh one. Safe only
  because ingestion is idempotent by id; the trade-off is deliberate and
  documented rather than resolved.

CONCURRENCY:
  Two invocations racing on the same state key can lose updates (second
  writer's snapshot overwrites the first writer's additions). The Store
  contract carries no version token; adding one is an explicit opt-in
  upgrade, not the default behavior reproduced here.

SEE ALSO:
  - pending.go: read-side projection of groups with unprocessed members
  - store.go:   the blob contract this sits on
*/
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultStateKey is the well-known key of the serialized state document.
const DefaultStateKey = "Bestemmingsrapport/bestdoc_state.json"

// Ledger is the durable record registry. One instance per invocation;
// no state is cached between calls.
type Ledger struct {
	store Store
	key   string
	now   func() time.Time
}

// New creates a Ledger over the given store at DefaultStateKey.
func New(store Store) *Ledger {
	return NewWithKey(store, DefaultStateKey)
}

// NewWithKey creates a Ledger bound to a specific state key.
func NewWithKey(store Store, key string) *Ledger {
	return &Ledger{store: store, key: key, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestResult reports what a call to Ingest did with the batch.
type IngestResult struct {
	// Ingested is the number of records newly added to the ledger.
	Ingested int
	// Malformed lists records skipped because required fields were missing.
	// They are not persisted and not marked processed; a corrected resend
	// is ingested normally.
	Malformed []MalformedRecord
}

// FilterUnseen returns the subset of records whose id is not yet in the
// ledger. Pure read: state is never mutated. Records without an id are
// passed through so Ingest can report them as malformed.
func (l *Ledger) FilterUnseen(ctx context.Context, records []RawRecord) ([]RawRecord, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[RecordID]bool, len(doc.Records))
	for i := range doc.Records {
		seen[doc.Records[i].ID] = true
	}

	var unseen []RawRecord
	for _, r := range records {
		if r.ID != 0 && seen[r.ID] {
			log.Printf("ledger: skip record %d, already ingested", r.ID)
			continue
		}
		unseen = append(unseen, r)
	}
	return unseen, nil
}

// Ingest adds every unseen record in the batch to the ledger: a new entry
// with Processed=false and an appended group membership, creating the group
// on first use. The whole batch is persisted with one write; on write
// failure nothing is considered ingested and the error is returned.
func (l *Ledger) Ingest(ctx context.Context, records []RawRecord) (*IngestResult, error) {
	result := &IngestResult{}
	if len(records) == 0 {
		return result, nil
	}

	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[RecordID]bool, len(doc.Records))
	for i := range doc.Records {
		seen[doc.Records[i].ID] = true
	}
	now := l.now()

	for _, r := range records {
		if r.ID == 0 {
			result.Malformed = append(result.Malformed, MalformedRecord{
				ID:     r.ID,
				Reason: "missing INTERNFACTUURNUMMER",
			})
			continue
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		key := DeriveGroupKey(r.Client, r.Date)
		doc.Records = append(doc.Records, RecordState{
			ID:       r.ID,
			GroupKey: key,
			Client:   r.Client,
			Date:     r.Date,
			AddedAt:  now,
			Payload:  r,
		})

		if !containsID(doc.Groups[key], r.ID) {
			doc.Groups[key] = append(doc.Groups[key], r.ID)
		}
		result.Ingested++
		log.Printf("ledger: added record %d to group %s", r.ID, key)
	}

	if result.Ingested == 0 {
		return result, nil
	}

	doc.refreshStatistics()
	if err := l.save(ctx, doc); err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// MARK PROCESSED
// =============================================================================

// MarkProcessed flips the given records to processed and attaches the
// artifact filename generated for their group. Group member lists are left
// untouched: membership is history, status is state.
func (l *Ledger) MarkProcessed(ctx context.Context, ids []RecordID, artifactByGroup map[GroupKey]string) error {
	if len(ids) == 0 {
		return nil
	}

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[RecordID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	now := l.now()
	marked := 0
	for i := range doc.Records {
		rec := &doc.Records[i]
		if !wanted[rec.ID] {
			continue
		}
		rec.Processed = true
		rec.ProcessedAt = &now
		if ref, ok := artifactByGroup[rec.GroupKey]; ok {
			rec.ArtifactRef = ref
		}
		marked++
	}
	if marked < len(wanted) {
		log.Printf("ledger: MarkProcessed matched %d of %d ids", marked, len(wanted))
	}

	doc.Statistics.GeneratedCount += marked
	doc.Statistics.LastRun = &now
	doc.Statistics.LastRunProcessed = marked
	doc.refreshStatistics()

	return l.save(ctx, doc)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot returns a read-only copy of the whole ledger for reporting.
func (l *Ledger) Snapshot(ctx context.Context) (*Snapshot, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]RecordState, len(doc.Records))
	copy(records, doc.Records)
	groups := make(map[GroupKey][]RecordID, len(doc.Groups))
	for k, ids := range doc.Groups {
		groups[k] = append([]RecordID(nil), ids...)
	}
	return &Snapshot{Statistics: doc.Statistics, Records: records, Groups: groups}, nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// load reads and decodes the state document. A missing key is the bootstrap
// case and yields a fresh empty document. A read failure is treated the same
// way - idempotent re-ingestion makes that safe, at the cost of hiding a
// merely-unavailable store behind an empty one. The failure is logged so the
// ambiguity at least leaves a trace.
func (l *Ledger) load(ctx context.Context) (*stateDocument, error) {
	data, err := l.store.Read(ctx, l.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("ledger: state read failed, starting from empty state: %v", err)
		}
		return newStateDocument(l.now()), nil
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("ledger: state document undecodable, starting from empty state: %v", err)
		return newStateDocument(l.now()), nil
	}
	if doc.Groups == nil {
		doc.Groups = map[GroupKey][]RecordID{}
	}
	return &doc, nil
}

// save serializes and writes the whole document back. Write failures wrap
// as StoreError and must reach the caller: a dropped write here would mean
// silent loss of a whole batch.
func (l *Ledger) save(ctx context.Context, doc *stateDocument) error {
	doc.Metadata.LastModified = l.now()
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = stateVersion
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}
	if err := l.store.Write(ctx, l.key, data); err != nil {
		return &StoreError{Op: "write", Key: l.key, Err: err}
	}
	log.Printf("ledger: state saved, %d records, %d groups", len(doc.Records), len(doc.Groups))
	return nil
}

func containsID(ids []RecordID, id RecordID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
