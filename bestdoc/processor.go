/*
processor.go - The end-to-end ingestion-and-render cycle

PURPOSE:
  Orchestrates one stateless invocation of the pipeline:

    filter unseen -> ingest -> pending groups -> render each -> mark processed

  Each invocation stands alone: no in-process state survives between runs,
  and concurrent runs against the same ledger document race exactly as the
  ledger documents (last writer wins).

FAILURE SEMANTICS:
  - Store failures abort the cycle with a retryable error.
  - A malformed record is skipped and left unprocessed for the next cycle;
    it never blocks its batch or its group.
  - A group that fails validation or rendering is reported in the response
    errors and left pending; other groups still complete.
*/
package bestdoc

import (
	"context"
	"encoding/base64"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/splach-coder/dkm-apis/ledger"
)

// =============================================================================
// RESPONSE SHAPE
// =============================================================================

// GeneratedDocument is one rendered artifact in a batch response.
type GeneratedDocument struct {
	GroupKey      ledger.GroupKey `json:"client_month_key"`
	Filename      string          `json:"filename"`
	PayloadBase64 string          `json:"pdf_base64"`
	SizeBytes     int             `json:"size_bytes"`
	Manifest      Manifest        `json:"metadata"`
}

// GroupError reports one group that could not be processed this cycle.
type GroupError struct {
	GroupKey    ledger.GroupKey `json:"client_month_key"`
	Error       string          `json:"error"`
	RecordCount int             `json:"record_count"`
}

// DuplicatePrevention summarizes the idempotency filter for the caller.
type DuplicatePrevention struct {
	TotalReceived int `json:"total_received"`
	SkippedSeen   int `json:"skipped_processed"`
	ActuallyNew   int `json:"actually_processed"`
}

// BatchResponse is the full result of one processing cycle.
type BatchResponse struct {
	Success         bool                `json:"success"`
	RunID           string              `json:"run_id"`
	Timestamp       time.Time           `json:"timestamp"`
	Message         string              `json:"message,omitempty"`
	ProcessedGroups int                 `json:"processed_groups"`
	TotalRecords    int                 `json:"total_records"`
	Documents       []GeneratedDocument `json:"pdfs"`
	Errors          []GroupError        `json:"errors"`
	Malformed       []string            `json:"malformed_records,omitempty"`
	Duplicates      DuplicatePrevention `json:"duplicate_prevention"`
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor wires the ledger and the document renderer into one pipeline.
type Processor struct {
	Ledger   *ledger.Ledger
	Renderer *DocumentRenderer
}

func NewProcessor(led *ledger.Ledger, renderer *DocumentRenderer) *Processor {
	return &Processor{Ledger: led, Renderer: renderer}
}

// Run executes one full cycle for an incoming batch. The error return is
// reserved for store-level failures where the cycle as a whole should be
// retried; per-group and per-record problems are reported in the response.
func (p *Processor) Run(ctx context.Context, incoming []ledger.RawRecord) (*BatchResponse, error) {
	resp := &BatchResponse{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Duplicates: DuplicatePrevention{
			TotalReceived: len(incoming),
		},
	}
	log.Printf("bestdoc: run %s: received %d records", resp.RunID, len(incoming))

	// Step 1: idempotency filter.
	unseen, err := p.Ledger.FilterUnseen(ctx, incoming)
	if err != nil {
		return nil, err
	}
	resp.Duplicates.SkippedSeen = len(incoming) - len(unseen)
	resp.Duplicates.ActuallyNew = len(unseen)

	// Step 2: ingest the new records.
	ingest, err := p.Ledger.Ingest(ctx, unseen)
	if err != nil {
		return nil, err
	}
	for _, m := range ingest.Malformed {
		resp.Malformed = append(resp.Malformed, m.Error())
	}

	// Step 3: which groups still need a document? This deliberately picks
	// up older unprocessed records too, not just this batch.
	pending, err := p.Ledger.PendingGroups(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		resp.Success = true
		resp.Message = "no unprocessed groups"
		return resp, nil
	}

	// Step 4: render one document per group, in stable key order.
	keys := make([]ledger.GroupKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var processedIDs []ledger.RecordID
	artifactByGroup := map[ledger.GroupKey]string{}

	for _, key := range keys {
		group := pending[key]
		resp.TotalRecords += len(group.Members)

		doc, err := p.renderGroup(group)
		if err != nil {
			log.Printf("bestdoc: group %s failed: %v", key, err)
			resp.Errors = append(resp.Errors, GroupError{
				GroupKey:    key,
				Error:       err.Error(),
				RecordCount: len(group.Members),
			})
			continue
		}

		resp.Documents = append(resp.Documents, *doc)
		processedIDs = append(processedIDs, doc.Manifest.MemberRecordIDs...)
		artifactByGroup[key] = doc.Filename
		resp.ProcessedGroups++
	}

	// Step 5: mark everything that made it into a document.
	if len(processedIDs) > 0 {
		if err := p.Ledger.MarkProcessed(ctx, processedIDs, artifactByGroup); err != nil {
			return nil, err
		}
	}

	resp.Success = len(resp.Errors) == 0
	log.Printf("bestdoc: run %s complete: %d/%d groups, %d records processed",
		resp.RunID, resp.ProcessedGroups, len(keys), len(processedIDs))
	return resp, nil
}

// renderGroup validates, transforms and renders one pending group.
// Malformed members are dropped from the document (they stay pending);
// only ids that actually appear in the document are marked processed.
func (p *Processor) renderGroup(group ledger.PendingGroup) (*GeneratedDocument, error) {
	if err := ValidateGroupConsistency(group.Members); err != nil {
		return nil, err
	}

	data, malformed, err := TransformGroup(group.Key, group.Members)
	if err != nil {
		return nil, err
	}
	for _, m := range malformed {
		log.Printf("bestdoc: group %s: leaving record %d pending: %s", group.Key, m.ID, m.Reason)
	}

	result, err := p.Renderer.Render(data)
	if err != nil {
		return nil, err
	}

	return &GeneratedDocument{
		GroupKey:      group.Key,
		Filename:      result.Filename,
		PayloadBase64: base64.StdEncoding.EncodeToString(result.Data),
		SizeBytes:     len(result.Data),
		Manifest:      result.Manifest,
	}, nil
}
