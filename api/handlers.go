/*
handlers.go - HTTP handlers for the bestdoc pipeline

PURPOSE:
  Thin HTTP layer over the processor and the ledger. Handlers decode,
  delegate and encode; every business rule lives below this package.

ERROR MAPPING:
  - ledger.IsRetryable (store unavailable)  -> 503, caller retries the cycle
  - undecodable request body                -> 400
  - everything else                         -> 500
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/splach-coder/dkm-apis/bestdoc"
	"github.com/splach-coder/dkm-apis/ledger"
)

// Handler owns the HTTP-facing dependencies.
type Handler struct {
	Ledger    *ledger.Ledger
	Processor *bestdoc.Processor
}

func NewHandler(led *ledger.Ledger, proc *bestdoc.Processor) *Handler {
	return &Handler{Ledger: led, Processor: proc}
}

// =============================================================================
// POST /api/bestdoc/process
// =============================================================================

// Process runs one full ingestion-and-render cycle for the posted batch.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.Processor.Run(r.Context(), req.Table1)
	if err != nil {
		log.Printf("api: process cycle failed: %v", err)
		status := http.StatusInternalServerError
		if ledger.IsRetryable(err) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// GET /api/bestdoc/pending
// =============================================================================

// Pending lists the groups that still contain unprocessed records.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Ledger.PendingGroups(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := PendingResponse{Success: true, Groups: []PendingGroupDTO{}}
	for key, group := range pending {
		resp.Groups = append(resp.Groups, PendingGroupDTO{
			GroupKey:    key,
			MemberIDs:   group.MemberIDs(),
			MemberCount: len(group.Members),
		})
	}
	sort.Slice(resp.Groups, func(i, j int) bool { return resp.Groups[i].GroupKey < resp.Groups[j].GroupKey })

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// GET /api/bestdoc/records
// =============================================================================

// Records returns the full ledger listing with statistics.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Ledger.Snapshot(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := RecordsResponse{Success: true, Statistics: snap.Statistics, Records: []RecordDTO{}}
	for _, rec := range snap.Records {
		resp.Records = append(resp.Records, RecordDTO{
			ID:          rec.ID,
			GroupKey:    rec.GroupKey,
			Client:      rec.Client,
			Date:        rec.Date,
			AddedAt:     rec.AddedAt,
			Processed:   rec.Processed,
			ProcessedAt: rec.ProcessedAt,
			ArtifactRef: rec.ArtifactRef,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ledger.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}
