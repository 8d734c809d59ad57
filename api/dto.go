/*
dto.go - Request/response shapes for the HTTP surface

PURPOSE:
  Wire types for the bestdoc endpoints. The process request mirrors the
  upstream Logic App payload ("Table1" wrapping the record list); response
  bodies reuse the processor's own JSON shapes so the HTTP layer adds no
  second vocabulary.
*/
package api

import (
	"time"

	"github.com/splach-coder/dkm-apis/ledger"
)

// ProcessRequest is the upstream trigger payload.
type ProcessRequest struct {
	Table1 []ledger.RawRecord `json:"Table1"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// PendingGroupDTO is one group with unprocessed members.
type PendingGroupDTO struct {
	GroupKey    ledger.GroupKey   `json:"client_month_key"`
	MemberIDs   []ledger.RecordID `json:"member_ids"`
	MemberCount int               `json:"member_count"`
}

// PendingResponse lists all groups that still need a document.
type PendingResponse struct {
	Success bool              `json:"success"`
	Groups  []PendingGroupDTO `json:"groups"`
}

// RecordDTO is one ledger entry in the records listing.
type RecordDTO struct {
	ID          ledger.RecordID `json:"internfactuurnummer"`
	GroupKey    ledger.GroupKey `json:"group_key"`
	Client      string          `json:"klant"`
	Date        string          `json:"datum"`
	AddedAt     time.Time       `json:"added_at"`
	Processed   bool            `json:"bestdoc"`
	ProcessedAt *time.Time      `json:"bestdoc_generated_at,omitempty"`
	ArtifactRef string          `json:"bestdoc_filename,omitempty"`
}

// RecordsResponse is the full ledger listing.
type RecordsResponse struct {
	Success    bool              `json:"success"`
	Statistics ledger.Statistics `json:"statistics"`
	Records    []RecordDTO       `json:"records"`
}
