/*
Package ledger implements the batch ingestion ledger for bestemmingsdocument
generation.

PURPOSE:
  Tracks every declaration record the upstream billing system has ever sent
  us, which client-month group it belongs to, and whether a destination
  document has been generated for it. The ledger is the single source of
  truth that makes ingestion idempotent: an invoice number seen once is
  never ingested again.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord:   The record payload exactly as the upstream source sends it
  - RecordState: A ledger entry - payload plus processing status
  - GroupKey:    Deterministic client+month key (see groupkey.go)
  - Statistics:  Running counters persisted alongside the records

DESIGN PRINCIPLES:
  1. Identity comes from upstream: record ids are never generated here
  2. Membership is permanent: a group's member list is an audit trail,
     never a work queue
  3. Status is separate from membership: "pending" is computed at read
     time by filtering members on Processed (see pending.go)

SEE ALSO:
  - ledger.go:   Ingestion and mark-processed operations
  - pending.go:  Read-side pending-groups projection
  - store.go:    Durable blob store contract
*/
package ledger

import (
	"encoding/json"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// RecordID is the upstream internal invoice number (INTERNFACTUURNUMMER).
// Globally unique for all time; assigned by the billing system, never here.
type RecordID int

// GroupKey identifies a client+month batch, e.g. "EUROFINSNV_202511".
type GroupKey string

// =============================================================================
// RAW RECORD - Ingestion input, upstream field names preserved
// =============================================================================

// RawRecord is one declaration record as delivered by the upstream export.
// Field tags match the source system's column names; LineItems stays opaque
// here and is only parsed at render time (see bestdoc.TransformGroup).
type RawRecord struct {
	ID                   RecordID `json:"INTERNFACTUURNUMMER"`
	ProcessInvoiceNumber int      `json:"PROCESSFACTUURNUMMER"`

	Client               string `json:"KLANT"`
	ClientRelationCode   string `json:"RELATIECODE_KLANT"`
	ClientReference      string `json:"REFERENTIE_KLANT"`
	SupplierRelationCode string `json:"RELATIECODE_LEVERANCIER"`

	// Date is an 8-digit YYYYMMDD string.
	Date string `json:"DATUM"`

	ClientName             string `json:"CLIENT_NAAM"`
	ClientStreet           string `json:"CLIENT_STRAAT_EN_NUMMER"`
	ClientPostalCode       string `json:"CLIENT_POSTCODE"`
	ClientCity             string `json:"CLIENT_STAD"`
	ClientCountryCode      string `json:"CLIENT_LANDCODE"`
	ClientOperatorIdentity string `json:"CLIENT_PLDA_OPERATORIDENTITY"`
	ClientLanguage         string `json:"CLIENT_LANGUAGE"`

	MRN           string `json:"MRN"`
	DeclarationID int    `json:"DECLARATIONID"`
	ExporterName  string `json:"EXPORTERNAME"`

	// LineItems is the serialized line-item list. The upstream export sends
	// it either as a JSON array or as a JSON-encoded string containing an
	// array; both forms are preserved verbatim until render time.
	LineItems json.RawMessage `json:"LINE_ITEMS"`
}

// =============================================================================
// RECORD STATE - One ledger entry
// =============================================================================

// RecordState is a persisted ledger entry: the raw payload plus processing
// status. Entries are created once on first ingestion and mutated only by
// MarkProcessed. Never deleted.
type RecordState struct {
	ID       RecordID `json:"internfactuurnummer"`
	GroupKey GroupKey `json:"group_key"`
	Client   string   `json:"klant"`
	Date     string   `json:"datum"`
	AddedAt  time.Time `json:"added_at"`

	Processed   bool       `json:"bestdoc"`
	ProcessedAt *time.Time `json:"bestdoc_generated_at,omitempty"`
	// ArtifactRef is the filename of the generated document, set by
	// MarkProcessed together with Processed.
	ArtifactRef string `json:"bestdoc_filename,omitempty"`

	Payload RawRecord `json:"payload"`
}

// =============================================================================
// STATISTICS - Running counters persisted with the state document
// =============================================================================

type Statistics struct {
	TotalRecords     int        `json:"total_records"`
	PendingCount     int        `json:"pending_bestdocs"`
	GeneratedCount   int        `json:"generated_bestdocs"`
	LastRun          *time.Time `json:"last_run,omitempty"`
	LastRunProcessed int        `json:"last_run_processed_count"`
}

// =============================================================================
// STATE DOCUMENT - The single serialized blob behind the Store key
// =============================================================================

// stateDocument is the whole ledger as serialized to the durable store.
// Every mutation is a read-modify-write of this one document; there is no
// optimistic concurrency token, so two writers racing on the same key can
// lose updates. That is a known property of this design, not a bug to fix
// here (an implementer wanting real safety adds a version token to Write).
type stateDocument struct {
	Metadata   metadata                 `json:"metadata"`
	Statistics Statistics               `json:"statistics"`
	Records    []RecordState            `json:"records"`
	Groups     map[GroupKey][]RecordID  `json:"groups"`
}

type metadata struct {
	Version      string    `json:"version"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
	Description  string    `json:"description"`
}

const stateVersion = "1.0"

func newStateDocument(now time.Time) *stateDocument {
	return &stateDocument{
		Metadata: metadata{
			Version:     stateVersion,
			Created:     now,
			LastModified: now,
			Description: "Tracks debet notes and their bestemmingsdocument generation status",
		},
		Records: []RecordState{},
		Groups:  map[GroupKey][]RecordID{},
	}
}

// byID builds an index over the records slice. The slice itself stays the
// source of truth so ingestion order is preserved.
func (d *stateDocument) byID() map[RecordID]*RecordState {
	idx := make(map[RecordID]*RecordState, len(d.Records))
	for i := range d.Records {
		idx[d.Records[i].ID] = &d.Records[i]
	}
	return idx
}

func (d *stateDocument) refreshStatistics() {
	pending := 0
	for i := range d.Records {
		if !d.Records[i].Processed {
			pending++
		}
	}
	d.Statistics.TotalRecords = len(d.Records)
	d.Statistics.PendingCount = pending
}

// =============================================================================
// SNAPSHOT - Read-only copy handed to the API layer
// =============================================================================

// Snapshot is a point-in-time copy of the ledger for reporting endpoints.
type Snapshot struct {
	Statistics Statistics
	Records    []RecordState
	Groups     map[GroupKey][]RecordID
}
