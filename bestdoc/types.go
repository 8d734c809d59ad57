/*
Package bestdoc assembles and renders bestemmingsdocumenten (destination
documents for VAT purposes) from grouped declaration records.

PURPOSE:
  Sits between the ingestion ledger and the layout engine. Takes the raw
  payloads of one client-month group, normalizes them into typed
  declaration data, renders the fixed document format onto a canvas, and
  runs the end-to-end ingest -> group -> render -> mark-processed cycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - DeclarationData: one group, fully parsed and ready to render
  - LineItem:        a declaration line with decimal amounts
  - RenderResult:    the finished document bytes plus its manifest

DESIGN PRINCIPLES:
  1. Precision: monetary values and weights are decimal.Decimal
  2. Tolerance: an unparseable numeric field degrades to its raw string
     for display; it never aborts a page
  3. One document per group, ever: identity and dedup live in the ledger,
     not here

SEE ALSO:
  - transform.go: raw payloads -> DeclarationData
  - document.go:  DeclarationData -> rendered pages
  - processor.go: the full ingestion-and-render cycle
*/
package bestdoc

import (
	"github.com/shopspring/decimal"

	"github.com/splach-coder/dkm-apis/ledger"
)

// =============================================================================
// DECLARATION DATA - One group, parsed and render-ready
// =============================================================================

// ClientInfo is the document addressee, taken from the group's first record
// (ValidateGroupConsistency guarantees the members agree).
type ClientInfo struct {
	Name             string
	Street           string
	PostalCode       string
	City             string
	CountryCode      string
	OperatorIdentity string
	Language         string
}

// RecordInfo is the shared (merged) part of one source record.
type RecordInfo struct {
	ID                   ledger.RecordID
	ProcessInvoiceNumber int
	MRN                  string
	DeclarationID        int
	ExporterName         string
	Reference            string

	// DateShort is DD/MM/YY for the table; DateFull is DD/MM/YYYY.
	DateShort string
	DateFull  string
}

// LineItem is one declaration line, owned by exactly one record.
type LineItem struct {
	Code        string
	Description string
	Sequence    int

	Quantity decimal.Decimal
	NetMass  decimal.Decimal
	Value    decimal.Decimal

	// ValueDisplay is what the table shows: the value with two decimals,
	// or the raw upstream text when it did not parse as a number.
	ValueDisplay string

	SourceRecordID ledger.RecordID
}

// DeclarationData is the complete content of one destination document.
type DeclarationData struct {
	GroupKey ledger.GroupKey
	Client   ClientInfo
	Records  []RecordInfo
	Items    []LineItem
}

// MemberIDs lists the source record ids included in the document.
func (d *DeclarationData) MemberIDs() []ledger.RecordID {
	ids := make([]ledger.RecordID, len(d.Records))
	for i, r := range d.Records {
		ids[i] = r.ID
	}
	return ids
}

// ItemsFor returns the line items of one record in input order.
func (d *DeclarationData) ItemsFor(id ledger.RecordID) []LineItem {
	var items []LineItem
	for _, it := range d.Items {
		if it.SourceRecordID == id {
			items = append(items, it)
		}
	}
	return items
}

// TotalValue sums all line item values.
func (d *DeclarationData) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range d.Items {
		total = total.Add(it.Value)
	}
	return total
}

// =============================================================================
// RENDER RESULT - Finished document plus manifest
// =============================================================================

// Manifest describes a generated document for the caller and the ledger.
type Manifest struct {
	GroupKey        ledger.GroupKey   `json:"group_key"`
	MemberRecordIDs []ledger.RecordID `json:"member_record_ids"`
	PageCount       int               `json:"page_count"`
	LineItemCount   int               `json:"line_item_count"`
	TotalValue      string            `json:"total_value"`
	Client          string            `json:"client"`
	Language        string            `json:"language"`
}

// RenderResult is one rendered document: the byte stream and its manifest.
type RenderResult struct {
	Filename string
	Data     []byte
	Manifest Manifest
}
