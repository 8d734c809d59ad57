/*
transform.go - Raw group payloads to declaration data

PURPOSE:
  Normalizes the upstream export quirks out of a pending group before
  rendering: YYYYMMDD dates become display dates, CR/LF soup in the
  reference field becomes plain newlines, and the serialized LINE_ITEMS
  blob is parsed with per-field tolerance.

FAILURE SEMANTICS:
  A record whose line items cannot be parsed at all is reported as
  malformed and dropped from this render pass - it stays unprocessed in
  the ledger and is retried next cycle. One bad record never blocks the
  rest of its group. A single bad numeric field inside an item is softer
  still: the item renders with the raw text in the value column.
*/
package bestdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splach-coder/dkm-apis/ledger"
)

// =============================================================================
// GROUP TRANSFORMATION
// =============================================================================

// TransformGroup parses a pending group's members into DeclarationData.
// Client info comes from the first member. Records that fail to parse are
// returned as malformed and excluded from the result (and therefore from
// mark-processed); the error is non-nil only when nothing usable remains.
func TransformGroup(key ledger.GroupKey, members []ledger.RawRecord) (*DeclarationData, []ledger.MalformedRecord, error) {
	if len(members) == 0 {
		return nil, nil, fmt.Errorf("group %s: no records to transform", key)
	}

	first := members[0]
	data := &DeclarationData{
		GroupKey: key,
		Client: ClientInfo{
			Name:             first.ClientName,
			Street:           first.ClientStreet,
			PostalCode:       first.ClientPostalCode,
			City:             first.ClientCity,
			CountryCode:      first.ClientCountryCode,
			OperatorIdentity: first.ClientOperatorIdentity,
			Language:         defaultLanguage(first.ClientLanguage),
		},
	}

	var malformed []ledger.MalformedRecord
	for _, rec := range members {
		items, err := parseLineItems(rec)
		if err != nil {
			log.Printf("bestdoc: record %d has unusable line items: %v", rec.ID, err)
			malformed = append(malformed, ledger.MalformedRecord{
				ID:     rec.ID,
				Reason: fmt.Sprintf("line items: %v", err),
			})
			continue
		}

		short, full := formatRecordDate(rec.Date)
		data.Records = append(data.Records, RecordInfo{
			ID:                   rec.ID,
			ProcessInvoiceNumber: rec.ProcessInvoiceNumber,
			MRN:                  rec.MRN,
			DeclarationID:        rec.DeclarationID,
			ExporterName:         rec.ExporterName,
			Reference:            normalizeReference(rec.ClientReference),
			DateShort:            short,
			DateFull:             full,
		})
		data.Items = append(data.Items, items...)
	}

	if len(data.Records) == 0 {
		return nil, malformed, fmt.Errorf("group %s: all %d records malformed", key, len(members))
	}
	log.Printf("bestdoc: transformed group %s: %d records, %d line items", key, len(data.Records), len(data.Items))
	return data, malformed, nil
}

// ValidateGroupConsistency checks that every member of a group agrees on
// the client identity fields the document header is built from. Returns a
// descriptive error on the first mismatch.
func ValidateGroupConsistency(members []ledger.RawRecord) error {
	if len(members) < 2 {
		return nil
	}
	first := members[0]
	for i, rec := range members[1:] {
		switch {
		case rec.ClientName != first.ClientName:
			return consistencyError(i+1, "CLIENT_NAAM", first.ClientName, rec.ClientName)
		case rec.ClientCountryCode != first.ClientCountryCode:
			return consistencyError(i+1, "CLIENT_LANDCODE", first.ClientCountryCode, rec.ClientCountryCode)
		case rec.ClientLanguage != first.ClientLanguage:
			return consistencyError(i+1, "CLIENT_LANGUAGE", first.ClientLanguage, rec.ClientLanguage)
		case ledger.NormalizeClient(rec.Client) != ledger.NormalizeClient(first.Client):
			// Cosmetic KLANT variation ("Acme NV" vs "ACME-NV") is the
			// upstream norm and already collapsed by the group key; only a
			// normalized mismatch is a real inconsistency.
			return consistencyError(i+1, "KLANT", first.Client, rec.Client)
		}
	}
	return nil
}

func consistencyError(index int, field, want, got string) error {
	return fmt.Errorf("inconsistent %s in group member %d: expected %q, got %q", field, index, want, got)
}

// =============================================================================
// LINE ITEM PARSING
// =============================================================================

// wireLineItem matches one element of the upstream LINE_ITEMS list. Numeric
// fields stay raw so a malformed value degrades per-field instead of
// rejecting the whole item.
type wireLineItem struct {
	Description string          `json:"goederenomschrijving"`
	Code        string          `json:"goederencode"`
	Quantity    json.RawMessage `json:"aantal_gewicht"`
	Value       json.RawMessage `json:"verkoopwaarde"`
	Sequence    json.RawMessage `json:"zendtarieflijnnummer"`
	NetMass     json.RawMessage `json:"netmass"`
}

// parseLineItems decodes a record's LINE_ITEMS payload. The upstream export
// sends either a JSON array or a JSON string containing an array; both are
// accepted. A syntactically broken payload is an error for the whole record.
func parseLineItems(rec ledger.RawRecord) ([]LineItem, error) {
	raw := bytes.TrimSpace(rec.LineItems)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	// String-encoded form: unquote first.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode LINE_ITEMS string: %w", err)
		}
		raw = []byte(inner)
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
	}

	var wire []wireLineItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode LINE_ITEMS array: %w", err)
	}

	items := make([]LineItem, 0, len(wire))
	for i, w := range wire {
		value, display := decodeAmount(w.Value)
		quantity, _ := decodeAmount(w.Quantity)
		netMass, _ := decodeAmount(w.NetMass)

		items = append(items, LineItem{
			Code:           w.Code,
			Description:    w.Description,
			Sequence:       decodeSequence(w.Sequence, i+1),
			Quantity:       quantity,
			NetMass:        netMass,
			Value:          value,
			ValueDisplay:   display,
			SourceRecordID: rec.ID,
		})
	}
	return items, nil
}

// decodeAmount parses a raw JSON value into a decimal plus its display
// string. Unparseable input keeps its raw text for display and counts as
// zero in totals - rendering the best available representation beats
// dropping the row.
func decodeAmount(raw json.RawMessage) (decimal.Decimal, string) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, "0.00"
	}
	text = strings.Trim(text, `"`)

	d, err := decimal.NewFromString(text)
	if err != nil {
		log.Printf("bestdoc: unparseable amount %q, rendering as-is", text)
		return decimal.Zero, text
	}
	return d, d.StringFixed(2)
}

// decodeSequence parses the intra-group ordering number, falling back to
// the item's position so ordering stays total even with bad data.
func decodeSequence(raw json.RawMessage, fallback int) int {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return fallback
	}
	// Upstream sometimes delivers the sequence as a float.
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int(f)
	}
	return fallback
}

// =============================================================================
// FIELD NORMALIZATION
// =============================================================================

// formatRecordDate turns a YYYYMMDD string into (DD/MM/YY, DD/MM/YYYY).
// Anything unparseable degrades to the current date, logged - the document
// still has to go out.
func formatRecordDate(date string) (short, full string) {
	t, err := time.Parse("20060102", date)
	if err != nil {
		log.Printf("bestdoc: could not parse date %q, using current date", date)
		t = time.Now()
	}
	return t.Format("02/01/06"), t.Format("02/01/2006")
}

// normalizeReference collapses CR/LF variants to plain newlines.
func normalizeReference(ref string) string {
	ref = strings.ReplaceAll(ref, "\r\n", "\n")
	return strings.ReplaceAll(ref, "\r", "\n")
}

func defaultLanguage(lang string) string {
	if lang == "" {
		return "EN"
	}
	return lang
}
