/*
document.go - Renders DeclarationData into the fixed document format

PURPOSE:
  Reproduces the bestemmingsdocument page layout: client block top left,
  fiscal representative top right, the VAT declaration title, the notice
  box with the return-by-mail instruction, the signature section, and the
  line item table with merged record blocks flowing across pages.

ATOMICITY:
  Render either returns a complete document or an error. A panic anywhere
  in drawing is recovered into a render error so the caller never receives
  a partially drawn byte stream.
*/
package bestdoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/splach-coder/dkm-apis/layout"
	"github.com/splach-coder/dkm-apis/ledger"
)

// =============================================================================
// CANVAS CONTRACT
// =============================================================================

// DocumentCanvas is the canvas a document is rendered onto, extended with
// access to the finished byte stream. Real PDF canvases are external
// collaborators; canvas/plaintext is the built-in implementation.
type DocumentCanvas interface {
	layout.Canvas
	PageCount() int
	Bytes() ([]byte, error)
}

// =============================================================================
// FIXED TEXTS AND GEOMETRY
// =============================================================================

// Representative is the fiscal representative block drawn top right.
type Representative struct {
	Name    string
	Address string
	VAT     string
}

var defaultRepresentative = Representative{
	Name:    "DKM-customs",
	Address: "Noorderlaan 72- 2030 Antwerpen",
	VAT:     "BE0796538660",
}

const (
	titleLine1 = "Declaration for VAT purposes according to :"
	titleLine2 = "article 138, paragraph 1, directive 2006/112/EC"

	noticeLine1 = "NOT TO BE PAID - DOCUMENT JUST FOR VAT MATTERS"
	noticeLine2 = "PLEASE COMPLETE AND RETURN THIS DECLARATION BY MAIL -->"
	noticeLine3 = "> fiscalrepresenation@dkm-customs.com"
	noticeLine4 = "THANK YOU"

	declarationText = "Declares that the goods imported into Belgium were properly " +
		"transported to the country mentioned on the left. Undersigned therefore " +
		"declares that the acquisition of below mentioned goods will be reported " +
		"in their VAT return according to the law of the member state which the " +
		"VAT identification"
)

// DefaultColumns is the fixed table format: six shared record columns
// followed by three line item columns.
func DefaultColumns() []layout.Column {
	return []layout.Column{
		{Title: "MRN", Width: 70},
		{Title: "ID", Width: 30},
		{Title: "Supplier", Width: 90},
		{Title: "Date", Width: 40},
		{Title: "Reference", Width: 120},
		{Title: "Debet note", Width: 50},
		{Title: "Item", Width: 25},
		{Title: "Commodity", Width: 105},
		{Title: "VAT Value", Width: 50},
	}
}

// DefaultMetrics matches the original page geometry.
func DefaultMetrics() layout.Metrics {
	return layout.Metrics{
		Font:           "Helvetica",
		FontSize:       6.5,
		HeaderFont:     "Helvetica-Bold",
		HeaderFontSize: 7,
		LineHeight:     10,
		CellPadding:    2,
		MinRowHeight:   16,
		HeaderHeight:   18,
		SharedColumns:  6,
	}
}

// =============================================================================
// DOCUMENT RENDERER
// =============================================================================

// DocumentRenderer turns DeclarationData into finished documents. One
// instance is safe for sequential reuse; rendering itself is synchronous
// and single-threaded per invocation.
type DocumentRenderer struct {
	NewCanvas      func() DocumentCanvas
	Columns        []layout.Column
	Metrics        layout.Metrics
	Representative Representative
}

// NewDocumentRenderer creates a renderer with the fixed default format.
func NewDocumentRenderer(newCanvas func() DocumentCanvas) *DocumentRenderer {
	return &DocumentRenderer{
		NewCanvas:      newCanvas,
		Columns:        DefaultColumns(),
		Metrics:        DefaultMetrics(),
		Representative: defaultRepresentative,
	}
}

// Render draws the document for one group and returns the byte stream plus
// manifest. Fails atomically: on any error the caller gets no document.
func (r *DocumentRenderer) Render(data *DeclarationData) (result *RenderResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("render group %s: %v", data.GroupKey, rec)
		}
	}()

	c := r.NewCanvas()
	y := r.drawIntro(c, data)

	table := &layout.Table{
		Columns: r.Columns,
		Metrics: r.Metrics,
		Rows:    r.planRows(c, data),
	}
	renderer := layout.Renderer{TrailingGap: 6}
	_, stats := renderer.DrawTable(c, table, y)

	bytes, err := c.Bytes()
	if err != nil {
		return nil, fmt.Errorf("render group %s: %w", data.GroupKey, err)
	}

	_ = stats // overflow is already logged by the layout engine; non-fatal
	return &RenderResult{
		Filename: Filename(data),
		Data:     bytes,
		Manifest: Manifest{
			GroupKey:        data.GroupKey,
			MemberRecordIDs: data.MemberIDs(),
			PageCount:       c.PageCount(),
			LineItemCount:   len(data.Items),
			TotalValue:      data.TotalValue().StringFixed(2),
			Client:          data.Client.Name,
			Language:        data.Client.Language,
		},
	}, nil
}

// planRows flattens the group into layout rows: shared record columns on
// each record's first row, line items in ascending sequence order.
func (r *DocumentRenderer) planRows(c layout.Canvas, data *DeclarationData) []layout.RenderRow {
	records := make([]layout.PlanRecord, 0, len(data.Records))
	for _, rec := range data.Records {
		plan := layout.PlanRecord{
			Shared: []string{
				rec.MRN,
				strconv.Itoa(rec.DeclarationID),
				rec.ExporterName,
				rec.DateShort,
				strings.ReplaceAll(rec.Reference, "\n", " "),
				strconv.Itoa(rec.ProcessInvoiceNumber),
			},
		}
		for _, item := range data.ItemsFor(rec.ID) {
			plan.Items = append(plan.Items, layout.PlanItem{
				Sequence: item.Sequence,
				Cells: []string{
					strconv.Itoa(item.Sequence),
					commodityCell(item),
					item.ValueDisplay,
				},
			})
		}
		records = append(records, plan)
	}
	return layout.PlanRows(records, r.Columns, r.Metrics, c.MeasureTextWidth)
}

// commodityCell combines code, description and quantity into the commodity
// column, the way the original document shows them.
func commodityCell(item LineItem) string {
	parts := []string{item.Code}
	if item.Description != "" {
		parts = append(parts, item.Description)
	}
	if !item.Quantity.IsZero() {
		parts = append(parts, "Qty: "+item.Quantity.String())
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// INTRO SECTION - Everything above the table, first page only
// =============================================================================

// drawIntro draws the header blocks, title, notice box and signature
// section. Returns the vertical offset where the table starts.
func (r *DocumentRenderer) drawIntro(c DocumentCanvas, data *DeclarationData) float64 {
	width := c.PageBodyWidth()

	// Client block, top left.
	c.SetFont(r.Metrics.HeaderFont, 10)
	c.DrawText(0, 12, strings.ToUpper(data.Client.Name))
	c.SetFont(r.Metrics.Font, 8)
	c.DrawText(0, 24, strings.ToUpper(data.Client.Street))
	c.DrawText(0, 36, data.Client.PostalCode+"    "+strings.ToUpper(data.Client.City))
	c.DrawText(0, 48, data.Client.CountryCode+"  "+data.Client.OperatorIdentity)

	// Fiscal representative, top right.
	repX := width - 180
	c.SetFont(r.Metrics.HeaderFont, 8)
	c.DrawText(repX, 12, r.Representative.Name)
	c.SetFont(r.Metrics.Font, 7)
	c.DrawText(repX, 24, r.Representative.Address)
	c.DrawText(repX, 36, r.Representative.VAT)

	// Title, centered.
	c.SetFont(r.Metrics.HeaderFont, 9)
	c.DrawText(centered(c, width, titleLine1, 9), 66, titleLine1)
	c.SetFont(r.Metrics.Font, 7)
	c.DrawText(centered(c, width, titleLine2, 7), 78, titleLine2)

	// Notice box, left column.
	boxTop, boxWidth, boxHeight := 90.0, width*0.45, 52.0
	c.DrawRect(0, boxTop, boxWidth, boxHeight, true)
	c.SetFont(r.Metrics.Font, 7)
	c.DrawText(4, boxTop+12, noticeLine1)
	c.DrawText(4, boxTop+22, noticeLine2)
	c.DrawText(4, boxTop+32, noticeLine3)
	c.DrawText(4, boxTop+42, noticeLine4)

	// Declaration text and signature fields, right column.
	rightX := boxWidth + 16
	rightWidth := width - rightX
	lines := layout.WrapText(declarationText, rightWidth, r.Metrics.Font, 6.5, c.MeasureTextWidth)
	if len(lines) > 3 {
		lines = lines[:3]
	}
	textY := boxTop + 10.0
	for _, line := range lines {
		c.DrawText(rightX, textY, line)
		textY += 10
	}
	textY += 6
	c.DrawText(rightX, textY, "Name of the undersigned :")
	textY += 12
	c.DrawText(rightX, textY, "function of the undersigned :")
	textY += 12
	c.DrawText(rightX, textY, "Signature :")

	return boxTop + boxHeight + 14
}

func centered(c layout.Canvas, width float64, text string, size float64) float64 {
	w := c.MeasureTextWidth(text, "", size)
	if w >= width {
		return 0
	}
	return (width - w) / 2
}

// =============================================================================
// ARTIFACT NAMING
// =============================================================================

// Filename derives the artifact name: BS-<LANG><LANG>-<CLIENT>.pdf for a
// merged group, with the record id appended for single-record groups. The
// client part reuses the normalized prefix of the group key so filename and
// group identity can never disagree.
func Filename(data *DeclarationData) string {
	lang := strings.ToUpper(data.Client.Language)
	client := clientFromKey(data.GroupKey)

	base := "BS-" + lang + lang + "-" + client
	if len(data.Records) == 1 {
		base += "-" + strconv.Itoa(int(data.Records[0].ID))
	}
	return base + ".pdf"
}

func clientFromKey(key ledger.GroupKey) string {
	s := string(key)
	if i := strings.LastIndex(s, "_"); i >= 0 {
		return s[:i]
	}
	return s
}
