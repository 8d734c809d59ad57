/*
planner.go - Converts grouped records and line items into render rows

PURPOSE:
  A group's document shows one table row per line item, with the rows of
  each source record visually merged: the shared record columns (MRN, id,
  supplier, date, reference, debet note) appear only on the record's first
  row, and a horizontal rule separates records - never the line items
  within one record.

MERGE METADATA:
  Rather than spanned cells, rows carry a GroupStart flag. Keeping rows
  independent is what lets the renderer split a record's rows across pages
  without any special casing; the flag alone decides where boundary rules
  are drawn.
*/
package layout

import "sort"

// Column describes one table column: its header title and width in page
// units.
type Column struct {
	Title string
	Width float64
}

// Metrics is the fixed geometry of the table.
type Metrics struct {
	Font           string
	FontSize       float64
	HeaderFont     string
	HeaderFontSize float64

	LineHeight   float64 // vertical advance per wrapped text line
	CellPadding  float64 // inset on every cell edge
	MinRowHeight float64
	HeaderHeight float64

	// SharedColumns is the number of leading columns that belong to the
	// source record rather than to individual line items. These are the
	// merged columns: blank on continuation rows, separated by rules only
	// at record boundaries.
	SharedColumns int
}

// MaxCellLines caps wrapped text per cell. A fourth line is dropped; the
// reference column would otherwise dominate row height.
const MaxCellLines = 3

// Cell is one table cell, already wrapped to its column width.
type Cell struct {
	Lines []string
}

// RenderRow is one table row derived from a single line item. Ephemeral:
// rows exist only for the duration of a render pass.
type RenderRow struct {
	Cells  []Cell
	Height float64

	// GroupStart marks the first row emitted for a source record. The
	// renderer draws a record-boundary rule above such rows (except when
	// the row sits directly under a header).
	GroupStart bool
}

// PlanRecord is the planner's view of one source record: the values of the
// shared columns plus its line items.
type PlanRecord struct {
	Shared []string
	Items  []PlanItem
}

// PlanItem is one line item: its intra-group ordering number and the values
// of the item columns.
type PlanItem struct {
	Sequence int
	Cells    []string
}

// PlanRows emits one RenderRow per line item, grouped contiguously by source
// record in the order records are supplied, items in ascending Sequence
// order within each record. The first row of a record carries the shared
// column values; subsequent rows carry blanks there. Every cell is wrapped
// to its column width; row height follows the tallest cell.
func PlanRows(records []PlanRecord, cols []Column, m Metrics, measure WidthMeasurer) []RenderRow {
	var rows []RenderRow

	for _, rec := range records {
		items := make([]PlanItem, len(rec.Items))
		copy(items, rec.Items)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })

		for idx, item := range items {
			values := make([]string, len(cols))
			if idx == 0 {
				copy(values, rec.Shared)
			}
			for i, v := range item.Cells {
				col := m.SharedColumns + i
				if col < len(cols) {
					values[col] = v
				}
			}
			rows = append(rows, planRow(values, cols, m, measure, idx == 0))
		}
	}
	return rows
}

func planRow(values []string, cols []Column, m Metrics, measure WidthMeasurer, groupStart bool) RenderRow {
	row := RenderRow{
		Cells:      make([]Cell, len(cols)),
		GroupStart: groupStart,
	}

	maxLines := 1
	for i, col := range cols {
		width := col.Width - 2*m.CellPadding
		lines := WrapText(values[i], width, m.Font, m.FontSize, measure)
		if len(lines) > MaxCellLines {
			lines = lines[:MaxCellLines]
		}
		row.Cells[i] = Cell{Lines: lines}
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}

	row.Height = float64(maxLines)*m.LineHeight + 2*m.CellPadding
	if row.Height < m.MinRowHeight {
		row.Height = m.MinRowHeight
	}
	return row
}
