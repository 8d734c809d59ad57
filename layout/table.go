/*
table.go - The table flowable: measure, split, draw

PURPOSE:
  A Table is a header plus planned rows that knows its own rendered height
  and can split itself at a height boundary. The renderer treats it as an
  opaque flowable: ask for the height, draw it, or split it into a part
  that fits and a remainder.

SPLIT CONTRACT:
  Split never cuts through a row. The remainder is a full Table again -
  same columns, same header - so the header repeats naturally on every
  continuation page.
*/
package layout

// Table is an ordered set of render rows under a repeated header row.
type Table struct {
	Columns []Column
	Metrics Metrics
	Rows    []RenderRow
}

// Width is the total table width.
func (t *Table) Width() float64 {
	w := 0.0
	for _, c := range t.Columns {
		w += c.Width
	}
	return w
}

// Height is the full rendered height: header plus every row.
func (t *Table) Height() float64 {
	h := t.Metrics.HeaderHeight
	for _, r := range t.Rows {
		h += r.Height
	}
	return h
}

// Split partitions the table at avail height. Returns:
//
//	(t,    nil)  when the whole table fits
//	(fits, rest) when at least one row fits under the header
//	(nil,  t)    when not even one row fits - the caller decides whether
//	             to retry on a fresh page or force overflow
//
// The remainder repeats the header and keeps each row's GroupStart flag, so
// record-boundary semantics survive pagination unchanged.
func (t *Table) Split(avail float64) (*Table, *Table) {
	if t.Height() <= avail {
		return t, nil
	}

	h := t.Metrics.HeaderHeight
	n := 0
	for _, r := range t.Rows {
		if h+r.Height > avail {
			break
		}
		h += r.Height
		n++
	}
	if n == 0 {
		return nil, t
	}
	if n == len(t.Rows) {
		return t, nil
	}

	fits := &Table{Columns: t.Columns, Metrics: t.Metrics, Rows: t.Rows[:n]}
	rest := &Table{Columns: t.Columns, Metrics: t.Metrics, Rows: t.Rows[n:]}
	return fits, rest
}

// Draw renders the header and all rows at (x, y), top-down. The caller is
// responsible for having checked the height; Draw itself never paginates.
func (t *Table) Draw(c Canvas, x, y float64) {
	m := t.Metrics
	top := y

	t.drawHeader(c, x, y)
	y += m.HeaderHeight

	for i, row := range t.Rows {
		// Record boundary rule across the shared columns. The first row of
		// a segment sits directly under the header line and needs none.
		if row.GroupStart && i > 0 {
			c.DrawLine(x, y, x+t.sharedWidth(), y)
		}

		c.SetFont(m.Font, m.FontSize)
		cellX := x
		for col, cell := range row.Cells {
			lineY := y + m.CellPadding + m.LineHeight
			for _, line := range cell.Lines {
				c.DrawText(cellX+m.CellPadding, lineY, line)
				lineY += m.LineHeight
			}
			cellX += t.Columns[col].Width

			// Line items keep a bottom rule on the item columns only; the
			// shared columns stay open inside a record.
			if col >= m.SharedColumns {
				c.DrawLine(cellX-t.Columns[col].Width, y+row.Height, cellX, y+row.Height)
			}
		}
		y += row.Height
	}

	t.drawVerticals(c, x, top, y)
	// Table frame.
	c.DrawRect(x, top, t.Width(), y-top, false)
}

func (t *Table) drawHeader(c Canvas, x, y float64) {
	m := t.Metrics

	c.DrawRect(x, y, t.Width(), m.HeaderHeight, true)
	c.SetFont(m.HeaderFont, m.HeaderFontSize)

	colX := x
	for _, col := range t.Columns {
		c.DrawText(colX+m.CellPadding, y+m.HeaderHeight-m.CellPadding, col.Title)
		colX += col.Width
	}
	c.DrawLine(x, y+m.HeaderHeight, x+t.Width(), y+m.HeaderHeight)
}

// drawVerticals draws the column separators over the full segment height.
func (t *Table) drawVerticals(c Canvas, x, top, bottom float64) {
	colX := x
	for _, col := range t.Columns {
		colX += col.Width
		c.DrawLine(colX, top, colX, bottom)
	}
	c.DrawLine(x, top, x, bottom)
}

func (t *Table) sharedWidth() float64 {
	w := 0.0
	for i := 0; i < t.Metrics.SharedColumns && i < len(t.Columns); i++ {
		w += t.Columns[i].Width
	}
	return w
}
