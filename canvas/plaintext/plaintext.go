/*
Package plaintext renders layout.Canvas drawing into a character grid.

PURPOSE:
  Development and test stand-in for a real PDF canvas, in the same spirit
  as the ":memory:" store: fully deterministic, no graphics dependency,
  and the output is a readable multi-page text dump in which table
  structure, merged blocks and repeated headers are visible to the eye
  and assertable in tests.

METRICS:
  Text width is a pure function of character count and font size, so the
  greedy wrapper behaves identically on every run and platform.
*/
package plaintext

import (
	"bytes"
	"fmt"
)

// grid cell geometry, in page units per character cell
const (
	cellWidth  = 5.0
	cellHeight = 5.0
)

// Canvas implements layout.Canvas plus Bytes() for the finished document.
type Canvas struct {
	bodyWidth  float64
	bodyHeight float64

	pages []*page
	cur   *page
}

type page struct {
	cols, rows int
	cells      [][]rune
}

// New creates a canvas with the given page body size in page units.
func New(bodyWidth, bodyHeight float64) *Canvas {
	c := &Canvas{bodyWidth: bodyWidth, bodyHeight: bodyHeight}
	c.StartNewPage()
	return c
}

func newPage(cols, rows int) *page {
	cells := make([][]rune, rows)
	for i := range cells {
		row := make([]rune, cols)
		for j := range row {
			row[j] = ' '
		}
		cells[i] = row
	}
	return &page{cols: cols, rows: rows, cells: cells}
}

// =============================================================================
// layout.Canvas implementation
// =============================================================================

// MeasureTextWidth reports a deterministic width: character count scaled by
// font size. Good enough for wrapping; exact metrics belong to a real canvas.
func (c *Canvas) MeasureTextWidth(text, _ string, size float64) float64 {
	return float64(len([]rune(text))) * size * 0.55
}

// SetFont is a no-op; the grid has one font.
func (c *Canvas) SetFont(_ string, _ float64) {}

// DrawText writes text with its baseline at (x, y). Content past the right
// or bottom edge is clipped by the grid, which is exactly the "forced
// overflow" a real canvas would show as ink outside the page.
func (c *Canvas) DrawText(x, y float64, text string) {
	row := c.rowAt(y)
	col := c.colAt(x)
	for i, r := range []rune(text) {
		c.put(row, col+i, r)
	}
}

// DrawLine supports the axis-aligned lines the table engine draws; anything
// diagonal is ignored.
func (c *Canvas) DrawLine(x1, y1, x2, y2 float64) {
	switch {
	case y1 == y2:
		row := c.rowAt(y1)
		for col := c.colAt(min(x1, x2)); col <= c.colAt(max(x1, x2)); col++ {
			c.merge(row, col, '-')
		}
	case x1 == x2:
		col := c.colAt(x1)
		for row := c.rowAt(min(y1, y2)); row <= c.rowAt(max(y1, y2)); row++ {
			c.merge(row, col, '|')
		}
	}
}

// DrawRect draws the rectangle outline; fill shades the interior.
func (c *Canvas) DrawRect(x, y, w, h float64, fill bool) {
	if fill {
		for row := c.rowAt(y); row <= c.rowAt(y+h); row++ {
			for col := c.colAt(x); col <= c.colAt(x+w); col++ {
				if c.at(row, col) == ' ' {
					c.put(row, col, '░')
				}
			}
		}
	}
	c.DrawLine(x, y, x+w, y)
	c.DrawLine(x, y+h, x+w, y+h)
	c.DrawLine(x, y, x, y+h)
	c.DrawLine(x+w, y, x+w, y+h)
}

func (c *Canvas) StartNewPage() {
	p := newPage(int(c.bodyWidth/cellWidth)+1, int(c.bodyHeight/cellHeight)+1)
	c.pages = append(c.pages, p)
	c.cur = p
}

func (c *Canvas) PageBodyWidth() float64  { return c.bodyWidth }
func (c *Canvas) PageBodyHeight() float64 { return c.bodyHeight }

// =============================================================================
// OUTPUT
// =============================================================================

// PageCount returns the number of pages drawn so far.
func (c *Canvas) PageCount() int { return len(c.pages) }

// Bytes serializes all pages into the finished document byte stream.
func (c *Canvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	for i, p := range c.pages {
		fmt.Fprintf(&buf, "=== page %d of %d ===\n", i+1, len(c.pages))
		for _, row := range p.cells {
			line := bytes.TrimRight([]byte(string(row)), " ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// =============================================================================
// GRID HELPERS
// =============================================================================

func (c *Canvas) rowAt(y float64) int { return int(y / cellHeight) }
func (c *Canvas) colAt(x float64) int { return int(x / cellWidth) }

func (c *Canvas) put(row, col int, r rune) {
	if row < 0 || row >= c.cur.rows || col < 0 || col >= c.cur.cols {
		return // overflow past the page edge: clipped, not an error
	}
	c.cur.cells[row][col] = r
}

func (c *Canvas) at(row, col int) rune {
	if row < 0 || row >= c.cur.rows || col < 0 || col >= c.cur.cols {
		return ' '
	}
	return c.cur.cells[row][col]
}

// merge combines line strokes so crossings render as '+'.
func (c *Canvas) merge(row, col int, r rune) {
	cur := c.at(row, col)
	if (cur == '-' && r == '|') || (cur == '|' && r == '-') || cur == '+' {
		c.put(row, col, '+')
		return
	}
	if cur == ' ' || cur == '░' || cur == '-' || cur == '|' {
		c.put(row, col, r)
	}
}
