/*
renderer.go - Pagination state machine

PURPOSE:
  Draws a table across as many fixed-size pages as needed. The loop is the
  risky part of the whole document pipeline: a row taller than a page, a
  split that makes no progress, or a miscounted height must degrade to a
  visible overflow - never to an infinite loop and never to a silently
  dropped row.

STATE MACHINE (per invocation):
  HasRows: measure the table against the page's remaining height.
    fits entirely        -> draw, done
    split yields a part  -> draw it, new page, remainder becomes the table
    split yields nothing -> if the page already has content: fresh page,
                            retry once; if even a fresh page cannot take a
                            single row: force-draw with overflow and stop

TERMINATION:
  A hard iteration cap of the order of the row count bounds the loop.
  Exceeding it is a rendering defect: the remaining content is force-drawn
  and the loop aborts.
*/
package layout

import "log"

// Renderer paginates tables onto a Canvas. Zero value is usable.
type Renderer struct {
	// TrailingGap is vertical space left under the finished table.
	TrailingGap float64
}

// RenderStats reports what a DrawTable call did.
type RenderStats struct {
	// PagesAdded counts StartNewPage calls made while paginating.
	PagesAdded int
	// RowsDrawn counts rows across all pages; always equals the planned
	// row count on return, forced overflow included.
	RowsDrawn int
	// Overflowed is set when content was force-drawn past page bounds.
	Overflowed bool
}

// DrawTable draws t starting at vertical offset y on the current page and
// returns the offset after the table on whatever page drawing ended on.
// Rendering is synchronous and strictly page-ordered; offsets on page N+1
// depend on what page N consumed.
func (r *Renderer) DrawTable(c Canvas, t *Table, y float64) (float64, RenderStats) {
	var stats RenderStats

	// Every iteration either finishes, draws at least one row, or starts
	// exactly one fresh page before force-drawing; rows+4 covers all of it
	// with room to spare.
	maxIterations := len(t.Rows) + 4

	for iteration := 1; ; iteration++ {
		if iteration > maxIterations {
			// Defensive: the loop invariants above make this unreachable.
			// If it ever fires, rendering is defective - force out the rest
			// instead of spinning.
			log.Printf("layout: pagination exceeded %d iterations, force-drawing %d remaining rows", maxIterations, len(t.Rows))
			t.Draw(c, 0, y)
			stats.RowsDrawn += len(t.Rows)
			stats.Overflowed = true
			return y + t.Height() + r.TrailingGap, stats
		}

		avail := c.PageBodyHeight() - y
		if t.Height() <= avail {
			t.Draw(c, 0, y)
			stats.RowsDrawn += len(t.Rows)
			return y + t.Height() + r.TrailingGap, stats
		}

		fits, rest := t.Split(avail)
		if fits == nil {
			if y > 0 {
				// The page already has content above; give the table a
				// fresh page and try the split once more.
				c.StartNewPage()
				stats.PagesAdded++
				y = 0
				fits, rest = t.Split(c.PageBodyHeight())
			}
			if fits == nil {
				// Even a full fresh page cannot take a single row. Draw it
				// anyway and let it overflow; looping here would never end.
				log.Printf("layout: row exceeds full page height, forcing overflow draw")
				t.Draw(c, 0, y)
				stats.RowsDrawn += len(t.Rows)
				stats.Overflowed = true
				return y + t.Height() + r.TrailingGap, stats
			}
		}

		fits.Draw(c, 0, y)
		stats.RowsDrawn += len(fits.Rows)

		if rest == nil {
			return y + fits.Height() + r.TrailingGap, stats
		}
		c.StartNewPage()
		stats.PagesAdded++
		y = 0
		t = rest
	}
}
