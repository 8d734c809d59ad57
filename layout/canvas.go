/*
Package layout lays variable-height table rows into fixed-size pages.

PURPOSE:
  The destination document is one table of declaration line items, visually
  merged per source record, drawn across as many pages as needed. This
  package owns the geometry: wrapping cell text, planning rows with merge
  metadata, and the fit/split/overflow pagination loop.

WHAT IT DOES NOT OWN:
  Actual drawing primitives. Everything is expressed against the Canvas
  interface below; a real PDF backend is an external collaborator, and
  tests inject fakes. No file in this package imports a graphics library.

SEE ALSO:
  - wrap.go:     greedy word wrap against an injected measurer
  - planner.go:  records + line items -> rows with merge metadata
  - table.go:    the table flowable (height, split)
  - renderer.go: the pagination state machine
*/
package layout

// WidthMeasurer returns the rendered width of text in the given font and
// size, in page units. Injected so wrapping stays testable without any
// canvas dependency.
type WidthMeasurer func(text, font string, size float64) float64

// Canvas is the drawing surface contract the layout engine consumes.
// Coordinates are in page units with the origin at the top-left of the
// page body; y grows downward.
type Canvas interface {
	// MeasureTextWidth reports the width of text in the given font/size.
	MeasureTextWidth(text, font string, size float64) float64

	// SetFont selects the font for subsequent DrawText calls.
	SetFont(font string, size float64)

	// DrawText draws a single line of text with its baseline at (x, y).
	DrawText(x, y float64, text string)

	// DrawLine draws a straight line between two points.
	DrawLine(x1, y1, x2, y2 float64)

	// DrawRect draws a rectangle; filled when fill is true.
	DrawRect(x, y, w, h float64, fill bool)

	// StartNewPage finishes the current page and begins a fresh one.
	StartNewPage()

	// PageBodyWidth is the usable horizontal space per page.
	PageBodyWidth() float64

	// PageBodyHeight is the usable vertical space on a fresh page.
	PageBodyHeight() float64
}
