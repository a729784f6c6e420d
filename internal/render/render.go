// Package render draws note cards as PNG images.
//
// Rendering is strictly best effort: callers treat any error as
// non-fatal and degrade to text-only responses. Nothing here is
// retried or cached.
package render

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"github.com/fyrsmithlabs/notesd/internal/notes"
)

const (
	padding    = 16.0
	lineHeight = 18.0
	headerGap  = 10.0
	cardGap    = 12.0

	// maxBodyLines caps the rendered body; longer notes are truncated
	// with an ellipsis line.
	maxBodyLines = 64
)

// palette holds the card background colors, picked per logical key.
var palette = []string{
	"#FFF9C4", // yellow
	"#C8E6C9", // green
	"#BBDEFB", // blue
	"#F8BBD0", // pink
	"#FFE0B2", // orange
	"#D1C4E9", // violet
}

// Renderer draws note cards at a fixed width.
type Renderer struct {
	width int
}

// New creates a renderer. width is the card width in pixels.
func New(width int) *Renderer {
	return &Renderer{width: width}
}

// NoteCard renders a single note as a PNG.
func (r *Renderer) NoteCard(key, text string, createdAt time.Time) ([]byte, error) {
	lines := r.wrap(text)
	height := int(padding*2 + lineHeight + headerGap + float64(len(lines))*lineHeight + lineHeight)

	dc := gg.NewContext(r.width, height)
	dc.SetHexColor(colorFor(key))
	dc.Clear()
	r.drawCard(dc, 0, key, lines, createdAt)

	return encodePNG(dc)
}

// Board renders every group as a stacked column of cards, one card per
// record, newest-first within each group.
func (r *Renderer) Board(groups []notes.Group) ([]byte, error) {
	type card struct {
		key       string
		lines     []string
		createdAt time.Time
	}

	var cards []card
	total := 0.0
	for _, group := range groups {
		for _, rec := range group.Records {
			c := card{key: group.Key, lines: r.wrap(rec.Text), createdAt: rec.CreatedAt}
			cards = append(cards, c)
			total += padding*2 + lineHeight + headerGap + float64(len(c.lines))*lineHeight + lineHeight + cardGap
		}
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	dc := gg.NewContext(r.width, int(total))
	dc.SetHexColor("#FAFAFA")
	dc.Clear()

	y := 0.0
	for _, c := range cards {
		cardHeight := padding*2 + lineHeight + headerGap + float64(len(c.lines))*lineHeight + lineHeight
		dc.SetHexColor(colorFor(c.key))
		dc.DrawRoundedRectangle(0, y, float64(r.width), cardHeight, 8)
		dc.Fill()
		r.drawCard(dc, y, c.key, c.lines, c.createdAt)
		y += cardHeight + cardGap
	}

	return encodePNG(dc)
}

// drawCard draws header, body and footer of one card starting at top.
func (r *Renderer) drawCard(dc *gg.Context, top float64, key string, lines []string, createdAt time.Time) {
	x := padding
	y := top + padding + lineHeight*0.75

	dc.SetHexColor("#424242")
	dc.DrawString(strings.ToUpper(key), x, y)
	y += headerGap

	dc.SetHexColor("#212121")
	for _, line := range lines {
		y += lineHeight
		dc.DrawString(line, x, y)
	}

	y += lineHeight
	dc.SetHexColor("#616161")
	dc.DrawString(createdAt.Format("2006-01-02 15:04"), x, y)
}

// wrap word-wraps the note text to the card's inner width, honoring
// embedded newlines and capping the result at maxBodyLines.
func (r *Renderer) wrap(text string) []string {
	dc := gg.NewContext(1, 1)
	inner := float64(r.width) - padding*2

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, dc.WordWrap(paragraph, inner)...)
	}

	if len(lines) > maxBodyLines {
		lines = append(lines[:maxBodyLines], "…")
	}
	return lines
}

// colorFor deterministically picks a palette color for a logical key.
func colorFor(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
