package main

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatGrid renders cells as a column-aligned text table under a title:
// a header row labeling columns C1..Cn, a label R1..Rm per row, and each
// column as wide as its widest entry (header included). Inspection aid,
// the exact glyphs are not load-bearing.
func FormatGrid(cells [][]string, title string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(cells) == 0 {
		return b.String()
	}

	cols := len(cells[0])

	labelWidth := utf8.RuneCountInString(fmt.Sprintf("R%d", len(cells)))
	widths := make([]int, cols)
	for c := range widths {
		widths[c] = utf8.RuneCountInString(fmt.Sprintf("C%d", c+1))
		for _, row := range cells {
			if w := utf8.RuneCountInString(row[c]); w > widths[c] {
				widths[c] = w
			}
		}
	}

	b.WriteString(pad("", labelWidth))
	for c := range cols {
		b.WriteString("  ")
		b.WriteString(pad(fmt.Sprintf("C%d", c+1), widths[c]))
	}
	b.WriteString("\n")

	for r, row := range cells {
		b.WriteString(pad(fmt.Sprintf("R%d", r+1), labelWidth))
		for c, cell := range row {
			b.WriteString("  ")
			b.WriteString(pad(cell, widths[c]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// pad right-pads s with spaces to width runes. Rune count, not bytes: the
// null marker and accented terms are multi-byte.
func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
