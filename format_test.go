package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormatGrid(t *testing.T) {
	cells := [][]string{
		{"chat", "pomme"},
		{NullMarker, "bleu"},
	}

	got := FormatGrid(cells, "Test")
	want := "Test\n" +
		"    C1    C2   \n" +
		"R1  chat  pomme\n" +
		"R2  ·     bleu \n"

	if got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatGridEmpty(t *testing.T) {
	if got := FormatGrid([][]string{}, "Vide"); got != "Vide\n" {
		t.Fatalf("expected title only, got %q", got)
	}
}

// Every column is padded to its widest cell, so all lines after the
// title share the same rune width.
func TestFormatGridAlignment(t *testing.T) {
	cells := GenerateSeeded(6, 4, testBank(), 0.2, nil, 17)

	out := FormatGrid(cells, "Alignement")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected title + header + 6 rows, got %d lines", len(lines))
	}

	width := utf8.RuneCountInString(lines[1])
	for i, line := range lines[1:] {
		if w := utf8.RuneCountInString(line); w != width {
			t.Fatalf("line %d has width %d, want %d", i+1, w, width)
		}
	}
}
