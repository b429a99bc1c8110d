package main

import "time"

// Theme keys accepted in a generation request. The main diagonal runs
// top-left to bottom-right (r == c); the anti diagonal is the set of
// cells where r+c == rows-1, which only matches the geometric diagonal
// on square grids. Non-square grids are accepted as-is.
const (
	ThemeMain = "main"
	ThemeAnti = "anti"
)

const (
	// NullMarker fills cells deliberately left empty.
	NullMarker = "·"
	// EmptyBankMarker fills cells when no category has a single term to
	// draw from.
	EmptyBankMarker = "???"
)

// Grid is a generated word grid. Each cell holds either a term from the
// word bank, the NullMarker, or the EmptyBankMarker.
type Grid struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Rows            int               `json:"rows"`
	Cols            int               `json:"cols"`
	Bank            string            `json:"bank,omitempty"`
	NullProbability float64           `json:"null_probability"`
	Themes          map[string]string `json:"themes,omitempty"`
	Seed            *int64            `json:"seed,omitempty"`
	Cells           [][]string        `json:"cells"`
	CreatedAt       time.Time         `json:"created_at"`
}
