package main

import (
	"math/rand"
	"sort"
	"time"
)

// Generate fills a rows×cols grid with terms drawn from bank.
//
// Cells on a themed diagonal draw from that diagonal's category: the main
// diagonal is checked first, then the anti diagonal, so the anti theme wins
// at the center cell of an odd square grid. A themed cell whose category is
// missing from the bank, or empty, falls through to the general path. All
// other cells become the NullMarker with probability nullProb, otherwise a
// uniform category from the general pool (every category not reserved by a
// theme; the full bank when themes reserve everything) then a uniform term
// from it. When no reachable category has any term, the cell becomes the
// EmptyBankMarker rather than looping.
//
// rng is owned by the caller, so seeding stays local to one call; nil
// means a fresh time-seeded source. Non-positive dimensions yield an empty
// grid. nullProb is clamped to [0, 1].
func Generate(rows, cols int, bank WordBank, nullProb float64, themes map[string]string, rng *rand.Rand) [][]string {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if rows <= 0 || cols <= 0 {
		return [][]string{}
	}
	if nullProb < 0 {
		nullProb = 0
	} else if nullProb > 1 {
		nullProb = 1
	}

	reserved := make(map[string]bool, 2)
	for _, key := range []string{ThemeMain, ThemeAnti} {
		if cat, ok := themes[key]; ok {
			reserved[cat] = true
		}
	}

	// General pool, computed once: categories not reserved by a theme.
	// When themes reserve every category the pool falls back to the full
	// bank. Empty categories are dropped here so the per-cell draw never
	// needs a redraw loop; an empty result means the EmptyBankMarker.
	general := make([]string, 0, len(bank))
	for name := range bank {
		if !reserved[name] {
			general = append(general, name)
		}
	}
	if len(general) == 0 {
		for name := range bank {
			general = append(general, name)
		}
	}
	pool := general[:0]
	for _, name := range general {
		if len(bank[name]) > 0 {
			pool = append(pool, name)
		}
	}
	// Sorted so the same seed always walks the same order.
	sort.Strings(pool)

	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
		for c := range cells[r] {
			cells[r][c] = pickCell(r, c, rows, bank, nullProb, themes, pool, rng)
		}
	}
	return cells
}

// GenerateSeeded is Generate with a deterministic source: identical
// arguments always produce identical grids.
func GenerateSeeded(rows, cols int, bank WordBank, nullProb float64, themes map[string]string, seed int64) [][]string {
	return Generate(rows, cols, bank, nullProb, themes, rand.New(rand.NewSource(seed)))
}

func pickCell(r, c, rows int, bank WordBank, nullProb float64, themes map[string]string, pool []string, rng *rand.Rand) string {
	// Ordered check: main first, anti overwrites.
	theme := ""
	if r == c {
		if cat, ok := themes[ThemeMain]; ok {
			theme = cat
		}
	}
	if r+c == rows-1 {
		if cat, ok := themes[ThemeAnti]; ok {
			theme = cat
		}
	}
	if theme != "" {
		if terms := bank[theme]; len(terms) > 0 {
			return terms[rng.Intn(len(terms))]
		}
		// Missing or empty theme category: general path.
	}

	if rng.Float64() < nullProb {
		return NullMarker
	}
	if len(pool) == 0 {
		return EmptyBankMarker
	}
	terms := bank[pool[rng.Intn(len(pool))]]
	return terms[rng.Intn(len(terms))]
}
