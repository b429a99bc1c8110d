package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestServer() *Server {
	return NewServer(NewStore(), nil, map[string]WordBank{"defaut": DefaultBank()})
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func createGrid(t *testing.T, srv *Server, body string) *Grid {
	t.Helper()
	w := postJSON(t, srv, "/api/grids", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var g Grid
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	return &g
}

func TestCreateGrid(t *testing.T) {
	srv := newTestServer()

	g := createGrid(t, srv, `{"title":"Ma grille","rows":4,"cols":6,"seed":42}`)

	if g.ID == "" {
		t.Fatal("expected grid to have an ID")
	}
	if g.Title != "Ma grille" || g.Bank != "defaut" {
		t.Fatalf("unexpected metadata: title=%q bank=%q", g.Title, g.Bank)
	}
	if len(g.Cells) != 4 || len(g.Cells[0]) != 6 {
		t.Fatalf("expected 4x6 cells, got %dx%d", len(g.Cells), len(g.Cells[0]))
	}

	// Same seed, same grid.
	g2 := createGrid(t, srv, `{"title":"Ma grille","rows":4,"cols":6,"seed":42}`)
	if !reflect.DeepEqual(g.Cells, g2.Cells) {
		t.Fatal("same seed should produce identical cells")
	}
}

func TestCreateGridInlineBank(t *testing.T) {
	srv := newTestServer()

	g := createGrid(t, srv, `{"rows":2,"cols":2,"categories":{"x":["a"]},"null_probability":0,"seed":1}`)

	want := [][]string{{"a", "a"}, {"a", "a"}}
	if !reflect.DeepEqual(g.Cells, want) {
		t.Fatalf("expected %v, got %v", want, g.Cells)
	}
	if g.Bank != "" {
		t.Fatalf("inline bank should have no name, got %q", g.Bank)
	}
}

func TestCreateGridThemes(t *testing.T) {
	srv := newTestServer()

	g := createGrid(t, srv, `{"rows":5,"cols":5,"themes":{"main":"animaux","anti":"fruits"},"null_probability":0,"seed":9}`)

	bank := DefaultBank()
	if !contains(bank["fruits"], g.Cells[2][2]) {
		t.Fatalf("center cell %q should come from the anti theme", g.Cells[2][2])
	}
	if !contains(bank["animaux"], g.Cells[0][0]) {
		t.Fatalf("corner cell %q should come from the main theme", g.Cells[0][0])
	}
}

func TestCreateGridValidation(t *testing.T) {
	srv := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"zero rows", `{"rows":0,"cols":5}`},
		{"oversized", `{"rows":5,"cols":1000}`},
		{"bad theme key", `{"rows":3,"cols":3,"themes":{"diagonal":"animaux"}}`},
		{"probability out of range", `{"rows":3,"cols":3,"null_probability":1.5}`},
		{"unknown bank", `{"rows":3,"cols":3,"bank":"inconnue"}`},
		{"not json", `un quatre quatre`},
	}
	for _, tc := range cases {
		if w := postJSON(t, srv, "/api/grids", tc.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestGetAndListGrids(t *testing.T) {
	srv := newTestServer()
	g := createGrid(t, srv, `{"rows":3,"cols":3,"seed":2}`)

	req := httptest.NewRequest("GET", "/api/grids/"+g.ID, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/grids/unknown", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/grids", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var list []Grid
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected 1 grid in list, got %d (err %v)", len(list), err)
	}
}

func TestGridText(t *testing.T) {
	srv := newTestServer()
	g := createGrid(t, srv, `{"title":"Tableau","rows":3,"cols":3,"seed":5}`)

	req := httptest.NewRequest("GET", "/api/grids/"+g.ID+"/text", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "Tableau\n") || !strings.Contains(body, "C1") || !strings.Contains(body, "R3") {
		t.Fatalf("unexpected table:\n%s", body)
	}
}

func TestListBanks(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("GET", "/api/banks", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var banks map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &banks); err != nil {
		t.Fatalf("decode banks: %v", err)
	}
	if len(banks["defaut"]) == 0 {
		t.Fatal("expected the default bank with its categories")
	}
}

func TestGenerateBankUnconfigured(t *testing.T) {
	srv := newTestServer()

	w := postJSON(t, srv, "/api/banks", `{"topic":"la mer"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without Gemini, got %d", w.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer()
	g := createGrid(t, srv, `{"rows":3,"cols":3,"null_probability":0,"seed":7}`)

	// Create.
	w := postJSON(t, srv, "/api/sessions", `{"grid_id":"`+g.ID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var session PlaySession
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	// Unknown grid.
	if w := postJSON(t, srv, "/api/sessions", `{"grid_id":"unknown"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// Join.
	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/join", `{"pseudo":"Alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d", w.Code)
	}
	var player Player
	if err := json.Unmarshal(w.Body.Bytes(), &player); err != nil || player.Color == "" {
		t.Fatalf("expected player with a color, got %s", w.Body.String())
	}

	// Mark a found cell.
	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/mark", `{"pseudo":"Alice","row":1,"col":2,"found":true}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("mark: expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// The mark is visible in the session state.
	req := httptest.NewRequest("GET", "/api/sessions/"+session.ID, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	var state struct {
		Marks [][]string `json:"marks"`
		Grid  *Grid      `json:"grid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Marks[1][2] != "Alice" {
		t.Fatalf("expected mark by Alice, got %q", state.Marks[1][2])
	}
	if state.Grid == nil || state.Grid.ID != g.ID {
		t.Fatal("expected session state to embed its grid")
	}

	// Unmark.
	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/mark", `{"pseudo":"Alice","row":1,"col":2,"found":false}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unmark: expected 204, got %d", w.Code)
	}
}

func TestMarkValidation(t *testing.T) {
	srv := newTestServer()
	g := createGrid(t, srv, `{"rows":3,"cols":3,"null_probability":0,"seed":7}`)
	w := postJSON(t, srv, "/api/sessions", `{"grid_id":"`+g.ID+`"}`)
	var session PlaySession
	json.Unmarshal(w.Body.Bytes(), &session)

	// Marking requires a pseudo.
	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/mark", `{"row":0,"col":0,"found":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without pseudo, got %d", w.Code)
	}

	// Out of bounds.
	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/mark", `{"pseudo":"Bob","row":9,"col":0,"found":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 out of bounds, got %d", w.Code)
	}
}

func TestMarkNullCell(t *testing.T) {
	srv := newTestServer()
	// Every non-themed cell is the null marker at probability 1.
	g := createGrid(t, srv, `{"rows":3,"cols":3,"null_probability":1,"seed":3}`)
	w := postJSON(t, srv, "/api/sessions", `{"grid_id":"`+g.ID+`"}`)
	var session PlaySession
	json.Unmarshal(w.Body.Bytes(), &session)

	w = postJSON(t, srv, "/api/sessions/"+session.ID+"/mark", `{"pseudo":"Bob","row":0,"col":0,"found":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a null cell, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("GET", "/api/grids", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for key, expected := range headers {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("header %s: expected %q, got %q", key, expected, got)
		}
	}

	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Second)

	// First 3 should pass.
	for i := range 3 {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// 4th should be blocked.
	if rl.allow("1.2.3.4") {
		t.Fatal("4th request should be rate limited")
	}

	// Different IP should still be allowed.
	if !rl.allow("5.6.7.8") {
		t.Fatal("different IP should be allowed")
	}
}

func TestBankSlug(t *testing.T) {
	cases := map[string]string{
		"La Mer":       "la-mer",
		"  Espace  ":   "espace",
		"déjà_vu":      "déjà-vu",
		"!!!":          "",
		"Fonds marins": "fonds-marins",
	}
	for in, want := range cases {
		if got := bankSlug(in); got != want {
			t.Errorf("bankSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
