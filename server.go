package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// maxGridDim bounds requested grid dimensions; generation is rows×cols
// work and the grids are meant for humans.
const maxGridDim = 64

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	// Cleanup stale entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	mux    *http.ServeMux
	store  *Store
	gemini *GeminiClient
	sse    *Broadcaster

	bankMu sync.RWMutex
	banks  map[string]WordBank

	gridRL *rateLimiter
	bankRL *rateLimiter
	markRL *rateLimiter
}

// NewServer creates a configured HTTP server. banks must contain at
// least the default bank under "defaut".
func NewServer(store *Store, gemini *GeminiClient, banks map[string]WordBank) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		store:  store,
		gemini: gemini,
		sse:    NewBroadcaster(),
		banks:  banks,
		gridRL: newRateLimiter(30, time.Minute), // 30 generations/min per IP
		bankRL: newRateLimiter(5, time.Minute),  // 5 Gemini calls/min per IP
		markRL: newRateLimiter(60, time.Second), // 60 marks/sec per IP
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Grid API
	s.mux.HandleFunc("POST /api/grids", s.handleCreateGrid)
	s.mux.HandleFunc("GET /api/grids", s.handleListGrids)
	s.mux.HandleFunc("GET /api/grids/{id}", s.handleGetGrid)
	s.mux.HandleFunc("GET /api/grids/{id}/text", s.handleGridText)

	// Word bank API
	s.mux.HandleFunc("GET /api/banks", s.handleListBanks)
	s.mux.HandleFunc("POST /api/banks", s.handleGenerateBank)

	// Play session API
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/join", s.handleJoinSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/mark", s.handleMark)
	s.mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// --- Grid handlers ---

// POST /api/grids — generate a grid and save it.
func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	if !s.gridRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Title           string            `json:"title"`
		Rows            int               `json:"rows"`
		Cols            int               `json:"cols"`
		Bank            string            `json:"bank"`
		Categories      WordBank          `json:"categories"`
		NullProbability *float64          `json:"null_probability"`
		Themes          map[string]string `json:"themes"`
		Seed            *int64            `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	if req.Rows < 1 || req.Rows > maxGridDim || req.Cols < 1 || req.Cols > maxGridDim {
		jsonError(w, fmt.Sprintf("Dimensions invalides (1 à %d)", maxGridDim), http.StatusBadRequest)
		return
	}

	for key := range req.Themes {
		if key != ThemeMain && key != ThemeAnti {
			jsonError(w, "Clés de thème acceptées : 'main' ou 'anti'", http.StatusBadRequest)
			return
		}
	}

	// 10% of non-themed cells are left empty unless the caller says
	// otherwise.
	nullProb := 0.1
	if req.NullProbability != nil {
		nullProb = *req.NullProbability
		if nullProb < 0 || nullProb > 1 {
			jsonError(w, "null_probability doit être entre 0 et 1", http.StatusBadRequest)
			return
		}
	}

	// An inline bank wins over a named one; the default bank is the
	// fallback.
	bankName := req.Bank
	bank := req.Categories
	if bank == nil {
		if bankName == "" {
			bankName = "defaut"
		}
		s.bankMu.RLock()
		bank = s.banks[bankName]
		s.bankMu.RUnlock()
		if bank == nil {
			jsonError(w, "Banque de mots inconnue : "+bankName, http.StatusBadRequest)
			return
		}
	} else {
		bankName = ""
	}

	var cells [][]string
	if req.Seed != nil {
		cells = GenerateSeeded(req.Rows, req.Cols, bank, nullProb, req.Themes, *req.Seed)
	} else {
		cells = Generate(req.Rows, req.Cols, bank, nullProb, req.Themes, nil)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Grille"
	}

	grid := &Grid{
		Title:           title,
		Rows:            req.Rows,
		Cols:            req.Cols,
		Bank:            bankName,
		NullProbability: nullProb,
		Themes:          req.Themes,
		Seed:            req.Seed,
		Cells:           cells,
	}
	s.store.SaveGrid(grid)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(grid)
}

// GET /api/grids — list all grids.
func (s *Server) handleListGrids(w http.ResponseWriter, _ *http.Request) {
	grids := s.store.ListGrids()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grids)
}

// GET /api/grids/{id} — get a single grid.
func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	grid := s.store.GetGrid(r.PathValue("id"))
	if grid == nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grid)
}

// GET /api/grids/{id}/text — the grid as an aligned text table.
func (s *Server) handleGridText(w http.ResponseWriter, r *http.Request) {
	grid := s.store.GetGrid(r.PathValue("id"))
	if grid == nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, FormatGrid(grid.Cells, grid.Title))
}

// --- Word bank handlers ---

// GET /api/banks — list bank names with their categories.
func (s *Server) handleListBanks(w http.ResponseWriter, _ *http.Request) {
	s.bankMu.RLock()
	out := make(map[string][]string, len(s.banks))
	for name, bank := range s.banks {
		cats := make([]string, 0, len(bank))
		for cat := range bank {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		out[name] = cats
	}
	s.bankMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// POST /api/banks — generate a themed bank with Gemini and register it.
func (s *Server) handleGenerateBank(w http.ResponseWriter, r *http.Request) {
	if !s.bankRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	if s.gemini == nil {
		jsonError(w, "Génération de banque non configurée", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Topic            string `json:"topic"`
		Name             string `json:"name"`
		Categories       int    `json:"categories"`
		TermsPerCategory int    `json:"terms_per_category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		jsonError(w, "Champ 'topic' requis", http.StatusBadRequest)
		return
	}
	if req.Categories < 1 || req.Categories > 10 {
		req.Categories = 4
	}
	if req.TermsPerCategory < 1 || req.TermsPerCategory > 20 {
		req.TermsPerCategory = 8
	}

	bank, err := s.gemini.GenerateBank(r.Context(), req.Topic, req.Categories, req.TermsPerCategory)
	if err != nil {
		log.Printf("Gemini bank error: %v", err)
		jsonError(w, "Erreur lors de la génération de la banque", http.StatusInternalServerError)
		return
	}

	name := bankSlug(req.Name)
	if name == "" {
		name = bankSlug(req.Topic)
	}

	s.bankMu.Lock()
	s.banks[name] = bank
	s.bankMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"name":       name,
		"categories": bank,
	})
}

// --- Play session handlers ---

// POST /api/sessions — start a play session on a grid.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GridID string `json:"grid_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GridID == "" {
		jsonError(w, "Champ 'grid_id' requis", http.StatusBadRequest)
		return
	}

	session, err := s.store.CreateSession(req.GridID)
	if err != nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// GET /api/sessions/{id} — session state with its grid.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := s.store.GetSession(r.PathValue("id"))
	if session == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	resp := struct {
		*PlaySession
		Grid *Grid `json:"grid"`
	}{
		PlaySession: session,
		Grid:        s.store.GetGrid(session.GridID),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// POST /api/sessions/{id}/join — join a session with a pseudo.
func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	session := s.store.GetSession(r.PathValue("id"))
	if session == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Pseudo invalide", http.StatusBadRequest)
		return
	}

	player := session.AddPlayer(pseudo)

	s.sse.BroadcastEvent(session.ID, map[string]any{
		"type":   "player_joined",
		"pseudo": player.Pseudo,
		"color":  player.Color,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(player)
}

// POST /api/sessions/{id}/mark — mark or unmark a found cell.
func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	if !s.markRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	session := s.store.GetSession(r.PathValue("id"))
	if session == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
		Found  bool   `json:"found"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if req.Found && pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	// Null and sentinel cells hold no term to find.
	grid := s.store.GetGrid(session.GridID)
	if grid != nil && req.Row >= 0 && req.Row < grid.Rows && req.Col >= 0 && req.Col < grid.Cols {
		cell := grid.Cells[req.Row][req.Col]
		if cell == NullMarker || cell == EmptyBankMarker {
			jsonError(w, "Case vide", http.StatusBadRequest)
			return
		}
	}

	marker := pseudo
	if !req.Found {
		marker = ""
	}
	if !session.MarkCell(req.Row, req.Col, marker) {
		jsonError(w, "Position hors limites", http.StatusBadRequest)
		return
	}

	s.sse.BroadcastEvent(session.ID, map[string]any{
		"type":   "cell_marked",
		"row":    req.Row,
		"col":    req.Col,
		"found":  req.Found,
		"pseudo": pseudo,
	})

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sessions/{id}/events — SSE stream.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	session := s.store.GetSession(r.PathValue("id"))
	if session == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	s.sse.ServeSSE(w, r, session.ID, func(c *client) {
		// Send initial session state on connect.
		evt, _ := json.Marshal(map[string]any{
			"type":    "session_state",
			"marks":   session.GetMarks(),
			"players": session.Players,
		})
		c.ch <- string(evt)
	}, func() {
		// On disconnect: broadcast player_left if pseudo was provided.
		if playerPseudo != "" {
			session.RemovePlayer(playerPseudo)
			s.sse.BroadcastEvent(session.ID, map[string]any{
				"type":   "player_left",
				"pseudo": playerPseudo,
			})
		}
	})
}

// --- Helpers ---

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}

// bankSlug lowercases a bank name and keeps letters, digits and dashes,
// mapping spaces to dashes.
func bankSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
