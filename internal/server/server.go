// Package server is the web wizard: upload or type comments, filter by
// facet, analyze, inspect results and history. Each browser gets its own
// wizard machine, keyed by a session cookie and mutated under the server's
// lock.
package server

import (
	"bytes"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"sync"

	"github.com/yuin/goldmark"

	"sentiboard/internal/analyze"
	"sentiboard/internal/csvio"
	"sentiboard/internal/database"
	"sentiboard/internal/entry"
	"sentiboard/internal/export"
	"sentiboard/internal/ingest"
	"sentiboard/internal/result"
	"sentiboard/internal/sentiment"
	"sentiboard/internal/stats"
	"sentiboard/internal/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const sessionCookie = "sentiboard_session"

// Options wires the server's collaborators.
type Options struct {
	Client        sentiment.Analyzer
	Authenticated bool
	Feeds         *ingest.FeedReader
	MaxCSVRows    int
}

// Server is the HTTP server for the analysis wizard.
type Server struct {
	db            *database.DB
	runner        *analyze.Runner
	client        sentiment.Analyzer
	authenticated bool
	feeds         *ingest.FeedReader
	maxRows       int

	pages map[string]*template.Template
	mux   *http.ServeMux

	mu       sync.Mutex
	machines map[string]*wizard.Machine
}

// New creates a new Server.
func New(db *database.DB, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"pct":      func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"input.html", "filter.html", "results.html", "history.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	maxRows := opts.MaxCSVRows
	if maxRows <= 0 {
		maxRows = csvio.DefaultMaxRows
	}

	s := &Server{
		db:            db,
		runner:        &analyze.Runner{Client: opts.Client, Store: db},
		client:        opts.Client,
		authenticated: opts.Authenticated,
		feeds:         opts.Feeds,
		maxRows:       maxRows,
		pages:         pages,
		mux:           http.NewServeMux(),
		machines:      make(map[string]*wizard.Machine),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Wizard flow
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/manual", s.handleManual)
	s.mux.HandleFunc("/feeds", s.handleFeeds)
	s.mux.HandleFunc("/proceed", s.handleProceed)
	s.mux.HandleFunc("/filter/toggle", s.handleToggle)
	s.mux.HandleFunc("/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/new", s.handleNew)

	// History and exports
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/history/replay", s.handleReplay)
	s.mux.HandleFunc("/report", s.handleReport)
	s.mux.HandleFunc("/export/items.csv", s.handleExportItems)
	s.mux.HandleFunc("/export/products.csv", s.handleExportProducts)
}

// machine returns the wizard for this browser, creating the cookie and the
// machine on first contact. Callers must hold s.mu.
func (s *Server) machine(w http.ResponseWriter, r *http.Request) *wizard.Machine {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		id = c.Value
	} else {
		id = newSessionID()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
		})
	}

	m, ok := s.machines[id]
	if !ok {
		m = wizard.New()
		s.machines[id] = m
	}
	if m.Step() == wizard.StepIdle {
		m.Start()
	}
	return m
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(buf)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	switch m.Step() {
	case wizard.StepFilter:
		s.renderFilter(w, m)
	case wizard.StepResults, wizard.StepReplaying:
		s.renderResults(w, m)
	default:
		s.renderInput(w, m)
	}
}

func (s *Server) renderInput(w http.ResponseWriter, m *wizard.Machine) {
	s.render(w, "input.html", map[string]any{
		"EntryCount":    len(m.Entries()),
		"Facets":        m.Facets(),
		"Error":         m.LastError(),
		"Authenticated": s.authenticated,
		"HasFeeds":      s.feeds != nil,
	})
}

type facetRow struct {
	Value    string
	Count    int
	Selected bool
}

func (s *Server) renderFilter(w http.ResponseWriter, m *wizard.Machine) {
	entries := m.Entries()
	sel := m.Selection()

	var categories, products []facetRow
	for _, c := range m.Facets().Categories {
		categories = append(categories, facetRow{c, entry.CountCategory(entries, c), sel.Categories[c]})
	}
	for _, p := range m.Facets().Products {
		products = append(products, facetRow{p, entry.CountProduct(entries, p), sel.Products[p]})
	}

	s.render(w, "filter.html", map[string]any{
		"Categories": categories,
		"Products":   products,
		"Total":      len(entries),
		"Filtered":   len(m.Filtered()),
		"Error":      m.LastError(),
	})
}

func (s *Server) renderResults(w http.ResponseWriter, m *wizard.Machine) {
	res := m.Result()
	if res == nil {
		s.renderInput(w, m)
		return
	}

	data := map[string]any{
		"Single": res.Single,
	}
	if res.IsBatch() {
		sum := stats.Aggregate(res.Batch)
		data["Batch"] = res.Batch
		data["Summary"] = sum
	}
	s.render(w, "results.html", data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "reading upload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	table, err := csvio.ParseLimit(raw, s.maxRows)
	if err != nil {
		log.Printf("CSV upload rejected: %v", err)
		m.SetError(err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	entries, _ := entry.Extract(table.Rows, nil)
	m.AddEntries(entries)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	lines := entry.SplitLines(r.FormValue("text"))

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	if len(lines) > 0 {
		entries, _ := entry.Extract(nil, lines)
		m.AddEntries(entries)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || s.feeds == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	entries := s.feeds.ReadAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)
	m.AddEntries(entries)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleProceed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	s.mu.Lock()
	m := s.machine(w, r)
	skipFilter, err := m.Proceed()
	if err != nil {
		m.SetError(err)
	}
	s.mu.Unlock()

	if err == nil && skipFilter {
		s.runAnalysis(r, m)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	if cat := r.FormValue("category"); cat != "" {
		m.ToggleCategory(cat)
	}
	if prod := r.FormValue("product"); prod != "" {
		m.ToggleProduct(prod)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	s.mu.Lock()
	m := s.machine(w, r)
	s.mu.Unlock()
	s.runAnalysis(r, m)

	http.Redirect(w, r, "/", http.StatusFound)
}

// runAnalysis performs one submission synchronously. The lock is released
// around the backend call so other sessions keep working; the epoch pairing
// drops the outcome when a navigation landed in between.
func (s *Server) runAnalysis(r *http.Request, m *wizard.Machine) {
	s.mu.Lock()
	epoch, entries, err := m.BeginAnalyze()
	s.mu.Unlock()
	if err != nil {
		return
	}

	rc := analyze.Config{
		Single:        r.FormValue("single") == "1" && len(entries) == 1,
		Authenticated: s.authenticated,
		Demo:          r.FormValue("demo") == "1",
	}
	res, err := s.runner.Run(r.Context(), entries, rc)

	s.mu.Lock()
	m.FinishAnalyze(epoch, res, err)
	s.mu.Unlock()
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	s.mu.Lock()
	m := s.machine(w, r)
	m.Reset()
	s.mu.Unlock()

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessions, source := s.loadHistory(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.render(w, "history.html", map[string]any{
		"Sessions": sessions,
		"Trend":    stats.Trend(sessions),
		"Source":   source,
	})
}

// loadHistory prefers the backend's list and falls back to the local cache
// when the service is unreachable or the user is anonymous.
func (s *Server) loadHistory(r *http.Request) ([]result.Session, string) {
	if s.authenticated && s.client != nil {
		sessions, err := s.client.GetHistory(r.Context())
		if err == nil {
			return sessions, "remote"
		}
		log.Printf("history fetch failed, using local cache: %v", err)
	}

	sessions, err := s.db.GetSessions()
	if err != nil {
		log.Printf("reading cached sessions: %v", err)
		return nil, "none"
	}
	return sessions, "cache"
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/history", http.StatusFound)
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		http.Redirect(w, r, "/history", http.StatusFound)
		return
	}

	session, err := s.db.GetSession(sessionID)
	if err != nil {
		log.Printf("loading cached session %s: %v", sessionID, err)
	}
	if session == nil && s.authenticated && s.client != nil {
		if remote, err := s.client.GetHistory(r.Context()); err == nil {
			for i := range remote {
				if remote[i].SessionID == sessionID {
					session = &remote[i]
					break
				}
			}
		}
	}
	if session == nil {
		http.Redirect(w, r, "/history", http.StatusFound)
		return
	}

	s.mu.Lock()
	m := s.machine(w, r)
	// Leaving the history page is a navigation; the queued replay must
	// survive it and land on the results step.
	m.QueueReplay(result.FromHistory(*session))
	m.Navigate()
	s.mu.Unlock()

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	res := m.Result()
	if res == nil || !res.IsBatch() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	report := export.MarkdownReport(res.Batch, stats.Aggregate(res.Batch))
	s.render(w, "report.html", map[string]any{
		"Report": report,
	})
}

func (s *Server) handleExportItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	res := m.Result()
	if res == nil || !res.IsBatch() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="comentarios.csv"`)
	if err := export.WriteItemsCSV(w, res.Batch); err != nil {
		log.Printf("exporting items: %v", err)
	}
}

func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine(w, r)

	res := m.Result()
	if res == nil || !res.IsBatch() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="productos.csv"`)
	sum := stats.Aggregate(res.Batch)
	if err := export.WriteProductsCSV(w, sum.ByProduct); err != nil {
		log.Printf("exporting products: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, opts Options, port int) error {
	srv, err := New(db, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
