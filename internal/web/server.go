// Package web provides the Verso admin and presentation web UI.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"

	"github.com/versoproject/verso/core/songtext"
	"github.com/versoproject/verso/internal/logging"
	"github.com/versoproject/verso/internal/server"
	"github.com/versoproject/verso/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Config holds web server configuration.
type Config struct {
	Port   int
	DBPath string
	TLS    TLSConfig
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// Server holds the web UI's dependencies.
type Server struct {
	cfg       Config
	store     *store.Store
	templates *template.Template
}

// NewServer parses the embedded templates and wires a server around an
// open store.
func NewServer(cfg Config, st *store.Store) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{cfg: cfg, store: st, templates: tmpl}, nil
}

// Routes builds the route table for the web UI.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/songs", s.handleSongs)
	mux.HandleFunc("/songs/new", s.handleSongNew)
	mux.HandleFunc("/songs/save", s.handleSongSave)
	mux.HandleFunc("/songs/delete", s.handleSongDelete)
	mux.HandleFunc("/songs/", s.handleSongEdit)
	mux.HandleFunc("/singers", s.handleSingers)
	mux.HandleFunc("/pitches", s.handlePitches)
	mux.HandleFunc("/templates", s.handleTemplates)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/new", s.handleSessionNew)
	mux.HandleFunc("/sessions/save", s.handleSessionSave)
	mux.HandleFunc("/sessions/delete", s.handleSessionDelete)
	mux.HandleFunc("/sessions/", s.handleSessionEdit)
	mux.HandleFunc("/import", s.handleImport)
	mux.HandleFunc("/present/", s.handlePresent)
	mux.HandleFunc("/static/", s.handleStatic)

	return mux
}

// Start starts the web server with the given configuration.
func Start(cfg Config) error {
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer st.Close()

	srv, err := NewServer(cfg, st)
	if err != nil {
		return err
	}

	protocol := "http"
	if cfg.TLS.Enabled {
		protocol = "https"
		logging.Info("TLS enabled", "cert_file", cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("web_ui", protocol, cfg.Port,
		"db_path", server.AbsPath(cfg.DBPath))

	cspConfig := server.WebUICSPConfig()
	handler := logging.CombinedMiddleware(
		server.TimingMiddleware(
			server.SecurityHeaders(cspConfig, srv.Routes())))

	addr := fmt.Sprintf(":%d", cfg.Port)
	if cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, handler)
	}
	return http.ListenAndServe(addr, handler)
}

// cachedTemplateFuncs is initialized once at package load time.
var cachedTemplateFuncs = template.FuncMap{
	"iterate": func(n int) []int {
		result := make([]int, n)
		for i := range result {
			result[i] = i
		}
		return result
	},
	"add": func(a, b int) int {
		return a + b
	},
	"truncate": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n] + "..."
	},
	"firstLine": func(s string) string {
		// Previews skip leading blank lines so imports with padding
		// still show real lyric text in the songs list.
		if lines := songtext.Lines(s); len(lines) > 0 {
			return lines[0]
		}
		return ""
	},
}

// templateFuncs returns the cached template helper functions.
func templateFuncs() template.FuncMap {
	return cachedTemplateFuncs
}
