package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/versoproject/verso/core/verrors"
	"github.com/versoproject/verso/internal/present"
	"github.com/versoproject/verso/internal/songimport"
	"github.com/versoproject/verso/internal/store"
	"github.com/versoproject/verso/internal/validation"
)

// Version is the API version reported by the info endpoints.
const Version = "1.0.0"

// APIResponse is the standard response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError carries a machine-readable code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Uptime  string       `json:"uptime"`
	Stats   *store.Stats `json:"stats,omitempty"`
}

var startTime = time.Now()

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

// respondList writes a success envelope with a total count.
func respondList(w http.ResponseWriter, data any, total int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// respondStoreError maps a store error onto the right HTTP status.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case verrors.Is(err, verrors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case verrors.Is(err, verrors.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case verrors.Is(err, verrors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

// decodeJSON decodes a request body into dst with a size limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON")
		return false
	}
	return true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"name":    "Verso API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET|POST /songs",
			"GET|PUT|DELETE /songs/:id",
			"GET /songs/:id/deck",
			"GET|POST /singers",
			"GET|PUT|DELETE /singers/:id",
			"GET|POST /pitches",
			"GET|DELETE /pitches/:id",
			"GET|POST /templates",
			"GET|DELETE /templates/:id",
			"GET|POST /sessions",
			"GET|PUT|DELETE /sessions/:id",
			"GET /sessions/:id/deck",
			"POST /import",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
		Stats:   stats,
	})
}

// --- songs ---

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := store.SongFilter{
			Search:   r.URL.Query().Get("search"),
			Language: r.URL.Query().Get("language"),
		}
		songs, err := s.store.ListSongs(r.Context(), filter)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, songs, len(songs))

	case http.MethodPost:
		var song store.Song
		if !decodeJSON(w, r, &song) {
			return
		}
		if err := validation.ValidateName(song.Name); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		if err := s.store.CreateSong(r.Context(), &song); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, song)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handleSongByID(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/songs/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Song ID is required")
		return
	}

	if rest == "deck" {
		s.handleSongDeck(w, r, id)
		return
	}
	if rest != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		song, err := s.store.GetSong(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, song)

	case http.MethodPut:
		var song store.Song
		if !decodeJSON(w, r, &song) {
			return
		}
		song.ID = id
		if err := s.store.UpdateSong(r.Context(), &song); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, song)

	case http.MethodDelete:
		if err := s.store.DeleteSong(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT and DELETE are allowed")
	}
}

// handleSongDeck composes and returns the presentation deck for a song.
// An optional ?template= query decorates it.
func (s *Server) handleSongDeck(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	slides, err := present.SongDeck(r.Context(), s.store, id, r.URL.Query().Get("template"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondList(w, slides, len(slides))
}

// --- singers ---

func (s *Server) handleSingers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		singers, err := s.store.ListSingers(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, singers, len(singers))

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		singer, err := s.store.CreateSinger(r.Context(), body.Name)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, singer)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handleSingerByID(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/singers/")
	if id == "" || rest != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		singer, err := s.store.GetSinger(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, singer)

	case http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if err := s.store.RenameSinger(r.Context(), id, body.Name); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"id": id, "name": body.Name})

	case http.MethodDelete:
		if err := s.store.DeleteSinger(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT and DELETE are allowed")
	}
}

// --- pitches ---

func (s *Server) handlePitches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pitches, err := s.store.ListPitches(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, pitches, len(pitches))

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		pitch, err := s.store.CreatePitch(r.Context(), body.Name)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, pitch)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handlePitchByID(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/pitches/")
	if id == "" || rest != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		pitch, err := s.store.GetPitch(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, pitch)

	case http.MethodDelete:
		if err := s.store.DeletePitch(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

// --- templates ---

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		templates, err := s.store.ListTemplates(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, templates, len(templates))

	case http.MethodPost:
		var t store.Template
		if !decodeJSON(w, r, &t) {
			return
		}
		if err := s.store.CreateTemplate(r.Context(), &t); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, t)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handleTemplateByID(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/templates/")
	if id == "" || rest != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := s.store.GetTemplate(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, t)

	case http.MethodDelete:
		if err := s.store.DeleteTemplate(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

// --- sessions ---

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.store.ListSessions(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, sessions, len(sessions))

	case http.MethodPost:
		var sess store.Session
		if !decodeJSON(w, r, &sess) {
			return
		}
		if err := s.store.CreateSession(r.Context(), &sess); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, sess)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/sessions/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Session ID is required")
		return
	}

	if rest == "deck" {
		s.handleSessionDeck(w, r, id)
		return
	}
	if rest != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, err := s.store.GetSession(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, sess)

	case http.MethodPut:
		var sess store.Session
		if !decodeJSON(w, r, &sess) {
			return
		}
		sess.ID = id
		if err := s.store.UpdateSession(r.Context(), &sess); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, sess)

	case http.MethodDelete:
		if err := s.store.DeleteSession(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT and DELETE are allowed")
	}
}

// handleSessionDeck composes and returns the deck for a whole session.
// ?template= overrides the session's stored template.
func (s *Server) handleSessionDeck(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	slides, err := present.SessionDeck(r.Context(), s.store, id, r.URL.Query().Get("template"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondList(w, slides, len(slides))
}

// --- import ---

// handleImport accepts a multipart song file upload (OpenLyrics XML or
// plain text), saves it to a scratch file, and runs the importer on it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	if err := r.ParseMultipartForm(validation.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse multipart form or file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "MISSING_FILE", "No file uploaded")
		return
	}
	defer file.Close()

	if err := validation.ValidateFilename(header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename provided")
		return
	}
	if _, err := validation.ValidateFileType(file, header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Failed to process file")
		return
	}

	// The importer works on paths, so stage the upload in a scratch dir.
	tempDir, err := os.MkdirTemp("", "verso-import-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Failed to stage upload")
		return
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, header.Filename)
	dst, err := os.Create(tempPath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Failed to stage upload")
		return
	}
	if _, err := io.Copy(dst, io.LimitReader(file, validation.MaxUploadSize)); err != nil {
		dst.Close()
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Failed to stage upload")
		return
	}
	dst.Close()

	report := songimport.ImportFile(r.Context(), s.store, tempPath)
	report.Path = header.Filename
	if report.Status == songimport.StatusFailed {
		respondError(w, http.StatusBadRequest, "IMPORT_FAILED", report.Reason)
		return
	}
	respond(w, http.StatusCreated, report)
}

// splitResourcePath splits "/<prefix>/<id>[/<rest>]" into id and rest.
func splitResourcePath(path, prefix string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	id, rest, _ = strings.Cut(trimmed, "/")
	return id, rest
}
