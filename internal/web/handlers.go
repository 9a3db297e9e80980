package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/versoproject/verso/core/verrors"
	"github.com/versoproject/verso/internal/logging"
	"github.com/versoproject/verso/internal/present"
	"github.com/versoproject/verso/internal/songimport"
	"github.com/versoproject/verso/internal/store"
	"github.com/versoproject/verso/internal/templatedef"
	"github.com/versoproject/verso/internal/validation"
)

// maxFormMemory is the maximum memory for multipart form parsing (32 MB).
const maxFormMemory = 32 << 20

// PageData is the common data carried by every page.
type PageData struct {
	Title   string
	Active  string
	Error   string
	Message string
}

// IndexData is the data for the dashboard page.
type IndexData struct {
	PageData
	Stats *store.Stats
}

// SongsData is the data for the song list page.
type SongsData struct {
	PageData
	Songs  []store.Song
	Search string
}

// SongFormData is the data for the song create/edit form.
type SongFormData struct {
	PageData
	Song      *store.Song
	Templates []store.Template
}

// SingersData is the data for the singers page.
type SingersData struct {
	PageData
	Singers []store.Singer
}

// PitchesData is the data for the pitches page.
type PitchesData struct {
	PageData
	Pitches []store.Pitch
}

// TemplatesData is the data for the templates page.
type TemplatesData struct {
	PageData
	Templates []store.Template
}

// SessionsData is the data for the session list page.
type SessionsData struct {
	PageData
	Sessions []store.Session
}

// SessionFormData is the data for the session create/edit form.
type SessionFormData struct {
	PageData
	Session   *store.Session
	Songs     []store.Song
	Singers   []store.Singer
	Pitches   []store.Pitch
	Templates []store.Template
}

// ImportData is the data for the import page.
type ImportData struct {
	PageData
	Reports []songimport.Report
}

// PresentData is the data for the presentation player page.
type PresentData struct {
	PageData
	DeckName   string
	SlidesJSON template.JS
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logging.Error("template rendering failed",
			"template", name,
			"error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	s.render(w, "error.html", PageData{Title: "Error", Error: message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "index.html", IndexData{
		PageData: PageData{Title: "Library", Active: "home"},
		Stats:    stats,
	})
}

// --- songs ---

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	songs, err := s.store.ListSongs(r.Context(), store.SongFilter{Search: search})
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "songs.html", SongsData{
		PageData: PageData{Title: "Songs", Active: "songs", Message: r.URL.Query().Get("msg")},
		Songs:    songs,
		Search:   search,
	})
}

func (s *Server) handleSongNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, "song_form.html", SongFormData{
		PageData: PageData{Title: "New Song", Active: "songs"},
		Song:     &store.Song{},
	})
}

func (s *Server) handleSongEdit(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/songs/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	song, err := s.store.GetSong(r.Context(), id)
	if err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	s.render(w, "song_form.html", SongFormData{
		PageData: PageData{Title: song.Name, Active: "songs"},
		Song:     song,
	})
}

func (s *Server) handleSongSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/songs", http.StatusSeeOther)
		return
	}
	song := store.Song{
		ID:       r.FormValue("id"),
		Name:     strings.TrimSpace(r.FormValue("name")),
		Lyrics:   r.FormValue("lyrics"),
		Meaning:  r.FormValue("meaning"),
		Language: strings.TrimSpace(r.FormValue("language")),
	}
	if err := validation.ValidateName(song.Name); err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	if song.ID == "" {
		err = s.store.CreateSong(r.Context(), &song)
	} else {
		err = s.store.UpdateSong(r.Context(), &song)
	}
	if err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	http.Redirect(w, r, "/songs?msg=Saved", http.StatusSeeOther)
}

func (s *Server) handleSongDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/songs", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteSong(r.Context(), r.FormValue("id")); err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	http.Redirect(w, r, "/songs?msg=Deleted", http.StatusSeeOther)
}

// --- singers ---

// handleSingers lists singers; POSTs add, rename, or delete depending on
// which form fields are set.
func (s *Server) handleSingers(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var err error
		switch {
		case r.FormValue("delete") != "":
			err = s.store.DeleteSinger(r.Context(), r.FormValue("delete"))
		case r.FormValue("id") != "":
			err = s.store.RenameSinger(r.Context(), r.FormValue("id"), strings.TrimSpace(r.FormValue("name")))
		default:
			_, err = s.store.CreateSinger(r.Context(), strings.TrimSpace(r.FormValue("name")))
		}
		if err != nil {
			s.renderError(w, statusFor(err), err.Error())
			return
		}
		http.Redirect(w, r, "/singers", http.StatusSeeOther)
		return
	}

	singers, err := s.store.ListSingers(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "singers.html", SingersData{
		PageData: PageData{Title: "Singers", Active: "singers"},
		Singers:  singers,
	})
}

// --- pitches ---

func (s *Server) handlePitches(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var err error
		if del := r.FormValue("delete"); del != "" {
			err = s.store.DeletePitch(r.Context(), del)
		} else {
			_, err = s.store.CreatePitch(r.Context(), strings.TrimSpace(r.FormValue("name")))
		}
		if err != nil {
			s.renderError(w, statusFor(err), err.Error())
			return
		}
		http.Redirect(w, r, "/pitches", http.StatusSeeOther)
		return
	}

	pitches, err := s.store.ListPitches(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "pitches.html", PitchesData{
		PageData: PageData{Title: "Pitches", Active: "pitches"},
		Pitches:  pitches,
	})
}

// --- templates ---

// handleTemplates lists templates and accepts YAML definition uploads.
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if del := r.FormValue("delete"); del != "" {
			if err := s.store.DeleteTemplate(r.Context(), del); err != nil {
				s.renderError(w, statusFor(err), err.Error())
				return
			}
			http.Redirect(w, r, "/templates", http.StatusSeeOther)
			return
		}
		if err := s.importTemplateUpload(r); err != nil {
			s.renderError(w, statusFor(err), err.Error())
			return
		}
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
		return
	}

	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "templates.html", TemplatesData{
		PageData: PageData{Title: "Templates", Active: "templates"},
		Templates: templates,
	})
}

func (s *Server) importTemplateUpload(r *http.Request) error {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return verrors.NewValidation("file", "failed to parse upload")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return verrors.NewValidation("file", "no file uploaded")
	}
	defer file.Close()

	if err := validation.ValidateFilename(header.Filename); err != nil {
		return verrors.NewValidation("file", "invalid filename")
	}
	data, err := io.ReadAll(io.LimitReader(file, maxFormMemory))
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	def, err := templatedef.Parse(data)
	if err != nil {
		return err
	}
	t := def.ToTemplate()
	return s.store.CreateTemplate(r.Context(), t)
}

// --- sessions ---

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "sessions.html", SessionsData{
		PageData: PageData{Title: "Sessions", Active: "sessions", Message: r.URL.Query().Get("msg")},
		Sessions: sessions,
	})
}

// sessionFormData loads everything the setlist editor's selects need.
func (s *Server) sessionFormData(r *http.Request, sess *store.Session, title string) (SessionFormData, error) {
	songs, err := s.store.ListSongs(r.Context(), store.SongFilter{})
	if err != nil {
		return SessionFormData{}, err
	}
	singers, err := s.store.ListSingers(r.Context())
	if err != nil {
		return SessionFormData{}, err
	}
	pitches, err := s.store.ListPitches(r.Context())
	if err != nil {
		return SessionFormData{}, err
	}
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		return SessionFormData{}, err
	}
	return SessionFormData{
		PageData:  PageData{Title: title, Active: "sessions"},
		Session:   sess,
		Songs:     songs,
		Singers:   singers,
		Pitches:   pitches,
		Templates: templates,
	}, nil
}

func (s *Server) handleSessionNew(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessionFormData(r, &store.Session{}, "New Session")
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "session_form.html", data)
}

func (s *Server) handleSessionEdit(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	data, err := s.sessionFormData(r, sess, sess.Name)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.render(w, "session_form.html", data)
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/sessions", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	sess := store.Session{
		ID:         r.FormValue("id"),
		Name:       strings.TrimSpace(r.FormValue("name")),
		HeldOn:     strings.TrimSpace(r.FormValue("held_on")),
		TemplateID: r.FormValue("template_id"),
	}
	if err := validation.ValidateName(sess.Name); err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	songIDs := r.Form["song_id"]
	singerIDs := r.Form["singer_id"]
	pitchIDs := r.Form["pitch_id"]
	for i, songID := range songIDs {
		if songID == "" {
			continue
		}
		entry := store.SessionSong{Position: len(sess.Songs), SongID: songID}
		if i < len(singerIDs) {
			entry.SingerID = singerIDs[i]
		}
		if i < len(pitchIDs) {
			entry.PitchID = pitchIDs[i]
		}
		sess.Songs = append(sess.Songs, entry)
	}

	var err error
	if sess.ID == "" {
		err = s.store.CreateSession(r.Context(), &sess)
	} else {
		err = s.store.UpdateSession(r.Context(), &sess)
	}
	if err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	http.Redirect(w, r, "/sessions?msg=Saved", http.StatusSeeOther)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/sessions", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteSession(r.Context(), r.FormValue("id")); err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	http.Redirect(w, r, "/sessions?msg=Deleted", http.StatusSeeOther)
}

// --- import ---

// handleImport shows the upload form and accepts one or more song files.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.render(w, "import.html", ImportData{
			PageData: PageData{Title: "Import", Active: "import"},
		})
		return
	}

	if err := r.ParseMultipartForm(validation.MaxUploadSize); err != nil {
		s.renderError(w, http.StatusBadRequest, "failed to parse upload or file too large")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.renderError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	tempDir, err := os.MkdirTemp("", "verso-import-*")
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.RemoveAll(tempDir)

	var reports []songimport.Report
	for _, header := range files {
		if err := validation.ValidateFilename(header.Filename); err != nil {
			reports = append(reports, songimport.Report{
				Path:   header.Filename,
				Status: songimport.StatusFailed,
				Reason: "invalid filename",
			})
			continue
		}
		src, err := header.Open()
		if err != nil {
			reports = append(reports, songimport.Report{
				Path:   header.Filename,
				Status: songimport.StatusFailed,
				Reason: "failed to open upload",
			})
			continue
		}
		tempPath := filepath.Join(tempDir, header.Filename)
		dst, err := os.Create(tempPath)
		if err == nil {
			_, err = io.Copy(dst, io.LimitReader(src, validation.MaxUploadSize))
			dst.Close()
		}
		src.Close()
		if err != nil {
			reports = append(reports, songimport.Report{
				Path:   header.Filename,
				Status: songimport.StatusFailed,
				Reason: "failed to stage upload",
			})
			continue
		}

		report := songimport.ImportFile(r.Context(), s.store, tempPath)
		report.Path = header.Filename
		reports = append(reports, report)
	}

	s.render(w, "import.html", ImportData{
		PageData: PageData{Title: "Import", Active: "import"},
		Reports:  reports,
	})
}

// --- presentation ---

// handlePresent serves the player page for /present/song/{id} and
// /present/session/{id}. The composed deck is embedded as JSON so the
// player works without further round trips.
func (s *Server) handlePresent(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/present/")
	kind, id, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	templateID := r.URL.Query().Get("template")

	var (
		slides   []present.Slide
		deckName string
		err      error
	)
	switch kind {
	case "song":
		var song *store.Song
		song, err = s.store.GetSong(r.Context(), id)
		if err == nil {
			deckName = song.Name
			slides, err = present.SongDeck(r.Context(), s.store, id, templateID)
		}
	case "session":
		var sess *store.Session
		sess, err = s.store.GetSession(r.Context(), id)
		if err == nil {
			deckName = sess.Name
			slides, err = present.SessionDeck(r.Context(), s.store, id, templateID)
		}
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.renderError(w, statusFor(err), err.Error())
		return
	}

	payload, err := json.Marshal(slides)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, "failed to encode deck")
		return
	}
	s.render(w, "present.html", PresentData{
		PageData:   PageData{Title: deckName, Active: ""},
		DeckName:   deckName,
		SlidesJSON: template.JS(payload),
	})
}

// --- static ---

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Base(r.URL.Path)
	content, err := staticFS.ReadFile("static/" + name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write(content)
}

// statusFor maps a store error onto the right HTTP status for a page.
func statusFor(err error) int {
	switch {
	case verrors.Is(err, verrors.ErrNotFound):
		return http.StatusNotFound
	case verrors.Is(err, verrors.ErrInvalidInput):
		return http.StatusBadRequest
	case verrors.Is(err, verrors.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
