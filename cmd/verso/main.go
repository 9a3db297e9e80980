// Command verso manages a song library and presents it: importing songs,
// planning sessions, composing slide decks, and serving the web UI and
// REST API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/versoproject/verso/core/pitch"
	"github.com/versoproject/verso/internal/api"
	"github.com/versoproject/verso/internal/archive"
	"github.com/versoproject/verso/internal/songimport"
	"github.com/versoproject/verso/internal/store"
	"github.com/versoproject/verso/internal/templatedef"
	"github.com/versoproject/verso/internal/web"
)

const version = "0.1.0"

// CLI defines the command-line interface for verso.
var CLI struct {
	// Global flags
	DB string `name:"db" help:"Path to the library database" default:"./verso.db" env:"VERSO_DB" type:"path"`

	// Command groups (noun-first organization)
	Song     SongGroup     `cmd:"" help:"Song operations (import, list, show, delete)"`
	Library  LibraryGroup  `cmd:"" help:"Whole-library operations (backup, restore, stats)"`
	Template TemplateGroup `cmd:"" help:"Presentation template operations"`
	Pitch    PitchGroup    `cmd:"" help:"Pitch parsing and transposition checks"`
	Web      WebCmd        `cmd:"" help:"Start web UI server"`
	API      APICmd        `cmd:"" help:"Start REST API server"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// SongGroup contains song lifecycle operations.
type SongGroup struct {
	Import SongImportCmd `cmd:"" help:"Import songs from a file or directory"`
	List   SongListCmd   `cmd:"" help:"List songs in the library"`
	Show   SongShowCmd   `cmd:"" help:"Show one song's full text"`
	Delete SongDeleteCmd `cmd:"" help:"Delete a song"`
}

// LibraryGroup contains whole-library operations.
type LibraryGroup struct {
	Backup  BackupCmd  `cmd:"" help:"Write the whole library to a tar archive"`
	Restore RestoreCmd `cmd:"" help:"Restore library records from a backup archive"`
	Stats   StatsCmd   `cmd:"" help:"Summarize library contents"`
}

// TemplateGroup contains presentation template operations.
type TemplateGroup struct {
	Import TemplateImportCmd `cmd:"" help:"Import a template from a YAML definition"`
	List   TemplateListCmd   `cmd:"" help:"List templates in the library"`
}

// PitchGroup contains pitch tooling.
type PitchGroup struct {
	Check PitchCheckCmd `cmd:"" help:"Parse a pitch name and optionally transpose it"`
}

// openStore opens the library named by the global --db flag.
func openStore() (*store.Store, error) {
	st, err := store.Open(CLI.DB)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", CLI.DB, err)
	}
	return st, nil
}

// SongImportCmd imports songs from a file or directory.
type SongImportCmd struct {
	Path string `arg:"" help:"Song file or directory of song files" type:"path"`
}

func (c *SongImportCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	info, err := os.Stat(c.Path)
	if err != nil {
		return err
	}

	var reports []songimport.Report
	if info.IsDir() {
		reports, err = songimport.ImportDir(ctx, st, c.Path)
		if err != nil {
			return err
		}
	} else {
		reports = append(reports, songimport.ImportFile(ctx, st, c.Path))
	}

	var imported, skipped, failed int
	for _, r := range reports {
		switch r.Status {
		case songimport.StatusImported:
			imported++
			fmt.Printf("imported  %-40s %s\n", r.Song, r.Path)
		case songimport.StatusSkipped:
			skipped++
			fmt.Printf("skipped   %-40s %s (%s)\n", r.Song, r.Path, r.Reason)
		default:
			failed++
			fmt.Printf("failed    %-40s %s (%s)\n", "", r.Path, r.Reason)
		}
	}
	fmt.Printf("\n%d imported, %d skipped, %d failed\n", imported, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", failed)
	}
	return nil
}

// SongListCmd lists songs.
type SongListCmd struct {
	Search   string `help:"Filter by name or lyrics substring"`
	Language string `help:"Filter by language tag"`
}

func (c *SongListCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	songs, err := st.ListSongs(context.Background(), store.SongFilter{
		Search:   c.Search,
		Language: c.Language,
	})
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Println("No songs found.")
		return nil
	}
	for _, s := range songs {
		lang := s.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Printf("%s  %-6s %s\n", s.ID, lang, s.Name)
	}
	fmt.Printf("\n%d song(s)\n", len(songs))
	return nil
}

// SongShowCmd prints one song in full.
type SongShowCmd struct {
	ID string `arg:"" help:"Song ID"`
}

func (c *SongShowCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	song, err := st.GetSong(context.Background(), c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Name:     %s\n", song.Name)
	if song.Language != "" {
		fmt.Printf("Language: %s\n", song.Language)
	}
	fmt.Printf("\n%s\n", song.Lyrics)
	if song.Meaning != "" {
		fmt.Printf("\n--- meaning ---\n\n%s\n", song.Meaning)
	}
	return nil
}

// SongDeleteCmd deletes a song.
type SongDeleteCmd struct {
	ID string `arg:"" help:"Song ID"`
}

func (c *SongDeleteCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSong(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}

// BackupCmd writes the whole library to an archive.
type BackupCmd struct {
	Output string `arg:"" help:"Backup archive path (.tar.gz or .tar.xz)" type:"path"`
}

func (c *BackupCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	manifest, err := archive.Backup(context.Background(), st, c.Output)
	if err != nil {
		return err
	}
	fmt.Printf("Backed up to %s\n", c.Output)
	printCounts(manifest.Counts)
	return nil
}

// RestoreCmd restores records from a backup archive. Records whose IDs
// already exist locally are left untouched.
type RestoreCmd struct {
	Input string `arg:"" help:"Backup archive path" type:"path"`
}

func (c *RestoreCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	manifest, err := archive.Restore(context.Background(), st, c.Input)
	if err != nil {
		return err
	}
	fmt.Printf("Restored from %s\n", c.Input)
	printCounts(manifest.Counts)
	return nil
}

func printCounts(counts map[string]int) {
	for _, kind := range []string{"songs", "singers", "pitches", "templates", "sessions"} {
		fmt.Printf("  %-10s %d\n", kind+":", counts[kind])
	}
}

// StatsCmd summarizes the library.
type StatsCmd struct{}

func (c *StatsCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Library %s\n", CLI.DB)
	fmt.Printf("  songs:     %d\n", stats.Songs)
	fmt.Printf("  singers:   %d\n", stats.Singers)
	fmt.Printf("  pitches:   %d\n", stats.Pitches)
	fmt.Printf("  templates: %d\n", stats.Templates)
	fmt.Printf("  sessions:  %d\n", stats.Sessions)
	if len(stats.Languages) > 0 {
		fmt.Printf("  languages: %s\n", strings.Join(stats.Languages, ", "))
	}
	fmt.Printf("  driver:    %s (%s)\n", stats.Driver.DriverType, stats.Driver.Package)
	return nil
}

// TemplateImportCmd imports a template from a YAML definition file.
type TemplateImportCmd struct {
	Path string `arg:"" help:"Template definition YAML file" type:"path"`
}

func (c *TemplateImportCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	t, err := templatedef.Import(context.Background(), st, c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Imported template %q (%d slides, reference slide %d)\n",
		t.Name, len(t.Slides), t.ReferenceIndex+1)
	return nil
}

// TemplateListCmd lists templates.
type TemplateListCmd struct{}

func (c *TemplateListCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	templates, err := st.ListTemplates(context.Background())
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println("No templates found.")
		return nil
	}
	for _, t := range templates {
		fmt.Printf("%s  %-24s %d slides\n", t.ID, t.Name, len(t.Slides))
	}
	return nil
}

// PitchCheckCmd parses a pitch name and optionally transposes it.
type PitchCheckCmd struct {
	Name      string `arg:"" help:"Pitch name, e.g. C, Bb, F#m"`
	Transpose int    `help:"Semitones to transpose by" short:"t"`
}

func (c *PitchCheckCmd) Run() error {
	p, err := pitch.Parse(c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("%s = semitone %d\n", p.String(), p.Semitone())
	if c.Transpose != 0 {
		shifted := p.Transpose(c.Transpose)
		fmt.Printf("%+d semitones: %s\n", c.Transpose, shifted.String())
	}
	return nil
}

// WebCmd starts the web UI server.
type WebCmd struct {
	Port    int    `help:"HTTP server port" default:"8080"`
	Restart bool   `help:"Kill any existing process on the port and restart" short:"r"`
	TLSCert string `help:"Path to TLS certificate file" type:"path"`
	TLSKey  string `help:"Path to TLS private key file" type:"path"`
}

func (c *WebCmd) Run() error {
	if c.Restart {
		if err := killProcessOnPort(c.Port); err != nil {
			log.Printf("Warning: could not kill existing process: %v", err)
		}
	}
	cfg := web.Config{
		Port:   c.Port,
		DBPath: CLI.DB,
		TLS: web.TLSConfig{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
	}
	return web.Start(cfg)
}

// APICmd starts the REST API server.
type APICmd struct {
	Port              int      `help:"HTTP server port" default:"8081"`
	APIKey            string   `help:"Require this X-API-Key on requests" env:"VERSO_API_KEY"`
	RateLimitRequests int      `help:"Requests per minute per client IP (0 disables)" default:"120"`
	RateLimitBurst    int      `help:"Burst size for rate limiting" default:"20"`
	AllowedOrigins    []string `help:"CORS origin allowlist (default: allow all)"`
	TLSCert           string   `help:"Path to TLS certificate file" type:"path"`
	TLSKey            string   `help:"Path to TLS private key file" type:"path"`
}

func (c *APICmd) Run() error {
	cfg := api.Config{
		Port:              c.Port,
		DBPath:            CLI.DB,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitBurst:    c.RateLimitBurst,
		AllowedOrigins:    c.AllowedOrigins,
		Auth: api.AuthConfig{
			Enabled: c.APIKey != "",
			APIKey:  c.APIKey,
		},
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
	}
	return api.Start(cfg)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("verso version %s\n", version)
	return nil
}

// killProcessOnPort finds and kills any process listening on the given port.
func killProcessOnPort(port int) error {
	var pids []int

	cmd := exec.Command("ss", "-tlnp", fmt.Sprintf("sport = :%d", port))
	output, err := cmd.Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		for _, line := range lines {
			if idx := strings.Index(line, "pid="); idx != -1 {
				rest := line[idx+4:]
				endIdx := strings.IndexAny(rest, ",) \t")
				if endIdx == -1 {
					endIdx = len(rest)
				}
				if pid, err := strconv.Atoi(rest[:endIdx]); err == nil && pid > 0 {
					pids = append(pids, pid)
				}
			}
		}
	}

	if len(pids) == 0 {
		cmd = exec.Command("fuser", fmt.Sprintf("%d/tcp", port))
		output, err = cmd.Output()
		if err == nil {
			for _, p := range strings.Fields(string(output)) {
				if pid, err := strconv.Atoi(p); err == nil && pid > 0 {
					pids = append(pids, pid)
				}
			}
		}
	}

	if len(pids) == 0 {
		cmd = exec.Command("lsof", "-t", "-i", fmt.Sprintf(":%d", port))
		output, err = cmd.Output()
		if err == nil {
			for _, p := range strings.Split(strings.TrimSpace(string(output)), "\n") {
				if pid, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && pid > 0 {
					pids = append(pids, pid)
				}
			}
		}
	}

	if len(pids) == 0 {
		return nil
	}

	for _, pid := range pids {
		log.Printf("Killing existing process on port %d (PID %d)...", port, pid)
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := proc.Kill(); err != nil {
			log.Printf("Warning: failed to kill PID %d: %v", pid, err)
		}
	}

	// Give the process time to release the port.
	time.Sleep(500 * time.Millisecond)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("verso"),
		kong.Description("Verso - song library and presentation composer"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
