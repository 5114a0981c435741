package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"worklog/internal/board"
	"worklog/internal/config"
	appLog "worklog/internal/log"
)

// Server provides the read-only calendar API and the embedded calendar page.
type Server struct {
	cfg   *config.Config
	board *board.Board
	mux   *http.ServeMux
}

// embeddedStatic contains the calendar page served under /.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, b *board.Board) *Server {
	s := &Server{
		cfg:   cfg,
		board: b,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="WorkLog", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/jobs", s.handleJobs)
	s.mux.HandleFunc("GET /api/palette", s.handlePalette)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /snapshot.png", s.handleSnapshotPNG)

	// Everything else falls through to the embedded calendar page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleJobs returns the cached colored calendar, building it on first use.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	snap, err := s.board.Snapshot(r.Context())
	if err != nil {
		appLog.Error("api jobs: snapshot failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(snap))
}

// handleRefresh rebuilds the calendar now. Source failures still return the
// new snapshot; they are listed in source_errors.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.board.Refresh(r.Context())
	if snap == nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(snap))
}

func (s *Server) handlePalette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, paletteResponse{Palette: s.cfg.Palette})
}

// handleSnapshotPNG serves the last captured calendar PNG from disk.
func (s *Server) handleSnapshotPNG(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.SnapshotPath)
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown /api/* paths must 404 rather than return HTML.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// jobsResponse is the JSON response shape for /api/jobs.
type jobsResponse struct {
	Jobs            []jobDTO  `json:"jobs"`
	Palette         []string  `json:"palette"`
	RangeStart      time.Time `json:"range_start"`
	RangeEnd        time.Time `json:"range_end"`
	DisplayTimeZone string    `json:"display_timezone"`
	WeekStart       string    `json:"week_start"`
	MaxConcurrent   int       `json:"max_concurrent"`
	Overflow        bool      `json:"overflow"`
	UpdatedAt       time.Time `json:"updated_at"`
	SourceErrors    []string  `json:"source_errors,omitempty"`
}

// jobDTO is a JSON-friendly view of a colored occurrence.
type jobDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Title       string    `json:"title"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ColorIndex  int       `json:"color_index"`
	Color       string    `json:"color"`
	Collision   bool      `json:"collision,omitempty"`
}

type paletteResponse struct {
	Palette []string `json:"palette"`
}

func (s *Server) toResponse(snap *board.Snapshot) jobsResponse {
	dtos := make([]jobDTO, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		dtos = append(dtos, jobDTO{
			SourceID:    j.SourceID,
			UID:         j.UID,
			InstanceKey: j.InstanceKey,
			Title:       j.Title,
			Address:     j.Address,
			Description: j.Description,
			AllDay:      j.AllDay,
			Start:       j.Start,
			End:         j.End,
			ColorIndex:  j.ColorIndex,
			Color:       j.Color,
			Collision:   j.Collision,
		})
	}
	return jobsResponse{
		Jobs:            dtos,
		Palette:         snap.Palette,
		RangeStart:      snap.RangeStart,
		RangeEnd:        snap.RangeEnd,
		DisplayTimeZone: snap.Timezone,
		WeekStart:       s.cfg.WeekStart,
		MaxConcurrent:   snap.MaxConcurrent,
		Overflow:        snap.Overflow,
		UpdatedAt:       snap.UpdatedAt,
		SourceErrors:    snap.SourceErrors,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
