package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ttcal/internal/codec"
	"ttcal/internal/config"
	"ttcal/internal/ics"
	appLog "ttcal/internal/log"
	"ttcal/internal/model"
)

// maxBody bounds request bodies accepted by /api/encode.
const maxBody = 1 << 20

// Server exposes the calendar download and token helper endpoints. It holds
// only immutable configuration; handlers share no mutable state.
type Server struct {
	cfg    *config.Config
	codec  *codec.Codec
	gen    *ics.Generator
	log    *appLog.Logger
	router *mux.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, logger *appLog.Logger) *Server {
	if logger == nil {
		logger = appLog.Default()
	}
	s := &Server{
		cfg:    cfg,
		codec:  codec.New(logger),
		gen:    cfg.Generator(),
		log:    logger,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, logger *appLog.Logger) error {
	s := NewServer(cfg, logger)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
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
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ical", s.handleICal).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/encode", s.handleEncode).Methods(http.MethodPost)
	api.HandleFunc("/decode", s.handleDecode).Methods(http.MethodGet)
	api.HandleFunc("/preview", s.handlePreview).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// decodeParam parses the "data" token. It writes a 400 and returns false
// when the token is missing or undecodable.
func (s *Server) decodeParam(w http.ResponseWriter, r *http.Request) (model.Timetable, bool) {
	token := r.URL.Query().Get("data")
	if token == "" {
		http.Error(w, "Error: No data", http.StatusBadRequest)
		return nil, false
	}
	t, err := codec.Parse(token)
	if err != nil {
		s.log.Error("rejecting undecodable token", err, "token_len", len(token))
		http.Error(w, "Error: Invalid data", http.StatusBadRequest)
		return nil, false
	}
	return t, true
}

func scheduleRequest(r *http.Request) config.Request {
	q := r.URL.Query()
	return config.Request{
		Title:    q.Get("title"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Times:    q.Get("times"),
		Duration: q.Get("duration"),
	}
}

// handleICal returns the calendar document as an attachment.
//
// GET /ical?data=<token>&title=&start=YYYY-MM-DD&end=YYYY-MM-DD&times={"1":"09:00"}&duration=90
func (s *Server) handleICal(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeParam(w, r)
	if !ok {
		return
	}

	sched := s.cfg.ResolveSchedule(scheduleRequest(r), s.log)
	doc := s.gen.Generate(t, sched)

	s.log.Debug("ical generated", "entries", len(t), "events", len(doc.Events), "start", sched.Start.String(), "end", sched.End.String())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := doc.WriteTo(w); err != nil {
		s.log.Error("failed to write calendar", err)
	}
}

type encodeResponse struct {
	Token string `json:"token"`
}

// handleEncode turns a timetable JSON body into a token.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	var t model.Timetable
	if err := json.Unmarshal(body, &t); err != nil {
		writeError(w, http.StatusBadRequest, "body is not a timetable")
		return
	}
	writeJSON(w, http.StatusOK, encodeResponse{Token: s.codec.Encode(t)})
}

// handleDecode returns the timetable carried by a token.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type occurrenceDTO struct {
	Key      string    `json:"key"`
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type previewResponse struct {
	Title       string          `json:"title"`
	Timezone    string          `json:"timezone"`
	Start       ics.Date        `json:"start"`
	End         ics.Date        `json:"end"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

// handlePreview lists the concrete lessons of the first weeks of the
// semester.
//
// GET /api/preview?data=<token>&weeks=1 (plus the /ical parameters)
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeParam(w, r)
	if !ok {
		return
	}
	weeks := parseIntDefault(r.URL.Query().Get("weeks"), 1)
	if weeks <= 0 || weeks > 52 {
		weeks = 1
	}

	sched := s.cfg.ResolveSchedule(scheduleRequest(r), s.log)
	doc := s.gen.Generate(t, sched)

	loc := s.gen.Zone.Location()
	from := sched.Start.At(0, 0, 0, loc)
	occ, err := ics.ExpandOccurrences(doc.Events, ics.ExpandConfig{
		RangeStart: from,
		RangeEnd:   from.AddDate(0, 0, 7*weeks),
	})
	if err != nil {
		s.log.Error("preview expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occ))
	for _, o := range occ {
		dtos = append(dtos, occurrenceDTO{
			Key:      o.Key,
			UID:      o.UID,
			Summary:  o.Summary,
			Location: o.Location,
			Start:    o.Start,
			End:      o.End,
		})
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Title:       sched.Title,
		Timezone:    s.gen.Zone.Name,
		Start:       sched.Start,
		End:         sched.End,
		Occurrences: dtos,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
