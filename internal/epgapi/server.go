// Package epgapi exposes a thin, read-only EPG HTTP surface: XMLTV and JSON
// views over the EPG events a DayProvider supplies for one channel and
// broadcast date. It never triggers planning itself (§4.8's NoScheduleDataError
// discipline applies here exactly as it does to ChannelManager).
package epgapi

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/time/rate"

	"github.com/retrovue/core/internal/domain/epg"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/horizon"
)

// globalRateLimit bounds total request volume across all callers, on top
// of httprate's per-IP limit — a single misbehaving proxy fanning out many
// source IPs still can't exceed this ceiling.
const (
	globalRate  rate.Limit = 500
	globalBurst            = 1000
)

// DayProvider is the read surface the API needs: a derived EPG day for one
// channel and broadcast date. The caller supplies the implementation (this
// package ships none); it is kept this narrow so handlers are trivially
// testable against a fake.
type DayProvider interface {
	EventsForDay(channelID, broadcastDate string) ([]model.EPGEvent, error)
}

// Server is the EPG read API.
type Server struct {
	provider DayProvider
	global   *rate.Limiter
}

// NewServer builds an EPG API server over provider.
func NewServer(provider DayProvider) *Server {
	return &Server{provider: provider, global: rate.NewLimiter(globalRate, globalBurst)}
}

// Router builds the chi router: globally and per-IP rate-limited,
// recovered, JSON and XMLTV routes for one channel's day.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.globalRateLimit)
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/channels/{channelID}/days/{broadcastDate}/events.json", s.handleEventsJSON)
	r.Get("/channels/{channelID}/days/{broadcastDate}/xmltv.xml", s.handleXMLTV)
	return r
}

func (s *Server) globalRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.global.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEventsJSON(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	broadcastDate := chi.URLParam(r, "broadcastDate")

	events, err := s.provider.EventsForDay(channelID, broadcastDate)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	broadcastDate := chi.URLParam(r, "broadcastDate")

	events, err := s.provider.EventsForDay(channelID, broadcastDate)
	if err != nil {
		writeError(w, err)
		return
	}

	tv := epg.BuildTV(channelID, channelID, events)
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header)) //nolint:errcheck
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if _, ok := err.(*horizon.NoScheduleDataError); ok {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
