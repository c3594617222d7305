package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appLog "wodcal/internal/log"
	"wodcal/internal/metrics"
	"wodcal/internal/model"
	"wodcal/internal/schedule"
)

const calendarFilename = "crossfit_timetable.ics"

// ErrUnauthorized is reported for a missing or wrong token.
var ErrUnauthorized = errors.New("unauthorized")

// Timetable fetches aggregated events for planned weeks.
type Timetable interface {
	Fetch(ctx context.Context, windows []model.WeekWindow) (schedule.Result, error)
}

// CalendarEncoder renders events as a calendar document.
type CalendarEncoder interface {
	Encode(events []model.Event) ([]byte, error)
}

// Readiness reports the latest upstream probe.
type Readiness interface {
	Status() schedule.ProbeStatus
}

// Deps are the collaborators a Server needs. Probe may be nil, in which
// case the service always reports ready.
type Deps struct {
	AuthToken string
	Location  *time.Location
	Timetable Timetable
	Encoder   CalendarEncoder
	Probe     Readiness
	Now       func() time.Time
}

// Server exposes the timetable as JSON and iCalendar over HTTP.
type Server struct {
	deps   Deps
	router *mux.Router
}

// NewServer constructs a new Server.
func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	s := &Server{deps: d, router: mux.NewRouter()}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.router)
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz/live", s.handleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz/ready", s.handleReady).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.requireToken)
	protected.HandleFunc("/timetable", s.handleTimetableJSON).Methods(http.MethodGet)
	protected.HandleFunc("/timetable.ical", s.handleTimetableICal).Methods(http.MethodGet)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "wodcal",
		"endpoints": []string{
			"/timetable?weeks=1-6&start_date=YYYY-MM-DD",
			"/timetable.ical?weeks=1-6&start_date=YYYY-MM-DD",
			"/healthz/live",
			"/healthz/ready",
			"/metrics",
		},
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Probe == nil {
		writeJSON(w, http.StatusOK, schedule.ProbeStatus{Ready: true})
		return
	}
	st := s.deps.Probe.Status()
	code := http.StatusOK
	if !st.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

// requireToken accepts "Authorization: Bearer <token>" or ?token=.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="wodcal"`)
			writeError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.deps.AuthToken == "" {
		return false
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && secureCompare(strings.TrimSpace(token), s.deps.AuthToken) {
			return true
		}
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return secureCompare(q, s.deps.AuthToken)
	}
	return false
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleTimetableJSON(w http.ResponseWriter, r *http.Request) {
	events, code, err := s.timetable(r)
	metrics.RecordRequest("json", strconv.Itoa(code))
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleTimetableICal(w http.ResponseWriter, r *http.Request) {
	events, code, err := s.timetable(r)
	if err != nil {
		metrics.RecordRequest("ical", strconv.Itoa(code))
		writeError(w, code, err.Error())
		return
	}

	body, err := s.deps.Encoder.Encode(events)
	if err != nil {
		appLog.Error("calendar encode failed", err)
		metrics.RecordRequest("ical", strconv.Itoa(http.StatusInternalServerError))
		writeError(w, http.StatusInternalServerError, "failed to encode calendar")
		return
	}

	metrics.RecordRequest("ical", strconv.Itoa(http.StatusOK))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+calendarFilename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// timetable runs plan + fetch for a request and maps failures onto status
// codes: bad input 400, upstream failure 502, nothing scheduled 404.
func (s *Server) timetable(r *http.Request) ([]model.Event, int, error) {
	req, err := s.planRequest(r.URL.Query())
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	windows, err := schedule.Plan(req)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	res, err := s.deps.Timetable.Fetch(r.Context(), windows)
	switch {
	case errors.Is(err, schedule.ErrFetchFailed):
		return nil, http.StatusBadGateway, fmt.Errorf("upstream agenda unavailable: %w", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, http.StatusGatewayTimeout, errors.New("request cancelled")
	case err != nil:
		appLog.Error("timetable fetch failed", err)
		return nil, http.StatusInternalServerError, errors.New("internal error")
	}

	if len(res.Events) == 0 {
		return nil, http.StatusNotFound, errors.New("no classes found")
	}
	return res.Events, http.StatusOK, nil
}

func (s *Server) planRequest(q url.Values) (schedule.PlanRequest, error) {
	req := schedule.PlanRequest{Weeks: 1, Today: s.deps.Now().In(s.deps.Location)}

	if v := q.Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: weeks must be an integer", schedule.ErrInvalidRequest)
		}
		req.Weeks = n
	}
	if v := q.Get("start_date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.deps.Location)
		if err != nil {
			return req, fmt.Errorf("%w: start_date must be YYYY-MM-DD", schedule.ErrInvalidRequest)
		}
		req.StartDate = &d
	}
	return req, nil
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
