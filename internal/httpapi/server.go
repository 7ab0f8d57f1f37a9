// Package httpapi is the JSON surface the renderer talks to. Handlers
// translate HTTP into service calls and service errors back into status
// codes; no game semantics live here.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"genshin_assistant/internal/config"
	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/metrics"
	"genshin_assistant/internal/model"
	"genshin_assistant/internal/service"
	"genshin_assistant/internal/storage"
	"genshin_assistant/internal/store/sqlite"
	"genshin_assistant/internal/ws"
)

type Options struct {
	Cfg           config.Config
	Bus           *logbus.Bus
	Accounts      *service.AccountService
	Queries       *service.QueryService
	Actions       *service.ActionService
	Subscriptions *storage.SubscriptionStore
	History       *sqlite.Store
	Metrics       *metrics.Collector
}

type Server struct {
	cfg      config.Config
	bus      *logbus.Bus
	accounts *service.AccountService
	queries  *service.QueryService
	actions  *service.ActionService
	subs     *storage.SubscriptionStore
	history  *sqlite.Store
	metrics  *metrics.Collector
	ws       *ws.Handler
}

func New(opts Options) *Server {
	return &Server{
		cfg:      opts.Cfg,
		bus:      opts.Bus,
		accounts: opts.Accounts,
		queries:  opts.Queries,
		actions:  opts.Actions,
		subs:     opts.Subscriptions,
		history:  opts.History,
		metrics:  opts.Metrics,
		ws:       ws.NewHandler(opts.Bus, opts.Cfg.Server.Cors.AllowOrigins),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.ws)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/users/{user}/cookie", s.handleSubmitCookie)
	api.HandleFunc("PUT /api/v1/users/{user}/uid", s.handleSetUID)
	api.HandleFunc("DELETE /api/v1/users/{user}", s.handleDeleteUser)
	api.HandleFunc("GET /api/v1/users/{user}/notes", s.handleNotes)
	api.HandleFunc("GET /api/v1/users/{user}/abyss", s.handleAbyss)
	api.HandleFunc("GET /api/v1/users/{user}/diary", s.handleDiary)
	api.HandleFunc("GET /api/v1/users/{user}/record-card", s.handleRecordCard)
	api.HandleFunc("GET /api/v1/users/{user}/characters", s.handleCharacters)
	api.HandleFunc("POST /api/v1/users/{user}/redeem", s.handleRedeem)
	api.HandleFunc("POST /api/v1/users/{user}/daily", s.handleDaily)
	api.HandleFunc("GET /api/v1/users/{user}/history", s.handleHistory)
	api.HandleFunc("PUT /api/v1/users/{user}/subscriptions/{kind}", s.handleSubscribe)
	api.HandleFunc("DELETE /api/v1/users/{user}/subscriptions/{kind}", s.handleUnsubscribe)

	mux.Handle("/api/", corsMiddleware(s.cfg.Server.Cors, api))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSubmitCookie(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("submit_cookie")
	var body struct {
		Cookie string `json:"cookie"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	result, err := s.accounts.SubmitCookie(r.Context(), r.PathValue("user"), body.Cookie)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

func (s *Server) handleSetUID(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("set_uid")
	var body struct {
		UID    string `json:"uid"`
		Verify bool   `json:"verify"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if err := s.accounts.SetUID(r.Context(), r.PathValue("user"), body.UID, body.Verify); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleDeleteUser removes everything stored for the user: credentials,
// activity, both subscriptions, and history rows.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("delete_user")
	userID := r.PathValue("user")
	removed := s.accounts.Remove(userID)
	s.subs.Remove(model.KindDailyCheckIn, userID)
	s.subs.Remove(model.KindResinAlert, userID)
	if s.history != nil {
		if err := s.history.DeleteUser(r.Context(), userID); err != nil {
			s.bus.UserLog("warn", userID, "history cleanup failed", map[string]any{"error": err.Error()})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("notes")
	notes, err := s.queries.Notes(r.Context(), r.PathValue("user"), false)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": notes})
}

func (s *Server) handleAbyss(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("abyss")
	previous := r.URL.Query().Get("previous") == "true"
	abyss, err := s.queries.Abyss(r.Context(), r.PathValue("user"), previous)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": abyss})
}

func (s *Server) handleDiary(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("diary")
	offset := 0
	if v := strings.TrimSpace(r.URL.Query().Get("monthOffset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > 0 || n < -2 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "monthOffset must be 0, -1 or -2"})
			return
		}
		offset = n
	}
	diary, err := s.queries.Diary(r.Context(), r.PathValue("user"), offset)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": diary})
}

func (s *Server) handleRecordCard(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("record_card")
	card, err := s.queries.RecordCard(r.Context(), r.PathValue("user"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": card})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("characters")
	chars, err := s.queries.Characters(r.Context(), r.PathValue("user"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": chars})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("redeem")
	var body struct {
		Code string `json:"code"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "code is required"})
		return
	}
	msg := s.actions.RedeemCode(r.Context(), r.PathValue("user"), code)
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"message": msg}})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("daily_checkin")
	var body struct {
		WithHonkai bool `json:"withHonkai"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
	}
	result := s.actions.ClaimDailyReward(r.Context(), r.PathValue("user"), service.ClaimOptions{
		Honkai: body.WithHonkai,
	})
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"message":     result.Message,
		"authExpired": result.AuthExpired,
	}})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("history")
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "history store unavailable"})
		return
	}
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.history.ListByUser(r.Context(), r.PathValue("user"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("subscribe")
	kind, ok := subscriptionKind(r.PathValue("kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown subscription kind"})
		return
	}
	var body struct {
		ChannelID  string `json:"channelId"`
		Mention    bool   `json:"mention"`
		WithHonkai bool   `json:"withHonkai"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if strings.TrimSpace(body.ChannelID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "channelId is required"})
		return
	}
	// Require a usable credential up front so a subscription cannot be
	// born broken and immediately pruned by the next sweep.
	userID := r.PathValue("user")
	if _, err := s.accounts.Gate(userID, true, true); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.subs.Upsert(kind, model.Subscription{
		UserID:     userID,
		ChannelID:  strings.TrimSpace(body.ChannelID),
		Mention:    body.Mention,
		WithHonkai: body.WithHonkai,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordCommand("unsubscribe")
	kind, ok := subscriptionKind(r.PathValue("kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown subscription kind"})
		return
	}
	removed := s.subs.Remove(kind, r.PathValue("user"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
}

func subscriptionKind(raw string) (model.SubscriptionKind, bool) {
	switch raw {
	case string(model.KindDailyCheckIn):
		return model.KindDailyCheckIn, true
	case string(model.KindResinAlert):
		return model.KindResinAlert, true
	}
	return "", false
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var userErr *service.UserError
	if errors.As(err, &userErr) {
		writeJSON(w, statusFor(userErr.Reason), map[string]any{"error": userErr.Msg})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func statusFor(reason service.Reason) int {
	switch reason {
	case service.ReasonBadInput:
		return http.StatusBadRequest
	case service.ReasonNotRegistered, service.ReasonNotFound:
		return http.StatusNotFound
	case service.ReasonAuthExpired:
		return http.StatusUnauthorized
	case service.ReasonNotPublic:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}
