// Package api exposes the learning service over JSON HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/certificate"
	"github.com/taiganautcapital/thekidvault/internal/learning"
	"github.com/taiganautcapital/thekidvault/internal/profile"
	"github.com/taiganautcapital/thekidvault/internal/progress"
	"github.com/taiganautcapital/thekidvault/internal/report"
	"github.com/taiganautcapital/thekidvault/internal/subscribe"
	"github.com/taiganautcapital/thekidvault/internal/vocab"
)

const maxBodyBytes = 1 << 20

// Handler serves every API endpoint.
type Handler struct {
	svc        *learning.Service
	annotator  *vocab.Annotator
	subscriber *subscribe.Client
	origins    []string
}

// NewHandler creates the API handler.
func NewHandler(svc *learning.Service, subscriber *subscribe.Client, origins []string) *Handler {
	if subscriber == nil {
		subscriber = subscribe.New(subscribe.Options{})
	}
	return &Handler{
		svc:        svc,
		annotator:  vocab.New(svc.Catalog().Glossary()),
		subscriber: subscriber,
		origins:    origins,
	}
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// serviceError maps domain errors onto HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, learning.ErrHouseholdNotFound),
		errors.Is(err, profile.ErrProfileNotFound):
		errorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, profile.ErrEmptyName),
		errors.Is(err, certificate.ErrNameRequired),
		errors.Is(err, progress.ErrOutOfRange),
		errors.Is(err, progress.ErrUnknownAction):
		errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, progress.ErrWrongPhase),
		errors.Is(err, progress.ErrAnswerLocked),
		errors.Is(err, progress.ErrNoAnswer),
		errors.Is(err, learning.ErrNoActiveProfile),
		errors.Is(err, learning.ErrNoSession):
		errorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, certificate.ErrLocked):
		errorResponse(w, err.Error(), http.StatusForbidden)
	default:
		slog.Error("request failed", "error", err)
		errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorResponse(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// === System ===

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		slog.Warn("readiness check failed", "error", err)
		jsonResponse(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	jsonResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// === Catalog ===

type chapterSummary struct {
	ID          int                  `json:"id"`
	Title       string               `json:"title"`
	Icon        string               `json:"icon"`
	Description string               `json:"description"`
	Lessons     int                  `json:"lessons"`
	Questions   int                  `json:"questions"`
	Activity    catalog.ActivityType `json:"activity"`
	TotalStars  int                  `json:"total_stars"`
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.svc.Catalog()
	chapters := make([]chapterSummary, 0, cat.Len())
	for _, ch := range cat.Chapters() {
		chapters = append(chapters, chapterSummary{
			ID:          ch.ID,
			Title:       ch.Title,
			Icon:        ch.Icon,
			Description: ch.Description,
			Lessons:     len(ch.Lessons),
			Questions:   len(ch.Quiz),
			Activity:    ch.Activity.Type,
			TotalStars:  ch.StarTotal(),
		})
	}
	jsonResponse(w, map[string]any{
		"chapters":    chapters,
		"total_stars": cat.TotalStars(),
	}, http.StatusOK)
}

func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["chapter"])
	if err != nil {
		errorResponse(w, "chapter must be a number", http.StatusBadRequest)
		return
	}
	ch, _, ok := h.svc.Catalog().ChapterByID(id)
	if !ok {
		errorResponse(w, "chapter not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, ch, http.StatusOK)
}

func (h *Handler) GetGlossary(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{"terms": h.svc.Catalog().Glossary()}, http.StatusOK)
}

func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	segments := h.annotator.Annotate(req.Text)
	if segments == nil {
		segments = []vocab.Segment{}
	}
	jsonResponse(w, map[string]any{"segments": segments}, http.StatusOK)
}

// === Households & profiles ===

func (h *Handler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.CreateHousehold(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]string{"household": id}, http.StatusCreated)
}

func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Profiles(r.Context(), mux.Vars(r)["hid"])
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, list, http.StatusOK)
}

func (h *Handler) AddProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	idx, err := h.svc.AddProfile(r.Context(), mux.Vars(r)["hid"], req.Name)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]int{"index": idx, "active": idx}, http.StatusCreated)
}

func (h *Handler) SelectProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		errorResponse(w, "index is required", http.StatusBadRequest)
		return
	}
	hid := mux.Vars(r)["hid"]
	if err := h.svc.SelectProfile(r.Context(), hid, *req.Index); err != nil {
		serviceError(w, err)
		return
	}
	h.GetProfiles(w, r)
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, err := strconv.Atoi(vars["index"])
	if err != nil {
		errorResponse(w, "index must be a number", http.StatusBadRequest)
		return
	}
	remaining, err := h.svc.DeleteProfile(r.Context(), vars["hid"], idx)
	if err != nil {
		serviceError(w, err)
		return
	}
	list, err := h.svc.Profiles(r.Context(), vars["hid"])
	if err != nil {
		serviceError(w, err)
		return
	}

	next := "chapters"
	if remaining == 0 {
		next = "create_profile"
	}
	jsonResponse(w, map[string]any{
		"remaining": remaining,
		"active":    list.Active,
		"next":      next,
	}, http.StatusOK)
}

// === Progress & session ===

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	name, snap, err := h.svc.Progress(r.Context(), mux.Vars(r)["hid"])
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"profile": name, "progress": snap}, http.StatusOK)
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chapter int `json:"chapter"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.svc.StartChapter(r.Context(), mux.Vars(r)["hid"], req.Chapter-1)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Session(r.Context(), mux.Vars(r)["hid"])
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, view, http.StatusOK)
}

// actionRequest is a session action. Chapter is the chapter id used by
// start and activity_done; Index is the lesson or option index.
type actionRequest struct {
	Type    progress.ActionType `json:"type"`
	Index   int                 `json:"index"`
	Chapter int                 `json:"chapter"`
}

func (h *Handler) SessionAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	action := progress.Action{Type: req.Type, Index: req.Index}
	if req.Type == progress.ActionStart || req.Type == progress.ActionActivityDone {
		action.Index = req.Chapter - 1
	}

	res, err := h.svc.Act(r.Context(), mux.Vars(r)["hid"], action)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, res, http.StatusOK)
}

// === Certificate & report ===

func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Certificate(r.Context(), mux.Vars(r)["hid"])
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, st, http.StatusOK)
}

func (h *Handler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	cert, err := h.svc.IssueCertificate(r.Context(), mux.Vars(r)["hid"], req.Name)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, cert, http.StatusCreated)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Report(r.Context(), mux.Vars(r)["hid"], &buf); err != nil {
		serviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="kidvault-progress.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// === Live updates ===

func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	hid := mux.Vars(r)["hid"]
	initial, err := h.svc.LiveUpdate(r.Context(), hid)
	if err != nil {
		serviceError(w, err)
		return
	}
	h.svc.Hub().Stream(w, r, hid, initial, websocketOrigins(h.origins))
}

// websocketOrigins converts CORS origins into host patterns; "*" allows all.
func websocketOrigins(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}

// === Newsletter ===

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// A malformed body is treated like a missing email.
	_ = json.NewDecoder(r.Body).Decode(&req)

	err := h.subscriber.Subscribe(r.Context(), req.Email)
	var upstream *subscribe.UpstreamError
	switch {
	case err == nil:
		jsonResponse(w, map[string]bool{"success": true}, http.StatusOK)
	case errors.Is(err, subscribe.ErrInvalidEmail):
		errorResponse(w, "Valid email required", http.StatusBadRequest)
	case errors.Is(err, subscribe.ErrNotConfigured):
		errorResponse(w, "Server configuration error", http.StatusInternalServerError)
	case errors.As(err, &upstream):
		msg := upstream.Message
		if msg == "" {
			msg = "Subscription failed"
		}
		errorResponse(w, msg, http.StatusBadRequest)
	default:
		errorResponse(w, "Network error", http.StatusInternalServerError)
	}
}
