// Package learning coordinates households, their profiles and the chapter
// session each household is working through.
package learning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taiganautcapital/thekidvault/internal/analytics"
	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/certificate"
	"github.com/taiganautcapital/thekidvault/internal/live"
	"github.com/taiganautcapital/thekidvault/internal/profile"
	"github.com/taiganautcapital/thekidvault/internal/progress"
	"github.com/taiganautcapital/thekidvault/internal/report"
	"github.com/taiganautcapital/thekidvault/internal/storage"
)

const householdKey = "kv_household"

var (
	// ErrHouseholdNotFound is returned for an unknown or malformed household id.
	ErrHouseholdNotFound = errors.New("learning: household not found")
	// ErrNoActiveProfile is returned when an operation needs a learner.
	ErrNoActiveProfile = errors.New("learning: no active profile")
	// ErrNoSession is returned for session actions before a chapter is started.
	ErrNoSession = errors.New("learning: no chapter session")
)

// Config holds the service dependencies.
type Config struct {
	Catalog *catalog.Catalog
	KV      storage.KV
	Events  analytics.Logger
	Hub     *live.Hub
	Now     func() time.Time
}

// Service is the entry point for every learner-facing operation.
type Service struct {
	cat      *catalog.Catalog
	kv       storage.KV
	profiles *profile.Registry
	engine   *progress.Engine
	events   analytics.Logger
	hub      *live.Hub
	now      func() time.Time

	mu         sync.Mutex
	households map[string]*household
}

// household serialises the operations of one household and holds its
// navigation session.
type household struct {
	mu      sync.Mutex
	session *progress.State
}

// ProfileList is the collection with its active pointer.
type ProfileList struct {
	Profiles []profile.Profile `json:"profiles"`
	Active   int               `json:"active"`
}

// Result is the outcome of a session action.
type Result struct {
	View     progress.View    `json:"view"`
	Outcome  progress.Outcome `json:"outcome"`
	NewStars []string         `json:"new_stars"`
}

// NewService creates a learning service.
func NewService(cfg Config) *Service {
	kv := cfg.KV
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	events := cfg.Events
	if events == nil {
		events = analytics.Nop{}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = live.NewHub()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cat:        cfg.Catalog,
		kv:         kv,
		profiles:   profile.NewRegistry(kv),
		engine:     progress.NewEngine(cfg.Catalog),
		events:     events,
		hub:        hub,
		now:        now,
		households: make(map[string]*household),
	}
}

// Catalog returns the course content.
func (s *Service) Catalog() *catalog.Catalog {
	return s.cat
}

// Hub returns the live update hub.
func (s *Service) Hub() *live.Hub {
	return s.hub
}

// Ping checks the storage backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// CreateHousehold registers a new household and returns its id.
func (s *Service) CreateHousehold(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.kv.Set(ctx, profile.Key(id, householdKey), s.now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("create household: %w", err)
	}
	slog.Info("household created", "household", id)
	return id, nil
}

// Profiles lists the household's profiles.
func (s *Service) Profiles(ctx context.Context, hid string) (ProfileList, error) {
	st, _, err := s.open(ctx, hid)
	if err != nil {
		return ProfileList{}, err
	}
	return ProfileList{Profiles: st.Profiles(), Active: st.ActiveIndex()}, nil
}

// AddProfile creates a profile, makes it active and resets the session.
func (s *Service) AddProfile(ctx context.Context, hid, name string) (int, error) {
	st, h, err := s.open(ctx, hid)
	if err != nil {
		return -1, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, err := st.AddProfile(ctx, name)
	if err != nil {
		return -1, err
	}
	h.session = nil
	s.logEvent(ctx, hid, strings.TrimSpace(name), analytics.ProfileCreated, map[string]any{"index": idx})
	return idx, nil
}

// SelectProfile switches the active profile and resets the session.
func (s *Service) SelectProfile(ctx context.Context, hid string, index int) error {
	st, h, err := s.open(ctx, hid)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := st.SelectProfile(ctx, index); err != nil {
		return err
	}
	h.session = nil
	p, _, _ := st.Active()
	s.logEvent(ctx, hid, p.Name, analytics.ProfileSelected, map[string]any{"index": index})
	return nil
}

// DeleteProfile removes a profile and returns how many remain. The session
// is reset because the active profile may have changed.
func (s *Service) DeleteProfile(ctx context.Context, hid string, index int) (int, error) {
	st, h, err := s.open(ctx, hid)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := st.DeleteProfile(ctx, index)
	if err != nil {
		return n, err
	}
	h.session = nil
	s.logEvent(ctx, hid, "", analytics.ProfileDeleted, map[string]any{"index": index, "remaining": n})
	return n, nil
}

// StartChapter begins chapter ci for the active profile.
func (s *Service) StartChapter(ctx context.Context, hid string, ci int) (progress.View, error) {
	res, err := s.Act(ctx, hid, progress.Action{Type: progress.ActionStart, Index: ci})
	if err != nil {
		return progress.View{}, err
	}
	return res.View, nil
}

// Act applies a learner action to the household's session, records any
// stars earned and notifies live subscribers.
func (s *Service) Act(ctx context.Context, hid string, action progress.Action) (Result, error) {
	st, h, err := s.open(ctx, hid)
	if err != nil {
		return Result{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	p, _, ok := st.Active()
	if !ok {
		return Result{}, ErrNoActiveProfile
	}

	var current progress.State
	if action.Type != progress.ActionStart {
		if h.session == nil {
			return Result{}, ErrNoSession
		}
		current = *h.session
	}

	tr, err := s.engine.Reduce(current, action)
	if err != nil {
		return Result{}, err
	}
	view, err := s.engine.View(tr.State)
	if err != nil {
		return Result{}, err
	}
	next := tr.State
	h.session = &next

	if action.Type == progress.ActionStart {
		s.logEvent(ctx, hid, p.Name, analytics.ChapterStart, map[string]any{"chapter": view.ChapterID})
	}

	earned := []string{}
	for _, key := range tr.Stars {
		if st.MarkStar(ctx, key) {
			earned = append(earned, key)
			s.logEvent(ctx, hid, p.Name, starEvent(key), map[string]any{"star": key})
		}
	}
	if len(earned) > 0 {
		s.publish(hid, st, earned)
	}

	return Result{View: view, Outcome: tr.Outcome, NewStars: earned}, nil
}

// Session returns the current view of the household's session.
func (s *Service) Session(ctx context.Context, hid string) (progress.View, error) {
	st, h, err := s.open(ctx, hid)
	if err != nil {
		return progress.View{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, _, ok := st.Active(); !ok {
		return progress.View{}, ErrNoActiveProfile
	}
	if h.session == nil {
		return progress.View{}, ErrNoSession
	}
	return s.engine.View(*h.session)
}

// Progress returns the active profile's progress snapshot.
func (s *Service) Progress(ctx context.Context, hid string) (string, progress.Snapshot, error) {
	p, err := s.active(ctx, hid)
	if err != nil {
		return "", progress.Snapshot{}, err
	}
	return p.Name, progress.TakeSnapshot(s.cat, p.Stars), nil
}

// Certificate evaluates the certificate gate for the active profile.
func (s *Service) Certificate(ctx context.Context, hid string) (certificate.Status, error) {
	p, err := s.active(ctx, hid)
	if err != nil {
		return certificate.Status{}, err
	}
	return certificate.Check(s.cat, p.Stars), nil
}

// IssueCertificate issues the certificate for the active profile under name.
func (s *Service) IssueCertificate(ctx context.Context, hid, name string) (certificate.Certificate, error) {
	p, err := s.active(ctx, hid)
	if err != nil {
		return certificate.Certificate{}, err
	}
	cert, err := certificate.Issue(s.cat, name, p.Stars, s.now())
	if err != nil {
		return certificate.Certificate{}, err
	}
	s.logEvent(ctx, hid, p.Name, analytics.CertificateIssued, map[string]any{"name": cert.Name})
	return cert, nil
}

// Report writes the household's progress workbook to w.
func (s *Service) Report(ctx context.Context, hid string, w io.Writer) error {
	st, _, err := s.open(ctx, hid)
	if err != nil {
		return err
	}
	return report.Write(w, s.cat, st.Profiles())
}

// LiveUpdate returns the frame describing the active profile's current
// progress, or nil when no profile is active.
func (s *Service) LiveUpdate(ctx context.Context, hid string) (*live.Update, error) {
	st, _, err := s.open(ctx, hid)
	if err != nil {
		return nil, err
	}
	p, _, ok := st.Active()
	if !ok {
		return nil, nil
	}
	u := s.update(hid, p, nil)
	return &u, nil
}

func (s *Service) active(ctx context.Context, hid string) (profile.Profile, error) {
	st, _, err := s.open(ctx, hid)
	if err != nil {
		return profile.Profile{}, err
	}
	p, _, ok := st.Active()
	if !ok {
		return profile.Profile{}, ErrNoActiveProfile
	}
	return p, nil
}

// open resolves a household id to its profile store and session holder.
func (s *Service) open(ctx context.Context, hid string) (*profile.Store, *household, error) {
	if id, err := uuid.Parse(hid); err != nil || id.String() != hid {
		return nil, nil, ErrHouseholdNotFound
	}

	s.mu.Lock()
	h, ok := s.households[hid]
	s.mu.Unlock()

	if !ok {
		_, found, err := s.kv.Get(ctx, profile.Key(hid, householdKey))
		if err != nil {
			return nil, nil, fmt.Errorf("lookup household: %w", err)
		}
		if !found {
			return nil, nil, ErrHouseholdNotFound
		}
		s.mu.Lock()
		if h, ok = s.households[hid]; !ok {
			h = &household{}
			s.households[hid] = h
		}
		s.mu.Unlock()
	}
	return s.profiles.Get(ctx, hid), h, nil
}

func (s *Service) publish(hid string, st *profile.Store, earned []string) {
	p, _, ok := st.Active()
	if !ok {
		return
	}
	s.hub.Publish(s.update(hid, p, earned))
}

func (s *Service) update(hid string, p profile.Profile, earned []string) live.Update {
	return live.Update{
		Household: hid,
		Profile:   p.Name,
		Stars:     earned,
		Snapshot:  progress.TakeSnapshot(s.cat, p.Stars),
		At:        s.now(),
	}
}

// logEvent records an analytics event; failures never reach the learner.
func (s *Service) logEvent(ctx context.Context, hid, name, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, analytics.Event{
		Household: hid,
		Profile:   name,
		Type:      eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("analytics event failed", "type", eventType, "household", hid, "error", err)
	}
}

func starEvent(key string) string {
	switch {
	case strings.HasSuffix(key, "-quiz"):
		return analytics.QuizComplete
	case strings.HasSuffix(key, "-act"):
		return analytics.ActivityComplete
	}
	return analytics.LessonComplete
}
