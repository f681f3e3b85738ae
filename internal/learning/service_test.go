package learning_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/taiganautcapital/thekidvault/internal/analytics"
	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/certificate"
	"github.com/taiganautcapital/thekidvault/internal/learning"
	"github.com/taiganautcapital/thekidvault/internal/live"
	"github.com/taiganautcapital/thekidvault/internal/profile"
	"github.com/taiganautcapital/thekidvault/internal/progress"
	"github.com/taiganautcapital/thekidvault/internal/storage"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *learning.Service
	events *analytics.Memory
	hub    *live.Hub
	kv     *storage.MemoryKV
	hid    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() error = %v", err)
	}
	f := &fixture{
		events: analytics.NewMemory(),
		hub:    live.NewHub(),
		kv:     storage.NewMemoryKV(),
	}
	f.svc = learning.NewService(learning.Config{
		Catalog: cat,
		KV:      f.kv,
		Events:  f.events,
		Hub:     f.hub,
		Now:     func() time.Time { return fixedNow },
	})
	f.hid, err = f.svc.CreateHousehold(t.Context())
	if err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}
	return f
}

func (f *fixture) act(t *testing.T, a progress.Action) learning.Result {
	t.Helper()
	res, err := f.svc.Act(t.Context(), f.hid, a)
	if err != nil {
		t.Fatalf("Act(%+v) error = %v", a, err)
	}
	return res
}

// completeChapter plays chapter ci to the end, answering every question with
// option 0.
func (f *fixture) completeChapter(t *testing.T, ci int) learning.Result {
	t.Helper()
	if _, err := f.svc.StartChapter(t.Context(), f.hid, ci); err != nil {
		t.Fatalf("StartChapter(%d) error = %v", ci, err)
	}
	res := f.act(t, progress.Action{Type: progress.ActionAdvance})
	for res.View.State.Phase == progress.PhaseLessons {
		res = f.act(t, progress.Action{Type: progress.ActionAdvance})
	}
	for res.View.State.Phase == progress.PhaseQuiz {
		f.act(t, progress.Action{Type: progress.ActionAnswer, Index: 0})
		res = f.act(t, progress.Action{Type: progress.ActionAdvance})
	}
	return f.act(t, progress.Action{Type: progress.ActionActivityDone, Index: ci})
}

func TestService_AvaCompletesChapterOne(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.AddProfile(t.Context(), f.hid, "Ava"); err != nil {
		t.Fatalf("AddProfile() error = %v", err)
	}

	sub := f.hub.Subscribe(f.hid)
	defer sub.Close()

	res := f.completeChapter(t, 0)
	if res.Outcome != progress.OutcomeNextChapter || res.View.ChapterID != 2 {
		t.Errorf("after activity: outcome %s, chapter %d", res.Outcome, res.View.ChapterID)
	}
	if !reflect.DeepEqual(res.NewStars, []string{"ch1-act"}) {
		t.Errorf("NewStars = %v, want [ch1-act]", res.NewStars)
	}

	name, snap, err := f.svc.Progress(t.Context(), f.hid)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if name != "Ava" || snap.Earned != 7 || snap.Chapters[0].Earned != 7 || snap.Chapters[0].Total != 7 {
		t.Errorf("Progress() = %s %+v", name, snap)
	}

	want := []string{
		analytics.ProfileCreated, analytics.ChapterStart,
		analytics.LessonComplete, analytics.LessonComplete, analytics.LessonComplete,
		analytics.LessonComplete, analytics.LessonComplete,
		analytics.QuizComplete, analytics.ActivityComplete,
	}
	if got := f.events.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	// One live frame per star-earning action.
	frames := 0
	for len(sub.C) > 0 {
		<-sub.C
		frames++
	}
	if frames != 7 {
		t.Errorf("live frames = %d, want 7", frames)
	}
}

func TestService_ReplayEarnsNothingNew(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")
	f.completeChapter(t, 0)
	before := len(f.events.Events())

	res := f.completeChapter(t, 0)
	if len(res.NewStars) != 0 {
		t.Errorf("replay NewStars = %v", res.NewStars)
	}
	// Only the chapter_start event is new.
	if got := len(f.events.Events()) - before; got != 1 {
		t.Errorf("replay logged %d events, want 1", got)
	}
}

func TestService_RequiresActiveProfile(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.StartChapter(t.Context(), f.hid, 0); !errors.Is(err, learning.ErrNoActiveProfile) {
		t.Errorf("StartChapter() error = %v, want ErrNoActiveProfile", err)
	}
	if _, _, err := f.svc.Progress(t.Context(), f.hid); !errors.Is(err, learning.ErrNoActiveProfile) {
		t.Errorf("Progress() error = %v, want ErrNoActiveProfile", err)
	}
	if _, err := f.svc.Certificate(t.Context(), f.hid); !errors.Is(err, learning.ErrNoActiveProfile) {
		t.Errorf("Certificate() error = %v, want ErrNoActiveProfile", err)
	}
}

func TestService_SessionResetOnProfileChange(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")
	f.svc.AddProfile(t.Context(), f.hid, "Ben")

	if _, err := f.svc.Act(t.Context(), f.hid, progress.Action{Type: progress.ActionAdvance}); !errors.Is(err, learning.ErrNoSession) {
		t.Errorf("Act() before start error = %v, want ErrNoSession", err)
	}

	f.svc.StartChapter(t.Context(), f.hid, 2)
	if _, err := f.svc.Session(t.Context(), f.hid); err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	if err := f.svc.SelectProfile(t.Context(), f.hid, 0); err != nil {
		t.Fatalf("SelectProfile() error = %v", err)
	}
	if _, err := f.svc.Session(t.Context(), f.hid); !errors.Is(err, learning.ErrNoSession) {
		t.Errorf("Session() after switching profile error = %v, want ErrNoSession", err)
	}
}

func TestService_DeleteOnlyProfile(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")
	f.svc.StartChapter(t.Context(), f.hid, 0)

	n, err := f.svc.DeleteProfile(t.Context(), f.hid, 0)
	if err != nil || n != 0 {
		t.Fatalf("DeleteProfile() = %d, %v", n, err)
	}
	list, _ := f.svc.Profiles(t.Context(), f.hid)
	if len(list.Profiles) != 0 || list.Active != -1 {
		t.Errorf("Profiles() = %+v, want empty with active -1", list)
	}
	if _, err := f.svc.Session(t.Context(), f.hid); !errors.Is(err, learning.ErrNoActiveProfile) {
		t.Errorf("Session() error = %v, want ErrNoActiveProfile", err)
	}
}

func TestService_UnknownHousehold(t *testing.T) {
	f := newFixture(t)
	for _, hid := range []string{"", "not-a-uuid", "6f1c1c3e-2b7a-4f7e-9a55-3a0c2d1e9b11", "{" + f.hid + "}"} {
		if _, err := f.svc.Profiles(t.Context(), hid); !errors.Is(err, learning.ErrHouseholdNotFound) {
			t.Errorf("Profiles(%q) error = %v, want ErrHouseholdNotFound", hid, err)
		}
	}
}

func TestService_HouseholdSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")
	f.completeChapter(t, 0)

	restarted := learning.NewService(learning.Config{Catalog: f.svc.Catalog(), KV: f.kv})
	_, snap, err := restarted.Progress(t.Context(), f.hid)
	if err != nil {
		t.Fatalf("Progress() after restart error = %v", err)
	}
	if snap.Earned != 7 {
		t.Errorf("Earned after restart = %d, want 7", snap.Earned)
	}

	raw, found, _ := f.kv.Get(t.Context(), profile.Key(f.hid, "kv_active_profile"))
	if !found || raw != "0" {
		t.Errorf("active key = %q, %v", raw, found)
	}
}

func TestService_Certificate(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")

	if _, err := f.svc.IssueCertificate(t.Context(), f.hid, "Ava"); !errors.Is(err, certificate.ErrLocked) {
		t.Fatalf("IssueCertificate() early error = %v, want ErrLocked", err)
	}

	for ci := 0; ci < 6; ci++ {
		f.completeChapter(t, ci)
	}
	// The last chapter only needs its lessons and quiz.
	f.svc.StartChapter(t.Context(), f.hid, 6)
	res := f.act(t, progress.Action{Type: progress.ActionOpenQuiz})
	for res.View.State.Phase == progress.PhaseQuiz {
		f.act(t, progress.Action{Type: progress.ActionAnswer, Index: 1})
		res = f.act(t, progress.Action{Type: progress.ActionAdvance})
	}
	st, _ := f.svc.Certificate(t.Context(), f.hid)
	if st.Unlocked {
		t.Fatal("certificate unlocked before the last chapter's lessons")
	}
	for li := 0; li < 4; li++ {
		f.act(t, progress.Action{Type: progress.ActionJump, Index: li})
		for i := 0; i < 3; i++ {
			f.act(t, progress.Action{Type: progress.ActionAdvance})
		}
	}

	st, err := f.svc.Certificate(t.Context(), f.hid)
	if err != nil || !st.Unlocked || st.EarnedStars != 48 {
		t.Fatalf("Certificate() = %+v, %v", st, err)
	}

	cert, err := f.svc.IssueCertificate(t.Context(), f.hid, "Ava Smith")
	if err != nil {
		t.Fatalf("IssueCertificate() error = %v", err)
	}
	if cert.FileName != "Ava_Smith_KidVault_Certificate.pdf" || !cert.IssuedOn.Equal(fixedNow) {
		t.Errorf("certificate = %+v", cert)
	}
}

func TestService_Report(t *testing.T) {
	f := newFixture(t)
	f.svc.AddProfile(t.Context(), f.hid, "Ava")

	var buf bytes.Buffer
	if err := f.svc.Report(t.Context(), f.hid, &buf); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("report is not a zip archive")
	}
}

func TestService_LiveUpdate(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.LiveUpdate(t.Context(), f.hid)
	if err != nil || u != nil {
		t.Errorf("LiveUpdate() without profile = %+v, %v", u, err)
	}

	f.svc.AddProfile(t.Context(), f.hid, "Ava")
	u, err = f.svc.LiveUpdate(t.Context(), f.hid)
	if err != nil || u == nil || u.Profile != "Ava" || u.Snapshot.Total != 49 {
		t.Errorf("LiveUpdate() = %+v, %v", u, err)
	}
}

// brokenLogger fails every event.
type brokenLogger struct{}

func (brokenLogger) LogEvent(context.Context, analytics.Event) error {
	return errors.New("analytics down")
}

func TestService_AnalyticsFailureDoesNotBlockProgress(t *testing.T) {
	cat, _ := catalog.Default()
	svc := learning.NewService(learning.Config{Catalog: cat, Events: brokenLogger{}})
	hid, _ := svc.CreateHousehold(t.Context())
	svc.AddProfile(t.Context(), hid, "Ava")
	svc.StartChapter(t.Context(), hid, 0)

	for i := 0; i < 3; i++ {
		if _, err := svc.Act(t.Context(), hid, progress.Action{Type: progress.ActionAdvance}); err != nil {
			t.Fatalf("Act() error = %v", err)
		}
	}
	_, snap, _ := svc.Progress(t.Context(), hid)
	if snap.Earned != 1 {
		t.Errorf("Earned = %d, want 1", snap.Earned)
	}
}
