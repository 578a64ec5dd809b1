package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/metrics"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/state"
	"github.com/listenupapp/readup/internal/store/sqlite"
	"github.com/listenupapp/readup/internal/streak"
	"github.com/listenupapp/readup/internal/validation"
)

// MarkCompleteRequest records that a segment was read.
type MarkCompleteRequest struct {
	SegmentID   string `json:"segment_id" validate:"required,ident"`
	Context     string `json:"context" validate:"omitempty,oneof=main plan challenge"`
	RefID       string `json:"ref_id" validate:"omitempty,ident"`
	ReaderColor string `json:"reader_color" validate:"max=32"`
}

// MarkCompleteResult reports everything a completion changed.
type MarkCompleteResult struct {
	Completion      domain.SegmentCompletion `json:"completion"`
	Streak          *domain.StreakSummary    `json:"streak,omitempty"`
	BookCode        string                   `json:"book_code,omitempty"`
	BookCompleted   bool                     `json:"book_completed"`
	Run             *domain.Progress         `json:"run,omitempty"`
	RunCompleted    bool                     `json:"run_completed"`
	NewAchievements []achievement.Trophy     `json:"new_achievements,omitempty"`
}

// Snapshot is the whole session state as the UI renders it.
type Snapshot struct {
	ActivePlan      *domain.Progress           `json:"active_plan"`
	Plans           []*domain.Progress         `json:"plans"`
	Challenges      []*domain.Progress         `json:"challenges"`
	MainCompletions map[string]domain.MainMark `json:"main_completions"`
	LastRead        *domain.LastRead           `json:"last_read"`
}

// ReconcileReport summarizes what boot reconciliation corrected.
type ReconcileReport struct {
	MainCorrections        int  `json:"main_corrections"`
	PlanCorrections        int  `json:"plan_corrections"`
	ChallengeCorrections   int  `json:"challenge_corrections"`
	StaleSessionsClosed    int  `json:"stale_sessions_closed"`
	TestamentDisagreements int  `json:"testament_disagreements"`
	StreakMismatch         bool `json:"streak_mismatch"`
}

// ProgressService is the single entry point for recording progress. The
// ledger is written first and is authoritative; session state follows.
type ProgressService struct {
	ledger       *sqlite.Store
	state        *state.Manager
	corpus       *corpus.Holder
	achievements *AchievementService
	events       EventEmitter
	validator    *validation.Validator
	logger       *slog.Logger
	rule         corpus.TestamentRule

	// mu serializes completions and lifecycle changes so the state check
	// and the ledger write see the same plan.
	mu sync.Mutex
}

// NewProgressService creates a new progress service.
func NewProgressService(
	ledger *sqlite.Store,
	st *state.Manager,
	holder *corpus.Holder,
	achievements *AchievementService,
	events EventEmitter,
	rule corpus.TestamentRule,
	logger *slog.Logger,
) *ProgressService {
	return &ProgressService{
		ledger:       ledger,
		state:        st,
		corpus:       holder,
		achievements: achievements,
		events:       emitterOrNoop(events),
		validator:    validation.New(),
		logger:       logger,
		rule:         rule,
	}
}

func observe(op string) func() {
	timer := prometheus.NewTimer(metrics.OperationDuration.WithLabelValues(op))
	return func() { timer.ObserveDuration() }
}

// MarkComplete records a completion. The ledger row is written before any
// session state changes; if the ledger write fails nothing else happens.
func (s *ProgressService) MarkComplete(ctx context.Context, req MarkCompleteRequest) (*MarkCompleteResult, error) {
	defer observe("mark_complete")()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	cc, err := parseContext(req.Context, req.RefID)
	if err != nil {
		return nil, err
	}
	c := s.corpus.Current()
	if !c.HasSegment(req.SegmentID) {
		return nil, domainerrors.NotFoundf("segment %q not found", req.SegmentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	switch cc.Kind() {
	case domain.ContextPlan:
		err = s.state.CheckPlanWritable(cc.RefID())
	case domain.ContextChallenge:
		err = s.state.CheckChallengeWritable(cc.RefID())
	}
	if err != nil {
		return nil, err
	}

	var result *MarkCompleteResult
	if cc.IsMain() {
		result, err = s.markMain(ctx, c, req.SegmentID, req.ReaderColor)
	} else {
		result, err = s.markRun(ctx, cc, req.SegmentID, req.ReaderColor)
	}
	if err != nil {
		return nil, err
	}

	if err := s.state.SetLastRead(ctx, req.SegmentID, cc); err != nil {
		s.logger.Warn("failed to record last read segment", "segment_id", req.SegmentID, "error", err)
	}
	result.NewAchievements = s.achievements.syncQuietly(ctx)
	return result, nil
}

func (s *ProgressService) markMain(ctx context.Context, c *corpus.Corpus, segmentID, color string) (*MarkCompleteResult, error) {
	var check sqlite.BookCheck
	if book, ok := c.Book(segmentID); ok {
		check.Code = book.Code
		check.Segments, _ = c.BookSegments(book.Code)
	}

	res, err := s.ledger.RecordMainCompletion(ctx, segmentID, color, check)
	if err != nil {
		return nil, err
	}
	result := &MarkCompleteResult{
		Completion:    res.Completion,
		Streak:        &res.Streak,
		BookCode:      res.BookCode,
		BookCompleted: res.BookCompleted,
	}

	if res.StreakChanged {
		s.events.Emit(sse.NewStreakUpdatedEvent(res.Streak))
	}
	if res.BookNewlyMarked {
		s.logger.Info("book completed", "book_code", res.BookCode)
		s.events.Emit(sse.NewBookCompletedEvent(domain.BookCompletion{
			BookCode:    res.BookCode,
			CompletedAt: res.Completion.CompletedAt,
		}))
	}

	if _, err := s.state.MarkMainComplete(ctx, segmentID, color, res.Completion.CompletedAt); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ProgressService) markRun(ctx context.Context, cc domain.CompletionContext, segmentID, color string) (*MarkCompleteResult, error) {
	completion, err := s.ledger.RecordCompletion(ctx, segmentID, cc, color)
	if err != nil {
		return nil, err
	}
	result := &MarkCompleteResult{Completion: completion}

	var (
		run       *domain.Progress
		completed bool
		kind      domain.RunKind
	)
	if planID, ok := cc.PlanID(); ok {
		kind = domain.RunPlan
		run, completed, err = s.state.ProgressPlan(ctx, planID, segmentID, completion.CompletedAt)
	} else {
		challengeID, _ := cc.ChallengeID()
		kind = domain.RunChallenge
		run, completed, err = s.state.ProgressChallenge(ctx, challengeID, segmentID, completion.CompletedAt)
	}
	if err != nil {
		return nil, err
	}
	result.Run, result.RunCompleted = run, completed

	if completed {
		if err := s.ledger.RecordRunCompleted(ctx, kind, run.ID, run.DateStarted, completion.CompletedAt); err != nil {
			s.logger.Warn("failed to record run completion", "kind", kind, "ref_id", run.ID, "error", err)
		}
	}
	return result, nil
}

// QueryCompletion answers whether a segment has been read in a context.
func (s *ProgressService) QueryCompletion(ctx context.Context, segmentID, kind, refID string) (domain.CompletionStatus, error) {
	cc, err := parseContext(kind, refID)
	if err != nil {
		return domain.CompletionStatus{}, err
	}
	if cc.IsMain() {
		if mark, ok := s.state.GetMainCompletion(segmentID); ok {
			return markStatus(mark), nil
		}
	}
	return s.ledger.QueryCompletion(ctx, segmentID, cc)
}

// IsComplete reports whether a segment has a main-context completion. The
// mirror answers positives; a miss falls through to the ledger so a lagging
// mirror never yields a false negative.
func (s *ProgressService) IsComplete(ctx context.Context, segmentID string) (bool, error) {
	if _, ok := s.state.GetMainCompletion(segmentID); ok {
		return true, nil
	}
	status, err := s.ledger.QueryCompletion(ctx, segmentID, domain.MainContext())
	if err != nil {
		return false, err
	}
	return status.IsCompleted, nil
}

func markStatus(mark domain.MainMark) domain.CompletionStatus {
	status := domain.CompletionStatus{IsCompleted: true}
	if mark.Color != "" {
		color := mark.Color
		status.Color = &color
	}
	return status
}

// Snapshot returns the current session state.
func (s *ProgressService) Snapshot() Snapshot {
	return Snapshot{
		ActivePlan:      s.state.GetActivePlan(),
		Plans:           s.state.Plans(),
		Challenges:      s.state.Challenges(),
		MainCompletions: s.state.MainCompletions(),
		LastRead:        s.state.GetLastReadSegment(),
	}
}

type lifecycleFunc func(ctx context.Context, id string) (*domain.Progress, error)

// lifecycle runs a state transition and mirrors run starts into the ledger.
// The ledger copy is informational; failing to write it is logged.
func (s *ProgressService) lifecycle(ctx context.Context, kind domain.RunKind, id string, fn lifecycleFunc) (*domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	p, err := fn(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.RecordRunStarted(ctx, kind, p.ID, p.DateStarted); err != nil {
		s.logger.Warn("failed to record run start", "kind", kind, "ref_id", p.ID, "error", err)
	}
	return p, nil
}

// StartPlan starts a plan and makes it active, pausing the previous one.
func (s *ProgressService) StartPlan(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunPlan, id, s.state.StartPlan)
}

// PausePlan pauses the active plan.
func (s *ProgressService) PausePlan(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunPlan, id, s.state.PausePlan)
}

// ResumePlan resumes the paused active plan.
func (s *ProgressService) ResumePlan(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunPlan, id, s.state.ResumePlan)
}

// SwitchPlan makes another plan the active one.
func (s *ProgressService) SwitchPlan(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunPlan, id, s.state.SwitchPlan)
}

// StartChallenge starts a challenge.
func (s *ProgressService) StartChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunChallenge, id, s.state.StartChallenge)
}

// PauseChallenge pauses a running challenge.
func (s *ProgressService) PauseChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunChallenge, id, s.state.PauseChallenge)
}

// ResumeChallenge resumes a paused challenge.
func (s *ProgressService) ResumeChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunChallenge, id, s.state.ResumeChallenge)
}

// RestartChallenge discards a challenge's progress and starts it again.
func (s *ProgressService) RestartChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	return s.lifecycle(ctx, domain.RunChallenge, id, s.state.RestartChallenge)
}

// Reconcile repairs session state from the ledger. It runs once at boot,
// after the state manager has loaded. The ledger always wins.
func (s *ProgressService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	defer observe("reconcile")()

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	report := &ReconcileReport{}

	marks, err := s.ledger.CompletedMainSegments(ctx)
	if err != nil {
		return nil, err
	}
	if report.MainCorrections, err = s.state.ReplaceMainMirror(ctx, marks); err != nil {
		return nil, err
	}
	if report.MainCorrections > 0 {
		metrics.Reconciliations.WithLabelValues("main").Add(float64(report.MainCorrections))
		s.logger.Warn("main completion mirror disagreed with ledger",
			"code", domainerrors.CodeInconsistentState,
			"corrections", report.MainCorrections)
	}

	now := s.ledger.Now()
	for _, p := range s.state.Plans() {
		n, err := s.reconcileRun(ctx, domain.PlanContext(p.ID), domain.RunPlan, p, now)
		if err != nil {
			return nil, err
		}
		report.PlanCorrections += n
	}
	for _, p := range s.state.Challenges() {
		n, err := s.reconcileRun(ctx, domain.ChallengeContext(p.ID), domain.RunChallenge, p, now)
		if err != nil {
			return nil, err
		}
		report.ChallengeCorrections += n
	}

	if report.StaleSessionsClosed, err = s.ledger.CloseStaleSessions(ctx, now.Add(-domain.SessionStaleThreshold)); err != nil {
		return nil, err
	}

	if s.rule.Mode == corpus.RuleOrdinal {
		disagree := s.corpus.Current().CheckTestamentBoundary(s.rule.Boundary)
		report.TestamentDisagreements = len(disagree)
		if len(disagree) > 0 {
			s.logger.Warn("testament boundary disagrees with book testaments",
				"boundary", s.rule.Boundary,
				"segments", len(disagree))
		}
	}

	summary, err := s.ledger.GetStreakSummary(ctx)
	if err != nil {
		return nil, err
	}
	if !summary.Valid() {
		s.logger.Warn("stored streak summary is invalid",
			"code", domainerrors.CodeInconsistentState,
			"current", summary.CurrentStreak,
			"longest", summary.LongestStreak)
	}
	if report.StreakMismatch, err = s.checkStreakHistory(ctx, summary); err != nil {
		return nil, err
	}
	metrics.CurrentStreak.Set(float64(summary.CurrentStreak))

	s.events.Emit(sse.NewReconciledEvent(sse.ReconciledEventData{
		MainCorrections:      report.MainCorrections,
		PlanCorrections:      report.PlanCorrections,
		ChallengeCorrections: report.ChallengeCorrections,
	}))
	s.logger.Info("reconciliation complete",
		"main", report.MainCorrections,
		"plans", report.PlanCorrections,
		"challenges", report.ChallengeCorrections,
		"stale_sessions", report.StaleSessionsClosed)
	return report, nil
}

// checkStreakHistory rebuilds the streak from daily activity and warns when
// the stored summary disagrees. The stored summary is left alone.
func (s *ProgressService) checkStreakHistory(ctx context.Context, summary domain.StreakSummary) (bool, error) {
	activity, err := s.ledger.GetDailyActivity(ctx, domain.Date{})
	if err != nil {
		return false, err
	}
	days := make([]domain.Date, 0, len(activity))
	for _, a := range activity {
		if a.SegmentCount > 0 {
			days = append(days, a.Date)
		}
	}
	rebuilt := streak.FromHistory(days)
	if rebuilt.CurrentStreak == summary.CurrentStreak &&
		rebuilt.LongestStreak == summary.LongestStreak &&
		rebuilt.LastReadDate.String() == summary.LastReadDate.String() {
		return false, nil
	}
	s.logger.Warn("stored streak disagrees with daily activity",
		"code", domainerrors.CodeInconsistentState,
		"stored_current", summary.CurrentStreak,
		"stored_longest", summary.LongestStreak,
		"history_current", rebuilt.CurrentStreak,
		"history_longest", rebuilt.LongestStreak,
		"last_read", summary.LastReadDate.String())
	return true, nil
}

// reconcileRun merges ledger completions recorded since a run started into
// its session state record.
func (s *ProgressService) reconcileRun(ctx context.Context, cc domain.CompletionContext, kind domain.RunKind, p *domain.Progress, now time.Time) (int, error) {
	if p.Status() == domain.StatusNotStarted {
		return 0, nil
	}
	segments, err := s.ledger.CompletedInContext(ctx, cc, p.DateStarted)
	if err != nil {
		return 0, err
	}
	added, completed, err := s.state.MergeRunSegments(ctx, kind, p.ID, segments, now)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		metrics.Reconciliations.WithLabelValues(string(kind)).Add(float64(added))
		s.logger.Warn("run progress disagreed with ledger",
			"code", domainerrors.CodeInconsistentState,
			"kind", kind,
			"ref_id", p.ID,
			"added", added)
	}
	if completed {
		if err := s.ledger.RecordRunCompleted(ctx, kind, p.ID, p.DateStarted, now); err != nil {
			return 0, err
		}
	}
	return added, nil
}

// RunView pairs a plan or challenge definition with the reader's progress.
type RunView struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Kind     domain.RunKind        `json:"kind"`
	Required int                   `json:"required"`
	Covered  int                   `json:"covered"`
	Status   domain.ProgressStatus `json:"status"`
	Active   bool                  `json:"active"`
	Progress *domain.Progress      `json:"progress,omitempty"`
}

// ListPlans returns every plan in the corpus with its progress.
func (s *ProgressService) ListPlans() []RunView {
	c := s.corpus.Current()
	active := s.state.GetActivePlan()
	views := make([]RunView, 0)
	for _, run := range c.Plans() {
		required, _ := c.PlanSegments(run.ID)
		v := runView(run, required, s.state.GetPlan(run.ID))
		v.Active = active != nil && active.ID == run.ID
		views = append(views, v)
	}
	return views
}

// ListChallenges returns every challenge in the corpus with its progress.
func (s *ProgressService) ListChallenges() []RunView {
	c := s.corpus.Current()
	views := make([]RunView, 0)
	for _, run := range c.Challenges() {
		required, _ := c.ChallengeSegments(run.ID)
		p := s.state.GetActiveChallenge(run.ID)
		v := runView(run, required, p)
		v.Active = p.Status() == domain.StatusActive
		views = append(views, v)
	}
	return views
}

func runView(run *corpus.Run, required []string, p *domain.Progress) RunView {
	v := RunView{
		ID:       run.ID,
		Title:    run.Title,
		Kind:     run.Kind,
		Required: len(required),
		Status:   p.Status(),
		Progress: p,
	}
	if p != nil {
		v.Covered = p.CountCovered(required)
	}
	return v
}
