// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a research run through its six stages: Decompose,
// Search, FetchContent, Analyze, Report, and Script. A Session owns the stage
// list, the paper list, and the resulting ContentBlueprint for one run at a
// time and publishes every state change to registered observers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/gateway"
	"github.com/pdiddy/farabi/internal/progress"
	"github.com/pdiddy/farabi/pkg/types"
)

// Gateway is the subset of the backend client the pipeline calls.
// *gateway.Client satisfies it.
type Gateway interface {
	DecomposeTopic(ctx context.Context, topic, keywords string) ([]string, error)
	MultiSearch(ctx context.Context, subQueries []string, limitPerQuery int, dedupe bool) (gateway.MultiSearchResult, error)
	FetchContent(ctx context.Context, papers []types.Paper, maxPapers int) (gateway.FetchContentResult, error)
	AnalyzePapers(ctx context.Context, papers []types.Paper, topic string) ([]types.KeyInsight, error)
	GenerateResearchReport(ctx context.Context, topic string, papers []types.PaperWithContent, insights []types.KeyInsight) (gateway.ReportResult, error)
	GenerateScript(ctx context.Context, insights []types.KeyInsight, papers []types.Paper, topic, report string) (gateway.ScriptResult, error)
}

// State is the run-level lifecycle of a Session.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

var (
	// ErrRunSuperseded is returned by Start when a newer run replaced it.
	ErrRunSuperseded = errors.New("research run superseded by a newer run")

	// ErrEmptyTopic is returned when Start is called without keywords.
	ErrEmptyTopic = errors.New("topic and final keywords are required")
)

// StageError reports the stage that aborted a run.
type StageError struct {
	Stage types.StageID
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.Label(), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// EventKind classifies an Event.
type EventKind int

const (
	// EventStage is sent after a stage's status or sub-items change.
	EventStage EventKind = iota
	// EventState is sent on every run-level transition.
	EventState
	// EventTick carries the progress timer's elapsed time.
	EventTick
)

// Event is one notification sent to observers. Stage is set for EventStage,
// State for EventState, Elapsed for EventTick. Err is set when State is
// StateFailed.
type Event struct {
	RunID   uint64
	Kind    EventKind
	Stage   types.PipelineStage
	State   State
	Elapsed time.Duration
	Err     error
}

// Observer receives session events. Observers run synchronously on the
// goroutine that caused the change and must not call Start.
type Observer func(Event)

// Session is the explicit research-run state holder. One goroutine drives
// a run through Start; other goroutines may read snapshots concurrently.
type Session struct {
	gw   Gateway
	cfg  types.PipelineConfig
	log  *zap.Logger
	now  func() time.Time
	obsM sync.RWMutex
	obs  []Observer

	mu        sync.Mutex
	runID     uint64
	cancel    context.CancelFunc
	timer     *progress.Timer
	state     State
	stages    []types.PipelineStage
	started   map[types.StageID]time.Time
	papers    []types.Paper
	contents  []types.PaperWithContent
	insights  []types.KeyInsight
	report    string
	blueprint *types.ContentBlueprint
	lastErr   error
	elapsed   time.Duration
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock replaces time.Now for stage timing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.obs = append(s.obs, o) }
}

// NewSession returns an idle session. Zero values in cfg fall back to the
// defaults of types.DefaultPipelineConfig.
func NewSession(gw Gateway, cfg types.PipelineConfig, opts ...Option) *Session {
	def := types.DefaultPipelineConfig()
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	if cfg.FetchMaxPapers <= 0 {
		cfg.FetchMaxPapers = def.FetchMaxPapers
	}
	if cfg.AnalyzeMaxPapers <= 0 {
		cfg.AnalyzeMaxPapers = def.AnalyzeMaxPapers
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	s := &Session{
		gw:     gw,
		cfg:    cfg,
		log:    zap.NewNop(),
		now:    time.Now,
		state:  StateIdle,
		stages: types.NewStages(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds an observer.
func (s *Session) Subscribe(o Observer) {
	s.obsM.Lock()
	defer s.obsM.Unlock()
	s.obs = append(s.obs, o)
}

func (s *Session) notify(e Event) {
	s.obsM.RLock()
	obs := append([]Observer(nil), s.obs...)
	s.obsM.RUnlock()
	for _, o := range obs {
		o(e)
	}
}

// Reset cancels any in-flight run and discards all run state. Late results
// of the cancelled run are ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	s.runID++
	id := s.runID
	timer := s.detachLocked()
	s.clearLocked()
	s.state = StateIdle
	s.lastErr = nil
	s.mu.Unlock()

	stopTimer(timer)
	s.notify(Event{RunID: id, Kind: EventState, State: StateIdle})
}

// detachLocked cancels the current run context and hands back its timer.
// The caller stops the timer after releasing the lock, because a tick
// observer may be waiting on it.
func (s *Session) detachLocked() *progress.Timer {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	t := s.timer
	s.timer = nil
	return t
}

func stopTimer(t *progress.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (s *Session) clearLocked() {
	s.stages = types.NewStages()
	s.started = make(map[types.StageID]time.Time, types.StageCount)
	s.papers = nil
	s.contents = nil
	s.insights = nil
	s.report = ""
	s.blueprint = nil
	s.elapsed = 0
}

// RunID returns the identifier of the current (or last) run.
func (s *Session) RunID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// State returns the run-level state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stages returns a deep copy of the stage list.
func (s *Session) Stages() []types.PipelineStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PipelineStage, len(s.stages))
	for i, st := range s.stages {
		out[i] = st.Clone()
	}
	return out
}

// Papers returns the Search stage result of the current run.
func (s *Session) Papers() []types.Paper {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Paper(nil), s.papers...)
}

// Contents returns the FetchContent stage result of the current run.
func (s *Session) Contents() []types.PaperWithContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.PaperWithContent(nil), s.contents...)
}

// Insights returns the Analyze stage result of the current run.
func (s *Session) Insights() []types.KeyInsight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.KeyInsight(nil), s.insights...)
}

// Report returns the Report stage output of the current run.
func (s *Session) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Blueprint returns the finished blueprint, or nil unless the last run
// completed.
func (s *Session) Blueprint() *types.ContentBlueprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blueprint.Clone()
}

// LastError returns the error of the last failed run.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Elapsed returns the progress counter of the current run, or the final
// duration once the run ended.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return s.timer.Elapsed()
	}
	return s.elapsed
}

// update applies fn under the lock when runID is still current.
func (s *Session) update(runID uint64, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID != s.runID {
		return ErrRunSuperseded
	}
	fn()
	return nil
}

// stageIndex returns the slice index of id.
func stageIndex(id types.StageID) int { return int(id) - 1 }

// beginStage marks id in progress.
func (s *Session) beginStage(runID uint64, id types.StageID) error {
	var snap types.PipelineStage
	err := s.update(runID, func() {
		st := &s.stages[stageIndex(id)]
		st.Status = types.StageInProgress
		st.SubItems = nil
		s.started[id] = s.now()
		snap = st.Clone()
	})
	if err != nil {
		return err
	}
	s.log.Debug("stage started", zap.Uint64("run", runID), zap.Stringer("stage", id))
	s.notify(Event{RunID: runID, Kind: EventStage, Stage: snap})
	return nil
}

// completeStage marks id completed with its sub-items. A zero elapsed time
// is recorded when skipped is true.
func (s *Session) completeStage(runID uint64, id types.StageID, subItems []string, skipped bool) error {
	var snap types.PipelineStage
	err := s.update(runID, func() {
		now := s.now()
		var ms int64
		if start, ok := s.started[id]; ok && !skipped {
			ms = now.Sub(start).Milliseconds()
		}
		st := &s.stages[stageIndex(id)]
		st.Status = types.StageCompleted
		st.SubItems = append([]string(nil), subItems...)
		st.ElapsedMs = &ms
		st.CompletedAt = &now
		snap = st.Clone()
	})
	if err != nil {
		return err
	}
	s.log.Info("stage completed",
		zap.Uint64("run", runID),
		zap.Stringer("stage", id),
		zap.Int64("elapsed_ms", *snap.ElapsedMs),
		zap.Strings("sub_items", subItems))
	s.notify(Event{RunID: runID, Kind: EventStage, Stage: snap})
	return nil
}
