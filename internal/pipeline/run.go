// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/progress"
	"github.com/pdiddy/farabi/pkg/types"
)

// Sub-item annotations that are not counts.
const (
	subItemFastMode = "skipped — fast mode"
	subItemFallback = "fallback: abstracts only"
)

// Start runs the six stages in order and returns the finished blueprint.
// Starting a run cancels and supersedes any run in flight; the superseded
// Start returns ErrRunSuperseded and its late results are discarded. On a
// stage failure every stage returns to pending, the session goes back to
// idle, and the returned *StageError carries the stage's error text.
func (s *Session) Start(ctx context.Context, topic, finalKeywords string, deepDive bool) (*types.ContentBlueprint, error) {
	topic = strings.TrimSpace(topic)
	finalKeywords = strings.TrimSpace(finalKeywords)
	if finalKeywords == "" {
		return nil, ErrEmptyTopic
	}
	if topic == "" {
		topic = finalKeywords
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.runID++
	id := s.runID
	prev := s.detachLocked()
	s.clearLocked()
	timer := progress.New(
		progress.WithResolution(s.cfg.TickInterval),
		progress.WithTick(func(d time.Duration) {
			s.notify(Event{RunID: id, Kind: EventTick, Elapsed: d})
		}),
	)
	s.cancel = cancel
	s.timer = timer
	s.state = StateRunning
	s.lastErr = nil
	s.mu.Unlock()

	stopTimer(prev)
	s.log.Info("research run started",
		zap.Uint64("run", id),
		zap.String("topic", topic),
		zap.String("keywords", finalKeywords),
		zap.Bool("deep_dive", deepDive))
	s.notify(Event{RunID: id, Kind: EventState, State: StateRunning})
	timer.Begin()

	r := &run{s: s, id: id, topic: topic, keywords: finalKeywords, deepDive: deepDive}
	bp, err := r.execute(runCtx)
	elapsed := timer.Stop()

	if err != nil {
		return nil, s.fail(id, err, elapsed)
	}
	return s.complete(id, bp, elapsed)
}

func (s *Session) complete(id uint64, bp *types.ContentBlueprint, elapsed time.Duration) (*types.ContentBlueprint, error) {
	err := s.update(id, func() {
		s.blueprint = bp
		s.state = StateComplete
		s.elapsed = elapsed
		s.timer = nil
		s.cancel = nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("research run complete",
		zap.Uint64("run", id),
		zap.Duration("elapsed", elapsed),
		zap.Int("insights", len(bp.KeyInsights)),
		zap.Int("references", len(bp.References)))
	s.notify(Event{RunID: id, Kind: EventState, State: StateComplete})
	return bp.Clone(), nil
}

// fail resets the run and returns the error Start should report.
func (s *Session) fail(id uint64, cause error, elapsed time.Duration) error {
	if errors.Is(cause, ErrRunSuperseded) {
		return ErrRunSuperseded
	}
	err := s.update(id, func() {
		s.clearLocked()
		s.state = StateIdle
		s.lastErr = cause
		s.elapsed = elapsed
		s.timer = nil
		s.cancel = nil
	})
	if err != nil {
		return err
	}
	s.log.Error("research run failed", zap.Uint64("run", id), zap.Error(cause))
	s.notify(Event{RunID: id, Kind: EventState, State: StateFailed, Err: cause})
	s.notify(Event{RunID: id, Kind: EventState, State: StateIdle})
	return cause
}

// run carries the inputs of one Start call.
type run struct {
	s        *Session
	id       uint64
	topic    string
	keywords string
	deepDive bool

	subQueries []string
	papers     []types.Paper
	contents   []types.PaperWithContent
	insights   []types.KeyInsight
	report     string
	sources    []types.PaperWithContent
	blueprint  *types.ContentBlueprint
}

func (r *run) execute(ctx context.Context) (*types.ContentBlueprint, error) {
	steps := []struct {
		id types.StageID
		fn func(context.Context) ([]string, error)
	}{
		{types.StageDecompose, r.decompose},
		{types.StageSearch, r.search},
		{types.StageFetchContent, r.fetchContent},
		{types.StageAnalyze, r.analyze},
		{types.StageReport, r.writeReport},
		{types.StageScript, r.writeScript},
	}
	for _, st := range steps {
		if st.id == types.StageFetchContent && !r.deepDive {
			if err := r.skipFetch(); err != nil {
				return nil, err
			}
			continue
		}
		if err := r.stage(ctx, st.id, st.fn); err != nil {
			return nil, err
		}
	}

	if r.blueprint == nil {
		return nil, &StageError{Stage: types.StageScript, Err: errors.New("no blueprint produced")}
	}
	return r.blueprint, nil
}

// stage wraps fn with the in-progress and completed transitions of id.
func (r *run) stage(ctx context.Context, id types.StageID, fn func(context.Context) ([]string, error)) error {
	if err := r.s.beginStage(r.id, id); err != nil {
		return err
	}
	items, err := fn(ctx)
	if err != nil {
		if errors.Is(err, ErrRunSuperseded) {
			return err
		}
		return &StageError{Stage: id, Err: err}
	}
	return r.s.completeStage(r.id, id, items, false)
}

func (r *run) decompose(ctx context.Context) ([]string, error) {
	raw, err := r.s.gw.DecomposeTopic(ctx, r.topic, r.keywords)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		r.s.log.Warn("decomposition returned no sub-queries, using keywords", zap.Uint64("run", r.id))
		queries = []string{r.keywords}
	}
	r.subQueries = queries
	return queries, nil
}

func (r *run) search(ctx context.Context) ([]string, error) {
	res, err := r.s.gw.MultiSearch(ctx, r.subQueries, r.s.cfg.SearchLimit, r.s.cfg.DedupePapers)
	if err != nil {
		return nil, err
	}
	papers := res.Papers
	if r.s.cfg.DedupePapers {
		papers = dedupeByID(papers)
	}
	r.papers = papers
	if err := r.s.update(r.id, func() { r.s.papers = papers }); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%d papers found", len(papers))}, nil
}

func (r *run) fetchContent(ctx context.Context) ([]string, error) {
	papers := r.papers
	res, err := r.s.gw.FetchContent(ctx, papers, r.s.cfg.FetchMaxPapers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.s.log.Warn("full-text fetch failed, falling back to abstracts",
			zap.Uint64("run", r.id), zap.Error(err))
		if err := r.setContents(abstractsOnly(papers)); err != nil {
			return nil, err
		}
		return []string{subItemFallback}, nil
	}

	if err := r.setContents(mergeContent(papers, res.Papers)); err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("%d with full text", res.FullTextCount),
		fmt.Sprintf("%d abstract only", res.AbstractOnlyCount),
	}, nil
}

// skipFetch completes FetchContent in fast mode without a gateway call.
func (r *run) skipFetch() error {
	if err := r.s.beginStage(r.id, types.StageFetchContent); err != nil {
		return err
	}
	if err := r.setContents(abstractsOnly(r.papers)); err != nil {
		return err
	}
	return r.s.completeStage(r.id, types.StageFetchContent, []string{subItemFastMode}, true)
}

func (r *run) setContents(c []types.PaperWithContent) error {
	r.contents = c
	return r.s.update(r.id, func() { r.s.contents = c })
}

func (r *run) analyze(ctx context.Context) ([]string, error) {
	candidates := withAbstract(r.papers, r.s.cfg.AnalyzeMaxPapers)
	if len(candidates) == 0 {
		return nil, errors.New("no papers with abstracts to analyze")
	}
	insights, err := r.s.gw.AnalyzePapers(ctx, candidates, r.topic)
	if err != nil {
		return nil, err
	}
	if len(insights) == 0 {
		return nil, errors.New("no insights extracted")
	}
	r.insights = insights
	if err := r.s.update(r.id, func() { r.s.insights = insights }); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%d insights extracted", len(insights))}, nil
}

func (r *run) writeReport(ctx context.Context) ([]string, error) {
	r.sources = withContent(r.contents, r.s.cfg.AnalyzeMaxPapers)
	res, err := r.s.gw.GenerateResearchReport(ctx, r.topic, r.sources, r.insights)
	if err != nil {
		return nil, err
	}
	words := res.WordCount
	if words <= 0 {
		words = types.WordCount(res.Report)
	}
	r.report = res.Report
	if err := r.s.update(r.id, func() { r.s.report = res.Report }); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%d words", words)}, nil
}

func (r *run) writeScript(ctx context.Context) ([]string, error) {
	papers := make([]types.Paper, len(r.sources))
	for i, c := range r.sources {
		papers[i] = c.Paper
	}
	insights, report := r.insights, r.report

	res, err := r.s.gw.GenerateScript(ctx, insights, papers, r.topic, report)
	if err != nil {
		return nil, err
	}
	if res.Narrative.IsEmpty() {
		return nil, errors.New("script is empty")
	}
	if len(res.UnverifiedCitations) > 0 {
		r.s.log.Warn("script cites sources missing from references",
			zap.Uint64("run", r.id), zap.Strings("citations", res.UnverifiedCitations))
	}

	refs := make([]types.Reference, len(papers))
	for i, p := range papers {
		refs[i] = types.NewReference(p)
	}
	bp := &types.ContentBlueprint{
		KeyInsights:    insights,
		Narrative:      res.Narrative,
		References:     refs,
		ResearchReport: report,
	}
	r.blueprint = bp
	return []string{fmt.Sprintf("%d words", res.Narrative.WordCount())}, nil
}
