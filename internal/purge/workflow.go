// Package purge implements the guarded bulk delete of records whose
// identifier field matches a pattern.
//
// A run checks that the collection exists, makes sure the identifier field
// is indexed, counts matches, shows a few examples, and then either stops
// (dry-run) or waits out a confirmation window, deletes, and re-counts to
// verify. Index hints are attempted on every query and dropped per call
// when the engine rejects them.
package purge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/gopurge/internal/logger"
	"github.com/dbsmedya/gopurge/internal/report"
	"github.com/dbsmedya/gopurge/internal/store"
)

// Defaults used by DefaultOptions.
const (
	DefaultField           = "orderId"
	DefaultConfirmDelay    = 5 * time.Second
	DefaultSampleThreshold = 10000
	DefaultSampleSize      = 5
)

// Options configures one run. It is not modified once Run starts.
type Options struct {
	DryRun          bool
	Collection      string
	Field           string
	Pattern         string
	CaseInsensitive bool

	ConfirmDelay    time.Duration
	SampleThreshold int64 // sampling is skipped when more records than this match
	SampleSize      int64 // 0 disables sampling
}

// DefaultOptions returns the safe defaults: dry-run, case-insensitive,
// orderId field.
func DefaultOptions() Options {
	return Options{
		DryRun:          true,
		Field:           DefaultField,
		CaseInsensitive: true,
		ConfirmDelay:    DefaultConfirmDelay,
		SampleThreshold: DefaultSampleThreshold,
		SampleSize:      DefaultSampleSize,
	}
}

// Query returns the match predicate shared by every phase.
func (o Options) Query() store.MatchQuery {
	return store.MatchQuery{
		Field:           o.Field,
		Pattern:         o.Pattern,
		CaseInsensitive: o.CaseInsensitive,
	}
}

// Validate checks that the options describe a runnable purge.
func (o Options) Validate() error {
	var problems []string
	if strings.TrimSpace(o.Collection) == "" {
		problems = append(problems, "collection is required")
	}
	if strings.TrimSpace(o.Pattern) == "" {
		problems = append(problems, "pattern is required")
	}
	if strings.TrimSpace(o.Field) == "" {
		problems = append(problems, "field is required")
	}
	if o.ConfirmDelay < 0 {
		problems = append(problems, "confirm delay must not be negative")
	}
	if o.SampleThreshold < 0 {
		problems = append(problems, "sample threshold must not be negative")
	}
	if o.SampleSize < 0 {
		problems = append(problems, "sample size must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid purge options: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Report is the outcome of one run.
type Report struct {
	Store      string
	Collection string
	Query      store.MatchQuery
	DryRun     bool
	State      State

	IndexName    string
	IndexCreated bool

	MatchedCount    int64
	Samples         []string
	SamplingSkipped bool

	DeletedCount  *int64 // nil unless a delete ran
	Duration      time.Duration
	ResidualCount *int64 // nil unless verification ran

	// Warnings holds recovered problems. Each wraps one of the package
	// sentinels.
	Warnings []error
}

// Clean reports whether a live run verified that nothing matches any more.
func (r *Report) Clean() bool {
	return r.ResidualCount != nil && *r.ResidualCount == 0
}

// Workflow executes a purge against a store.Store.
type Workflow struct {
	store  store.Store
	opts   Options
	sink   report.Sink
	waiter Waiter
	logger *logger.Logger

	state State
	query store.MatchQuery
}

// NewWorkflow creates a Workflow. A nil sink writes a plain console report
// to stdout, a nil waiter sleeps in real time and a nil logger uses the
// default logger.
func NewWorkflow(st store.Store, opts Options, sink report.Sink, waiter Waiter, log *logger.Logger) (*Workflow, error) {
	if st == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = report.NewConsole(os.Stdout, false)
	}
	if waiter == nil {
		waiter = SleepWaiter{}
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Workflow{
		store:  st,
		opts:   opts,
		sink:   sink,
		waiter: waiter,
		logger: log.WithCollection(opts.Collection),
		state:  StateIdle,
		query:  opts.Query(),
	}, nil
}

// State returns the current phase.
func (w *Workflow) State() State {
	return w.state
}

func (w *Workflow) transition(next State, rep *Report) {
	if !w.state.CanTransition(next) {
		// Programming error; the phases below only move forward.
		panic(fmt.Sprintf("purge: invalid transition %s -> %s", w.state, next))
	}
	w.logger.Infow("Phase transition", "from", string(w.state), "to", string(next))
	w.state = next
	rep.State = next
}

// Run executes the workflow once. The returned Report is non-nil even when
// err is, and describes how far the run got.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if w.state != StateIdle {
		return nil, fmt.Errorf("workflow already ran (state %s)", w.state)
	}

	rep := &Report{
		Store:      w.store.Name(),
		Collection: w.opts.Collection,
		Query:      w.query,
		DryRun:     w.opts.DryRun,
		State:      StateIdle,
	}

	w.logger.Infow("Starting purge",
		"store", rep.Store,
		"query", w.query.String(),
		"dry_run", w.opts.DryRun,
	)
	w.printHeader()

	// 1. Precondition
	exists, err := w.store.CollectionExists(ctx, w.opts.Collection)
	if err != nil {
		return rep, fmt.Errorf("failed to check collection %s: %w", w.opts.Collection, err)
	}
	if !exists {
		perr := &PreconditionError{
			Check:      "collection_exists",
			Message:    "collection does not exist",
			Collection: w.opts.Collection,
			Err:        ErrCollectionNotFound,
		}
		w.logger.Errorw("Precondition failed", "error", perr)
		report.Emitf(w.sink, report.LevelError, "Error: collection '%s' does not exist", w.opts.Collection)
		return rep, perr
	}
	w.transition(StateValidated, rep)

	// 2. Index
	hint := w.ensureIndex(ctx, rep)
	w.transition(StateIndexed, rep)

	// 3. Count
	w.sink.Emit(report.LevelInfo, "🔍 Searching for records...")
	count, _, err := withHintFallback(w.logger, "count", hint, func(h *store.Hint) (int64, error) {
		return w.store.Count(ctx, w.opts.Collection, w.query, h)
	})
	if err != nil {
		return rep, fmt.Errorf("failed to count matching records: %w", err)
	}
	rep.MatchedCount = count
	report.Emitf(w.sink, report.LevelInfo, "   Records found: %d", count)
	w.sink.Blank()
	w.transition(StateCounted, rep)

	if count == 0 {
		w.sink.Emit(report.LevelSuccess, "No records to delete")
		w.transition(StateEmptyDone, rep)
		w.logger.Infow("Nothing to delete")
		return rep, nil
	}

	// 4. Samples
	w.sample(ctx, hint, rep)
	w.transition(StateSampled, rep)

	// 5. Mode
	if w.opts.DryRun {
		w.sink.Banner("🔍 DRY-RUN MODE (SIMULATION)")
		w.sink.Emit(report.LevelSuccess, "This is a simulation. NO records will be deleted.")
		report.Emitf(w.sink, report.LevelSuccess, "%d records would be deleted in live mode", count)
		w.sink.Rule()
		w.transition(StateDryRunReported, rep)
		w.logger.Infow("Dry-run complete", "matched", count)
		return rep, nil
	}

	w.transition(StateConfirming, rep)
	w.printLiveWarning(count)
	if err := w.waiter.Wait(ctx, w.opts.ConfirmDelay); err != nil {
		w.sink.Blank()
		w.sink.Emit(report.LevelError, "Aborted before deletion. No records were modified.")
		w.logger.Warnw("Purge aborted during confirmation window", "error", err)
		if errors.Is(err, ErrAborted) {
			return rep, err
		}
		return rep, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	// 6. Delete
	w.transition(StateDeleting, rep)
	w.sink.Blank()
	w.sink.Emit(report.LevelInfo, "▶️  Deleting records...")
	w.sink.Blank()

	start := time.Now()
	deleted, fellBack, err := withHintFallback(w.logger, "delete", hint, func(h *store.Hint) (int64, error) {
		return w.store.DeleteMany(ctx, w.opts.Collection, w.query, h)
	})
	rep.Duration = time.Since(start)
	if fellBack {
		w.sink.Emit(report.LevelWarn, "Warning: could not use the index hint, deleting without index optimization")
	}
	if err != nil {
		w.sink.Emit(report.LevelError, "Delete failed: "+err.Error())
		w.logger.Errorw("Delete failed", "error", err, "duration", rep.Duration)
		return rep, fmt.Errorf("failed to delete matching records: %w", err)
	}
	rep.DeletedCount = &deleted
	w.logger.Infow("Delete complete", "deleted", deleted, "duration", rep.Duration)

	w.sink.Banner("📊 SUMMARY")
	report.Emitf(w.sink, report.LevelInfo, "   Records deleted: %d", deleted)
	report.Emitf(w.sink, report.LevelInfo, "   Elapsed time: %.2fs", rep.Duration.Seconds())
	w.sink.Blank()

	// 7. Verify
	w.verify(ctx, hint, rep)
	w.sink.Rule()
	return rep, nil
}

func (w *Workflow) printHeader() {
	w.sink.Banner("🧹 BULK DELETE BY PATTERN")
	w.sink.Blank()

	caseInsensitive := "No"
	if w.opts.CaseInsensitive {
		caseInsensitive = "Yes"
	}
	mode := "LIVE DELETE"
	if w.opts.DryRun {
		mode = "DRY-RUN (simulation)"
	}

	kv := orderedmap.NewOrderedMap[string, string]()
	kv.Set("Database", w.store.Name())
	kv.Set("Collection", w.opts.Collection)
	kv.Set("Field", w.opts.Field)
	kv.Set("Pattern", fmt.Sprintf("%q", w.opts.Pattern))
	kv.Set("Case-insensitive", caseInsensitive)
	kv.Set("Mode", mode)
	w.sink.KeyValues("📊 Configuration:", kv)
	w.sink.Blank()

	for _, note := range PatternAdvisories(w.opts.Pattern, w.opts.CaseInsensitive) {
		w.logger.Warnw("Pattern may not use the index efficiently", "pattern", w.opts.Pattern, "note", note)
		w.sink.Emit(report.LevelWarn, "Note: "+note)
	}
}

// ensureIndex makes sure an index covers the identifier field and returns
// the hint to use for later queries. The hint is returned even when no
// index could be created; the engine rejects it and callers fall back.
func (w *Workflow) ensureIndex(ctx context.Context, rep *Report) *store.Hint {
	field := w.opts.Field
	hint := &store.Hint{Field: field}

	report.Emitf(w.sink, report.LevelInfo, "🔍 Checking index on '%s'...", field)
	indexes, err := w.store.ListIndexes(ctx, w.opts.Collection)
	if err != nil {
		// Treated like a missing index; creation below may still succeed.
		w.logger.Warnw("Failed to list indexes", "error", err)
	}

	if idx, ok := store.FindCovering(indexes, field); ok {
		hint.Index = idx.Name
		rep.IndexName = idx.Name
		report.Emitf(w.sink, report.LevelSuccess, "Index on '%s' found (%s)", field, idx.Name)
		w.sink.Blank()
		w.logger.Infow("Index found", "index", idx.Name, "fields", idx.Fields)
		return hint
	}

	report.Emitf(w.sink, report.LevelWarn, "No index on '%s' found. Creating one...", field)
	name, err := w.store.CreateIndex(ctx, w.opts.Collection, field, true)
	if err != nil {
		warn := fmt.Errorf("%w: %v", ErrIndexCreationFailed, err)
		rep.Warnings = append(rep.Warnings, warn)
		w.logger.Warnw("Could not create index, continuing without it", "field", field, "error", err)
		report.Emitf(w.sink, report.LevelWarn, "Warning: could not create the index: %v", err)
		w.sink.Emit(report.LevelInfo, "   The operation continues but may be slower")
		w.sink.Blank()
		return hint
	}

	hint.Index = name
	rep.IndexName = name
	rep.IndexCreated = true
	report.Emitf(w.sink, report.LevelSuccess, "Index created (%s)", name)
	w.sink.Blank()
	w.logger.Infow("Index created", "index", name)
	return hint
}

func (w *Workflow) sample(ctx context.Context, hint *store.Hint, rep *Report) {
	count := rep.MatchedCount
	if w.opts.SampleSize == 0 || count > w.opts.SampleThreshold {
		rep.SamplingSkipped = true
		if w.opts.SampleSize > 0 {
			w.sink.Emit(report.LevelInfo, "📋 Note: many records matched. Skipping examples to reduce load.")
			w.sink.Blank()
		}
		w.logger.Debugw("Sampling skipped", "matched", count, "threshold", w.opts.SampleThreshold)
		return
	}

	report.Emitf(w.sink, report.LevelInfo, "📋 Example %s values that would be deleted:", w.opts.Field)
	ids, _, err := withHintFallback(w.logger, "find", hint, func(h *store.Hint) ([]string, error) {
		return w.store.Find(ctx, w.opts.Collection, w.query, w.opts.SampleSize, h)
	})
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Errorf("%w: %v", ErrSamplingFailed, err))
		w.logger.Warnw("Could not fetch examples", "error", err)
		w.sink.Emit(report.LevelInfo, "   (no examples available)")
		w.sink.Blank()
		return
	}

	rep.Samples = ids
	if len(ids) == 0 {
		w.logger.Warnw("Matched records returned no examples", "matched", count)
		w.sink.Emit(report.LevelInfo, "   (no examples available)")
		w.sink.Blank()
		return
	}
	line := "   " + strings.Join(ids, ", ")
	if rest := count - int64(len(ids)); rest > 0 {
		line += fmt.Sprintf(" ... (+%d more)", rest)
	}
	w.sink.Emit(report.LevelInfo, line)
	w.sink.Blank()
}

func (w *Workflow) printLiveWarning(matched int64) {
	w.sink.Banner("⚠️  LIVE DELETE MODE ⚠️")
	w.sink.Emit(report.LevelError, "WARNING: records WILL be deleted from the database.")
	w.sink.Emit(report.LevelError, "This operation cannot be undone.")
	w.sink.Blank()
	w.sink.Emit(report.LevelInfo, "💡 If you are not sure, press Ctrl+C now to cancel.")
	w.sink.Blank()
	report.Emitf(w.sink, report.LevelInfo, "   Waiting %s before continuing...", w.opts.ConfirmDelay)
	w.sink.Rule()
	w.logger.Warnw("Live delete pending confirmation window", "delay", w.opts.ConfirmDelay, "matched", matched)
}

func (w *Workflow) verify(ctx context.Context, hint *store.Hint, rep *Report) {
	residual, _, err := withHintFallback(w.logger, "verify", hint, func(h *store.Hint) (int64, error) {
		return w.store.Count(ctx, w.opts.Collection, w.query, h)
	})
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Errorf("%w: %v", ErrVerificationFailed, err))
		w.logger.Warnw("Could not verify deletion", "error", err)
		report.Emitf(w.sink, report.LevelWarn, "Warning: could not verify the deletion: %v", err)
		return
	}

	rep.ResidualCount = &residual
	w.transition(StateVerified, rep)

	if residual > 0 {
		w.logger.Warnw("Matching records remain after delete", "residual", residual)
		report.Emitf(w.sink, report.LevelWarn, "Warning: %d matching records remain", residual)
		w.sink.Emit(report.LevelInfo, "   This can be expected if records were added or changed while the delete ran.")
		return
	}
	w.sink.Emit(report.LevelSuccess, "All matching records were deleted")
}
