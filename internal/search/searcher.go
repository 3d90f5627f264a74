package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justyntemme/booklist/internal/display"
	"github.com/justyntemme/booklist/internal/googlebooks"
	"github.com/justyntemme/booklist/internal/models"
)

// ErrSuperseded is returned by a task whose results were discarded because a
// newer search started before it finished
var ErrSuperseded = errors.New("search superseded by a newer one")

// Source fetches and parses one volumes search
type Source interface {
	Search(ctx context.Context, term string, mode models.SearchMode) ([]models.BookRecord, error)
}

// HistoryRecorder stores completed searches
type HistoryRecorder interface {
	RecordSearch(entry *models.HistoryEntry) error
}

// Result is what reaches the display layer
type Result struct {
	ID    string              `json:"id"`
	Term  string              `json:"term"`
	Mode  models.SearchMode   `json:"-"`
	Books []models.BookRecord `json:"books"`
	Empty display.EmptyState  `json:"empty_message,omitempty"`
}

// Outcome classifies the result for history
func (r Result) Outcome() string {
	switch {
	case len(r.Books) > 0:
		return models.OutcomeOK
	case r.Empty == display.NoConnection:
		return models.OutcomeNoConnection
	default:
		return models.OutcomeNoBooks
	}
}

// Options configures a Searcher
type Options struct {
	Connectivity Connectivity    // nil means always connected
	History      HistoryRecorder // optional
	UserID       string          // owner of recorded history

	// OnResult, if set, receives the result of every task that is still the
	// most recent one when it finishes. It runs before a newer Start returns.
	OnResult func(Result)
}

// Searcher runs one search at a time. Starting a search cancels the one in
// flight, and only the most recently started search delivers results.
type Searcher struct {
	source Source
	opts   Options
	log    zerolog.Logger

	mu      sync.Mutex
	current *Task
}

// NewSearcher creates a searcher over source
func NewSearcher(source Source, opts Options, log zerolog.Logger) *Searcher {
	if opts.Connectivity == nil {
		opts.Connectivity = Always(true)
	}
	return &Searcher{
		source: source,
		opts:   opts,
		log:    log.With().Str("component", "search").Logger(),
	}
}

// Search starts a search and waits for it
func (s *Searcher) Search(ctx context.Context, term string, mode models.SearchMode) (Result, error) {
	return s.Start(ctx, term, mode).Wait(ctx)
}

// Start launches a search in the background and supersedes any earlier one
func (s *Searcher) Start(ctx context.Context, term string, mode models.SearchMode) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:     uuid.NewString(),
		Term:   term,
		Mode:   mode,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = task
	s.mu.Unlock()

	go s.run(taskCtx, task)
	return task
}

// Idle reports whether no search is in flight
func (s *Searcher) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return true
	}
	select {
	case <-s.current.done:
		return true
	default:
		return false
	}
}

func (s *Searcher) run(ctx context.Context, task *Task) {
	defer close(task.done)
	defer task.cancel()

	result := s.execute(ctx, task)

	s.mu.Lock()
	if s.current != task {
		s.mu.Unlock()
		s.log.Debug().Str("search_id", task.ID).Msg("Discarding superseded search")
		task.result = emptyResult(task, display.NoBooks)
		task.err = ErrSuperseded
		return
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		task.result = emptyResult(task, display.NoBooks)
		task.err = err
		return
	}
	if s.opts.OnResult != nil {
		s.opts.OnResult(result)
	}
	s.mu.Unlock()

	task.result = result
	s.record(result)
}

// execute runs the connectivity check, the fetch and the parse. Failures are
// logged and collapse into an empty result.
func (s *Searcher) execute(ctx context.Context, task *Task) Result {
	log := s.log.With().Str("search_id", task.ID).Str("mode", task.Mode.String()).Logger()

	if !s.opts.Connectivity.Connected(ctx) {
		log.Info().Msg("No network connection, skipping search")
		return emptyResult(task, display.NoConnection)
	}

	books, err := s.source.Search(ctx, task.Term, task.Mode)
	if err != nil {
		if ctx.Err() != nil {
			return emptyResult(task, display.NoBooks)
		}
		switch {
		case errors.Is(err, googlebooks.ErrParse):
			log.Error().Err(err).Msg("Problem parsing the book JSON results")
		default:
			log.Error().Err(err).Msg("Problem retrieving the book JSON results")
		}
		return emptyResult(task, display.NoBooks)
	}

	if len(books) == 0 {
		return emptyResult(task, display.NoBooks)
	}

	log.Debug().Int("count", len(books)).Msg("Search finished")
	return Result{ID: task.ID, Term: task.Term, Mode: task.Mode, Books: books, Empty: display.None}
}

func (s *Searcher) record(result Result) {
	if s.opts.History == nil {
		return
	}
	entry := &models.HistoryEntry{
		ID:          uuid.NewString(),
		UserID:      s.opts.UserID,
		Term:        result.Term,
		Mode:        result.Mode.String(),
		ResultCount: len(result.Books),
		Outcome:     result.Outcome(),
		SearchedAt:  time.Now(),
	}
	if err := s.opts.History.RecordSearch(entry); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record search history")
	}
}

func emptyResult(task *Task, empty display.EmptyState) Result {
	return Result{
		ID:    task.ID,
		Term:  task.Term,
		Mode:  task.Mode,
		Books: []models.BookRecord{},
		Empty: empty,
	}
}

// Task is one background search
type Task struct {
	ID   string
	Term string
	Mode models.SearchMode

	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

// Done is closed once the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel aborts the task's request
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx ends
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
