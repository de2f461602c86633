// Package queue holds movies waiting for background AI enrichment and drains
// them one at a time while the provider is available.
package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/catalog"
	"github.com/movienighthub/movienight/internal/metrics"
	"github.com/movienighthub/movienight/internal/observability"
)

const (
	DefaultCapacity   = 10
	DefaultInterval   = 30 * time.Second
	DefaultRetryAfter = 60 * time.Second

	updateBuffer = 32
)

// Movie is the client-side view of a saved movie. Title is the queue identity.
type Movie struct {
	Title     string   `json:"title"`
	Year      *int     `json:"year,omitempty"`
	Director  string   `json:"director,omitempty"`
	Poster    string   `json:"poster,omitempty"`
	Genre     string   `json:"genre"`
	Mood      string   `json:"mood"`
	Streaming []string `json:"streaming"`
	AIPending bool     `json:"ai_pending"`
}

// Update is published after a movie was enriched.
type Update struct {
	Title  string         `json:"title"`
	Fields catalog.Fields `json:"fields"`
	Movie  Movie          `json:"movie"`
}

// Status is the provider availability reported by the server.
type Status struct {
	Available        bool `json:"ai_available"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

// Enricher runs the AI-only enrichment for one title.
type Enricher interface {
	Enrich(ctx context.Context, title string) (catalog.Fields, error)
}

// StatusSource reports provider availability.
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}

// RateLimitedError is returned by an Enricher when the provider is cooling down.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("ai provider rate limited, retry after %s", e.RetryAfter)
}

// State is a snapshot of the queue for display.
type State struct {
	Items      []Movie    `json:"items"`
	Available  bool       `json:"ai_available"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
	Processing bool       `json:"processing"`
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity overrides the maximum number of queued movies.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithInterval overrides the periodic drain interval used by Run.
func WithInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithSchedule sets a cron spec for Run, replacing the interval.
func WithSchedule(spec string) Option {
	return func(q *Queue) {
		q.schedule = strings.TrimSpace(spec)
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// Queue is safe for concurrent use. At most one enrichment call is in flight.
type Queue struct {
	mu         sync.Mutex
	items      []Movie
	available  bool
	retryAfter time.Time
	processing bool

	capacity int
	interval time.Duration
	schedule string
	clock    func() time.Time

	enricher Enricher
	status   StatusSource
	updates  chan Update
}

// New returns an empty queue that assumes the provider is available.
func New(enricher Enricher, status StatusSource, opts ...Option) *Queue {
	q := &Queue{
		available: true,
		capacity:  DefaultCapacity,
		interval:  DefaultInterval,
		clock:     time.Now,
		enricher:  enricher,
		status:    status,
		updates:   make(chan Update, updateBuffer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends movie unless its exact title is already queued. A full queue
// evicts its oldest entry first.
func (q *Queue) Add(movie Movie) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexLocked(movie.Title) >= 0 {
		return
	}
	if len(q.items) >= q.capacity {
		evicted := q.items[0]
		q.items = slices.Delete(q.items, 0, 1)
		logDebug("Enrichment queue full, evicted oldest", zap.String("title", evicted.Title))
	}
	movie.AIPending = true
	q.items = append(q.items, movie)
	metrics.SetQueueDepth(len(q.items))
}

// Remove drops title from the queue. Unknown titles are ignored.
func (q *Queue) Remove(title string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(title)
}

// Items returns a copy of the queued movies, oldest first.
func (q *Queue) Items() []Movie {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Len returns the number of queued movies.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// State returns a snapshot of the queue.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := State{
		Items:      slices.Clone(q.items),
		Available:  q.available,
		Processing: q.processing,
	}
	if !q.retryAfter.IsZero() {
		until := q.retryAfter
		state.RetryAfter = &until
	}
	return state
}

// Updates delivers enriched movies. Publishing never blocks; when nobody
// reads, updates beyond the buffer are dropped. The channel is never closed.
func (q *Queue) Updates() <-chan Update {
	return q.updates
}

// ProcessNext enriches the head of the queue. It returns nil, nil when the
// queue is empty or another drain is in flight. A rate-limited call leaves
// the movie queued and returns a *RateLimitedError.
func (q *Queue) ProcessNext(ctx context.Context) (*Update, error) {
	q.mu.Lock()
	if q.processing || len(q.items) == 0 {
		q.mu.Unlock()
		return nil, nil
	}
	q.processing = true
	head := q.items[0]
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	fields, err := q.enricher.Enrich(ctx, head.Title)
	if err != nil {
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			wait := limited.RetryAfter
			if wait <= 0 {
				wait = DefaultRetryAfter
			}
			q.mu.Lock()
			q.available = false
			q.retryAfter = q.clock().Add(wait)
			q.mu.Unlock()
		}
		return nil, err
	}

	q.mu.Lock()
	// The movie may have been removed while the call was in flight.
	q.removeLocked(head.Title)
	q.available = true
	q.mu.Unlock()

	update := Update{Title: head.Title, Fields: fields, Movie: Merge(head, fields)}
	q.publish(update)
	return &update, nil
}

// Tick is one periodic drain attempt: skipped while the queue is empty or a
// known cooldown is running, otherwise it refreshes availability and drains
// one movie if the provider is up.
func (q *Queue) Tick(ctx context.Context) {
	q.mu.Lock()
	skip := len(q.items) == 0 || q.clock().Before(q.retryAfter)
	q.mu.Unlock()
	if skip {
		return
	}

	status, err := q.status.Status(ctx)
	if err != nil {
		logWarn("AI status check failed", zap.Error(err))
		return
	}

	q.mu.Lock()
	q.available = status.Available
	if status.RemainingSeconds > 0 {
		q.retryAfter = q.clock().Add(time.Duration(status.RemainingSeconds) * time.Second)
	} else {
		q.retryAfter = time.Time{}
	}
	q.mu.Unlock()

	if !status.Available {
		return
	}

	update, err := q.ProcessNext(ctx)
	switch {
	case err != nil:
		logWarn("Background enrichment failed", zap.Error(err))
	case update != nil:
		logInfo("Background enrichment completed",
			zap.String("title", update.Title),
			zap.Int("remaining", q.Len()))
	}
}

// Run ticks immediately and then on the schedule until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := q.schedule
	if spec == "" {
		spec = fmt.Sprintf("@every %s", q.interval)
	}
	if _, err := scheduler.AddFunc(spec, func() { q.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule queue tick %q: %w", spec, err)
	}

	scheduler.Start()
	q.Tick(ctx)

	<-ctx.Done()
	stopped := scheduler.Stop()
	<-stopped.Done()
	return nil
}

// Merge applies enriched fields to movie without blanking existing values.
func Merge(movie Movie, fields catalog.Fields) Movie {
	if fields.Genre != "" {
		movie.Genre = fields.Genre
	}
	if fields.Mood != "" {
		movie.Mood = fields.Mood
	}
	if len(fields.Streaming) > 0 {
		movie.Streaming = slices.Clone(fields.Streaming)
	}
	movie.AIPending = false
	return movie
}

func (q *Queue) publish(update Update) {
	select {
	case q.updates <- update:
	default:
		logWarn("Enrichment update dropped, no reader", zap.String("title", update.Title))
	}
}

func (q *Queue) indexLocked(title string) int {
	return slices.IndexFunc(q.items, func(m Movie) bool { return m.Title == title })
}

func (q *Queue) removeLocked(title string) {
	if i := q.indexLocked(title); i >= 0 {
		q.items = slices.Delete(q.items, i, i+1)
		metrics.SetQueueDepth(len(q.items))
	}
}

func logDebug(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Debug(msg, fields...)
	}
}

func logInfo(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Info(msg, fields...)
	}
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Warn(msg, fields...)
	}
}
