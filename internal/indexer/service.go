// Package indexer keeps the relational store and the full-text index in step
// with the Markdown files of a vault.
//
// Producers (the filesystem watcher, the initial scan, and callers of Submit)
// push tasks onto a queue. A single worker goroutine pops them and is the only
// writer to either store.
package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/queue"
	"vaultindex/internal/search"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/watcher"
)

const (
	DefaultPollInterval   = time.Second
	DefaultGCIdleInterval = 5 * time.Minute
	DefaultSearchLimit    = 20
)

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of file-modified notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPollInterval sets how long the worker waits for a task before checking for
// shutdown and housekeeping.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// WithGCIdleInterval sets how long the queue must stay empty before block
// garbage collection is scheduled again.
func WithGCIdleInterval(d time.Duration) Option {
	return func(s *Service) { s.gcIdleInterval = d }
}

// WithSearchLimit caps the number of hits Search returns.
func WithSearchLimit(n int) Option {
	return func(s *Service) { s.searchLimit = n }
}

// WithRenameSettle sets the watcher's rename pairing window.
func WithRenameSettle(d time.Duration) Option {
	return func(s *Service) { s.renameSettle = d }
}

// WithLogger sets the logger the engine uses for its whole lifetime. Without it
// the engine logs through slog.Default as of Start.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.baseLogger = logger }
}

// WithoutWatcher disables filesystem watching. Changes then reach the engine
// only through Submit and the initial scan.
func WithoutWatcher() Option {
	return func(s *Service) { s.watch = false }
}

// session holds the store handles opened by Start and released by Stop.
type session struct {
	db    *sql.DB
	index *search.Index
	caps  storage.Capabilities
}

// Service is the indexing engine for one vault.
type Service struct {
	vault    *vault.Vault
	queue    *queue.Queue
	notifier Notifier

	pollInterval   time.Duration
	gcIdleInterval time.Duration
	searchLimit    int
	renameSettle   time.Duration
	watch          bool

	lifecycle  sync.Mutex // serializes Start, Stop and RebuildIndex
	running    atomic.Bool
	baseLogger *slog.Logger
	logger     *slog.Logger
	watcher    *watcher.Watcher
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.RWMutex // guards sess and scanDone
	sess     *session
	scanDone chan struct{}
}

// NewService creates a stopped engine for v.
func NewService(v *vault.Vault, opts ...Option) *Service {
	s := &Service{
		vault:          v,
		queue:          queue.New(),
		notifier:       nopNotifier{},
		pollInterval:   DefaultPollInterval,
		gcIdleInterval: DefaultGCIdleInterval,
		searchLimit:    DefaultSearchLimit,
		watch:          true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vault returns the vault the engine indexes.
func (s *Service) Vault() *vault.Vault { return s.vault }

// Running reports whether Start has completed and Stop has not been called.
func (s *Service) Running() bool { return s.running.Load() }

// Start opens both stores, then launches the initial scan, the worker and the
// watcher. Starting a running engine is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start(ctx)
}

func (s *Service) start(ctx context.Context) error {
	if s.running.Load() {
		return nil
	}
	// The caller's context may carry request-scoped attributes; the engine
	// outlives the request, so it logs through its own logger.
	base := s.baseLogger
	if base == nil {
		base = slog.Default()
	}
	logger := base.With("component", "indexer")
	s.logger = logger

	if err := s.vault.EnsureLayout(); err != nil {
		return WrapError(err, "failed to prepare vault layout")
	}

	db, err := storage.New(s.vault.DBPath())
	if err != nil {
		return WrapError(err, "failed to open database")
	}
	caps, err := storage.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return WrapError(err, "failed to migrate database")
	}
	if !caps.FTS {
		logger.WarnContext(ctx, "sqlite full-text search unavailable, block search falls back to substring matching")
	}

	index, err := search.Open(s.vault.SearchIndexPath())
	if err != nil {
		_ = db.Close()
		return WrapError(err, "failed to open search index")
	}

	sess := &session{db: db, index: index, caps: caps}
	scanDone := make(chan struct{})
	s.mu.Lock()
	s.sess = sess
	s.scanDone = scanDone
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(contextutil.WithLogger(context.WithoutCancel(ctx), logger))
	s.cancel = cancel
	s.running.Store(true)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.scan(runCtx, scanDone)
	}()
	go func() {
		defer s.wg.Done()
		s.runWorker(runCtx, sess, scanDone)
	}()

	if s.watch {
		w := watcher.New(s.vault, s.queue, s.renameSettle)
		if err := w.Start(runCtx); err != nil {
			s.stop()
			return WrapError(err, "failed to start watcher")
		}
		s.watcher = w
	}

	logger.InfoContext(ctx, "indexer started",
		"root", s.vault.Root(),
		"storage", s.vault.StoragePath(),
		"fts", caps.FTSModule,
		"watch", s.watch,
	)
	return nil
}

// Stop shuts the watcher down first so no new tasks arrive, then lets the worker
// finish its current task and closes both stores. Queued tasks are kept for the
// next Start. Stop is idempotent.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Service) stop() {
	if !s.running.Load() {
		return
	}
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}

	s.running.Store(false)
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.scanDone = nil
	s.mu.Unlock()

	if err := sess.index.Close(); err != nil {
		s.logger.Warn("failed to close search index", "error", err)
	}
	if err := sess.db.Close(); err != nil {
		s.logger.Warn("failed to close database", "error", err)
	}
	s.logger.Info("indexer stopped", "queued", s.queue.Len())
}

// RebuildIndex stops the engine, deletes the storage directory with both stores
// in it, and starts again from an empty index.
func (s *Service) RebuildIndex(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "rebuilding index", "storage", s.vault.StoragePath())

	s.stop()
	if err := os.RemoveAll(s.vault.StoragePath()); err != nil {
		return WrapError(err, "failed to remove storage directory")
	}
	return s.start(ctx)
}

// Submit queues a task for the worker. Tasks submitted while the engine is
// stopped run after the next Start.
func (s *Service) Submit(task queue.Task) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", queue.ErrInvalidTask)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	s.queue.Push(task)
	return nil
}

// WaitForIdle blocks until the initial scan has completed and the queue has no
// outstanding or in-flight work, or ctx is done.
func (s *Service) WaitForIdle(ctx context.Context) error {
	s.mu.RLock()
	scanDone := s.scanDone
	s.mu.RUnlock()
	if scanDone == nil {
		return ErrNotRunning
	}

	select {
	case <-scanDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.queue.Join(ctx)
}

// scan queues an upsert for every Markdown file already in the vault, then marks
// the scan complete.
func (s *Service) scan(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	logger := contextutil.LoggerFromContext(ctx)

	files, err := s.vault.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Whatever was found before the failure is still indexed.
		logger.ErrorContext(ctx, "initial scan failed", "error", err, "found", len(files))
	}
	for _, f := range files {
		s.queue.Push(queue.Upsert{Path: f.AbsPath})
	}
	logger.InfoContext(ctx, "initial scan complete", "files", len(files))
}

// withSession runs fn against the open stores, holding them open for its duration.
func (s *Service) withSession(fn func(*session) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return ErrNotRunning
	}
	return fn(s.sess)
}
