package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/queue"
	"vaultindex/internal/search"
	"vaultindex/internal/storage"
)

// taskEnv is what a handler works with: one dedicated connection, the
// repositories bound to it, and the search index.
type taskEnv struct {
	conn  storage.TxBeginner
	store *storage.Store
	index *search.Index
	caps  storage.Capabilities
}

// gcSchedule tracks when block collection is next due.
type gcSchedule struct {
	initialDone  bool
	queued       bool
	lastActivity time.Time
}

func (s *Service) runWorker(ctx context.Context, sess *session, scanDone <-chan struct{}) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "worker started")

	gc := gcSchedule{lastActivity: time.Now()}
	for ctx.Err() == nil {
		task, ok := s.queue.Pop(ctx, s.pollInterval)
		if !ok {
			if ctx.Err() == nil {
				s.scheduleGC(ctx, &gc, scanDone)
			}
			continue
		}

		s.process(ctx, sess, task)

		if _, isGC := task.(queue.GarbageCollect); isGC {
			gc.queued = false
		}
		gc.lastActivity = time.Now()
	}
	logger.DebugContext(ctx, "worker stopped")
}

// scheduleGC queues a collection once after the initial scan, then whenever the
// queue has been empty for the idle interval. At most one is queued at a time.
func (s *Service) scheduleGC(ctx context.Context, gc *gcSchedule, scanDone <-chan struct{}) {
	if gc.queued || s.queue.Len() > 0 {
		return
	}
	if !gc.initialDone {
		select {
		case <-scanDone:
		default:
			return
		}
		gc.initialDone = true
	} else if time.Since(gc.lastActivity) < s.gcIdleInterval {
		return
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "scheduling block garbage collection")
	gc.queued = true
	s.queue.Push(queue.GarbageCollect{})
}

// process runs one task. The task is always marked done, and neither an error
// nor a panic escapes: failures are logged and the worker moves on.
func (s *Service) process(ctx context.Context, sess *session, task queue.Task) {
	defer s.queue.Done()

	logger := contextutil.LoggerFromContext(ctx).With(
		"task_id", uuid.NewString(),
		"task", string(task.Kind()),
	)
	// Handlers run to completion even when Stop cancels the worker.
	taskCtx := contextutil.WithLogger(context.WithoutCancel(ctx), logger)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(taskCtx, "task panicked", "panic", r)
		}
	}()

	conn, err := sess.db.Conn(taskCtx)
	if err != nil {
		logger.ErrorContext(taskCtx, "failed to acquire database connection", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	env := &taskEnv{
		conn:  conn,
		store: storage.NewStore(conn),
		index: sess.index,
		caps:  sess.caps,
	}

	if err := s.dispatch(taskCtx, env, task); err != nil {
		logger.ErrorContext(taskCtx, "task failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.DebugContext(taskCtx, "task completed", "duration", time.Since(start))
}

func (s *Service) dispatch(ctx context.Context, env *taskEnv, task queue.Task) error {
	switch t := task.(type) {
	case queue.Upsert:
		return s.handleUpsert(ctx, env, t)
	case queue.Delete:
		return s.handleDelete(ctx, env, t)
	case queue.Move:
		return s.handleMove(ctx, env, t)
	case queue.RenameFile:
		return s.handleRenameFile(ctx, env, t)
	case queue.SyncBlock:
		return s.handleSyncBlock(ctx, env, t)
	case queue.GarbageCollect:
		return s.handleGarbageCollect(ctx, env)
	default:
		return fmt.Errorf("%w: no handler for %s", queue.ErrInvalidTask, task.Kind())
	}
}
