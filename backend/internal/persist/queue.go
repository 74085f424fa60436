// Package persist writes answered turns to the conversation graph off the request path.
package persist

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/graph"
	"agent-neo/backend/internal/status"
	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("persistence queue is closed")

// Writer is the part of graph.Writer the queue drives.
type Writer interface {
	LogNewConversation(ctx context.Context, msg domain.UserMessage, llmType string, temperature float64) (graph.WriteResult, error)
	LogUser(ctx context.Context, msg domain.UserMessage, previousMessageID string) (graph.WriteResult, error)
	LogAssistant(ctx context.Context, msg domain.AssistantMessage, previousMessageID string, contextIDs []string) (graph.WriteResult, error)
	ConversationStarted(ctx context.Context, conversationID, firstMessageID string) (bool, error)
}

// Options configures a Queue
type Options struct {
	Workers     int
	QueueSize   int // per worker
	MaxAttempts int
	Backoff     time.Duration // base delay; attempt n waits n*Backoff
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Workers:     4,
		QueueSize:   64,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

// Queue runs turn jobs on a fixed set of workers. Jobs of one conversation always land on the
// same worker, so they are written in the order they were enqueued.
type Queue struct {
	writer  Writer
	tracker status.Tracker
	opts    Options
	shards  []chan *TurnJob
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
}

func NewQueue(writer Writer, tracker status.Tracker, opts Options) *Queue {
	defaults := DefaultOptions()
	if opts.Workers < 1 {
		opts.Workers = defaults.Workers
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaults.Backoff
	}

	shards := make([]chan *TurnJob, opts.Workers)
	for i := range shards {
		shards[i] = make(chan *TurnJob, opts.QueueSize)
	}

	return &Queue{
		writer:  writer,
		tracker: tracker,
		opts:    opts,
		shards:  shards,
		logger:  logger.Named("persist"),
	}
}

// Start launches the workers. Cancelling ctx abandons queued jobs.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.group, runCtx = errgroup.WithContext(runCtx)

	for i, shard := range q.shards {
		worker, jobs := i, shard
		q.group.Go(func() error {
			q.work(runCtx, worker, jobs)
			return nil
		})
	}

	q.logger.Info("Persistence queue started",
		zap.Int("workers", q.opts.Workers),
		zap.Int("queue_size", q.opts.QueueSize),
		zap.Int("max_attempts", q.opts.MaxAttempts),
	)
}

// Enqueue hands a job to its conversation's worker. It blocks while that worker's buffer is
// full, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job *TurnJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	q.report(ctx, job, status.StatePending, nil)

	select {
	case q.shards[q.shardFor(job.conversationID())] <- job:
		q.logger.Debug("Turn queued for persistence",
			zap.String("job_id", job.ID),
			zap.String("conversation_id", job.conversationID()),
			zap.String("message_id", job.AssistantMessage.MessageID),
		)
		return nil
	case <-ctx.Done():
		err := apperrors.NewContextCancelled("enqueue_turn", ctx.Err())
		q.report(context.WithoutCancel(ctx), job, status.StateFailed, err)
		return err
	}
}

// Shutdown stops intake and waits for queued jobs to drain. When ctx ends first the remaining
// jobs are abandoned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, shard := range q.shards {
		close(shard)
	}
	group, cancel := q.group, q.cancel
	q.mu.Unlock()

	if group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	select {
	case err := <-done:
		cancel()
		q.logger.Info("Persistence queue drained")
		return err
	case <-ctx.Done():
		cancel()
		q.logger.Warn("Persistence queue shutdown timed out; pending turns abandoned")
		return apperrors.NewContextCancelled("persist_shutdown", ctx.Err())
	}
}

func (q *Queue) shardFor(conversationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return int(h.Sum32() % uint32(len(q.shards)))
}

func (q *Queue) work(ctx context.Context, worker int, jobs <-chan *TurnJob) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			q.process(ctx, worker, job)
		case <-ctx.Done():
			return
		}
	}
}

// process runs a job to completion, retrying transient failures from the step that failed.
func (q *Queue) process(ctx context.Context, worker int, job *TurnJob) {
	log := q.logger.With(
		zap.Int("worker", worker),
		zap.String("job_id", job.ID),
		zap.String("conversation_id", job.conversationID()),
		zap.String("message_id", job.AssistantMessage.MessageID),
	)

	for job.attempts < q.opts.MaxAttempts {
		job.attempts++
		err := q.run(ctx, job)
		if err == nil {
			state := status.StateLogged
			if job.rejected() {
				state = status.StateRejected
				log.Warn("Turn not written: chain guard refused the append", zap.Any("warnings", job.warnings))
			} else {
				log.Debug("Turn written", zap.Int("attempts", job.attempts))
			}
			q.report(ctx, job, state, nil)
			return
		}

		if !apperrors.IsRetryable(err) || job.attempts >= q.opts.MaxAttempts {
			log.Error("Turn write failed",
				zap.Error(err),
				zap.String("step", job.step.String()),
				zap.Int("attempts", job.attempts),
			)
			q.report(ctx, job, status.StateFailed, err)
			return
		}

		backoff := time.Duration(job.attempts) * q.opts.Backoff
		log.Warn("Retrying turn write",
			zap.Error(err),
			zap.String("step", job.step.String()),
			zap.Int("attempt", job.attempts+1),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			q.report(context.WithoutCancel(ctx), job, status.StateFailed, ctx.Err())
			return
		case <-time.After(backoff):
		}
	}
}

// run executes the remaining steps of job, advancing job.step after each one commits.
func (q *Queue) run(ctx context.Context, job *TurnJob) error {
	if job.step == stepUser {
		var res graph.WriteResult
		var err error
		if prev := job.previousMessageID(); prev == "" {
			res, err = q.writer.LogNewConversation(ctx, job.UserMessage, job.LLMType, job.Temperature)
			if err != nil && job.attempts > 1 && apperrors.IsErrorType(err, apperrors.ErrorTypeConstraint) {
				err = q.confirmStarted(ctx, job, err)
			}
		} else {
			res, err = q.writer.LogUser(ctx, job.UserMessage, prev)
		}
		if err != nil {
			return fmt.Errorf("user step: %w", err)
		}
		job.warnings = append(job.warnings, res.Warnings...)
		if job.rejected() {
			job.step = stepDone
			return nil
		}
		job.step = stepAssistant
	}

	if job.step == stepAssistant {
		res, err := q.writer.LogAssistant(ctx, job.AssistantMessage, job.UserMessage.MessageID, job.ContextIDs)
		if err != nil {
			return fmt.Errorf("assistant step: %w", err)
		}
		job.warnings = append(job.warnings, res.Warnings...)
		job.step = stepDone
	}
	return nil
}

// confirmStarted handles a constraint violation on a retried first turn. An earlier attempt may
// have committed without its acknowledgement reaching us; if the conversation already starts with
// this user message the step is done, otherwise the violation stands.
func (q *Queue) confirmStarted(ctx context.Context, job *TurnJob, cause error) error {
	started, err := q.writer.ConversationStarted(ctx, job.conversationID(), job.UserMessage.MessageID)
	if err != nil {
		return fmt.Errorf("%w (verify failed: %v)", cause, err)
	}
	if !started {
		return cause
	}
	q.logger.Info("First turn already committed by an earlier attempt",
		zap.String("conversation_id", job.conversationID()),
		zap.String("message_id", job.UserMessage.MessageID),
		zap.Int("attempt", job.attempts),
	)
	return nil
}

// rejected reports whether a chain guard refused one of the appends.
func (j *TurnJob) rejected() bool {
	for _, w := range j.warnings {
		if w.Code == graph.WarningPreviousMissing || w.Code == graph.WarningPreviousExtended {
			return true
		}
	}
	return false
}

func (q *Queue) report(ctx context.Context, job *TurnJob, state status.State, cause error) {
	if q.tracker == nil {
		return
	}
	s := status.Status{
		MessageID:      job.AssistantMessage.MessageID,
		ConversationID: job.conversationID(),
		State:          state,
		Attempts:       job.attempts,
		Warnings:       job.warnings,
	}
	if cause != nil {
		s.Error = cause.Error()
	}
	if err := q.tracker.Set(ctx, s); err != nil {
		q.logger.Warn("Failed to record persistence status",
			zap.String("message_id", s.MessageID),
			zap.String("state", string(state)),
			zap.Error(err),
		)
	}
}
