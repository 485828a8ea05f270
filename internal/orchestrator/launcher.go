package orchestrator

import (
	"context"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/taskmanager"
	"go.uber.org/zap"
)

// TaskQueue accepts background work. *taskmanager.TaskManager implements it.
type TaskQueue interface {
	AddTask(task taskmanager.Task) error
}

// Launcher validates a spec on the caller's goroutine and runs the saga in the background
type Launcher struct {
	orchestrator *Orchestrator
	queue        TaskQueue
	logger       *zap.Logger
}

func NewLauncher(o *Orchestrator, queue TaskQueue, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{orchestrator: o, queue: queue, logger: logger}
}

// Launch stores a pending record and queues its saga. The returned ID resolves
// immediately; a record the queue refused ends as failed.
func (l *Launcher) Launch(ctx context.Context, spec models.DeploymentSpec) (string, error) {
	record, err := l.orchestrator.Prepare(ctx, spec)
	if err != nil {
		return "", err
	}

	if err := l.enqueue(record.ID); err != nil {
		if _, abortErr := l.orchestrator.abort(ctx, record, "deployment was not queued: "+err.Error()); abortErr != nil {
			l.logger.Error("failed to close unqueued deployment", zap.String("deploymentId", record.ID), zap.Error(abortErr))
		}
		return "", err
	}
	return record.ID, nil
}

// ResumePending queues every record still pending, such as those left behind by a restart.
// It must run before Launch is served so no record is queued twice.
func (l *Launcher) ResumePending(ctx context.Context) (int, error) {
	ids, err := l.orchestrator.deps.Store.ListIDsByStatus(ctx, models.DeploymentStatusPending)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := l.enqueue(id); err != nil {
			return i, err
		}
	}
	if len(ids) > 0 {
		l.logger.Info("resumed pending deployments", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

func (l *Launcher) enqueue(id string) error {
	logger := l.logger.With(zap.String("deploymentId", id))
	return l.queue.AddTask(func(ctx context.Context) {
		record, err := l.orchestrator.Run(ctx, id)
		if err != nil {
			logger.Error("universal deployment did not run", zap.Error(err))
			return
		}
		logger.Info("universal deployment done", zap.String("status", string(record.OverallStatus)))
	})
}
