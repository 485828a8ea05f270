package taskmanager

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("task manager is stopped")
)

// Task is a unit of background work. ctx is cancelled only when a shutdown deadline passes.
type Task func(ctx context.Context)

// TaskManager runs tasks on a fixed pool of workers
type TaskManager struct {
	tasks      chan Task
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewTaskManager(numWorkers int, bufferSize int, logger *zap.Logger) *TaskManager {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:      make(chan Task, bufferSize),
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

func (tm *TaskManager) Start() {
	for i := 0; i < tm.numWorkers; i++ {
		tm.wg.Add(1)
		go func(workerID int) {
			defer tm.wg.Done()
			for task := range tm.tasks {
				tm.logger.Debug("worker running task", zap.Int("worker", workerID))
				tm.run(workerID, task)
			}
			tm.logger.Debug("worker exiting", zap.Int("worker", workerID))
		}(i)
	}
}

func (tm *TaskManager) run(workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			tm.logger.Error("task panicked", zap.Int("worker", workerID), zap.Any("panic", r))
		}
	}()
	task(tm.ctx)
}

// AddTask queues a task without blocking
func (tm *TaskManager) AddTask(task Task) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if tm.stopped {
		return ErrStopped
	}
	select {
	case tm.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued and running ones. When ctx ends first
// the tasks' context is cancelled so they stop waiting on chains, and ctx.Err() is returned.
func (tm *TaskManager) Stop(ctx context.Context) error {
	tm.mu.Lock()
	if tm.stopped {
		tm.mu.Unlock()
		return nil
	}
	tm.stopped = true
	close(tm.tasks)
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.cancel()
		tm.logger.Info("all workers stopped")
		return nil
	case <-ctx.Done():
		tm.cancel()
		<-done
		tm.logger.Warn("workers stopped after shutdown deadline")
		return ctx.Err()
	}
}
