package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/universal-launchpad/internal/models"
	"github.com/rxtech-lab/universal-launchpad/internal/taskmanager"
)

type rejectingQueue struct{}

func (rejectingQueue) AddTask(task taskmanager.Task) error {
	return taskmanager.ErrQueueFull
}

// holdingQueue keeps tasks until runAll is called
type holdingQueue struct {
	mu    sync.Mutex
	tasks []taskmanager.Task
}

func (q *holdingQueue) AddTask(task taskmanager.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *holdingQueue) runAll(ctx context.Context) {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, task := range tasks {
		task(ctx)
	}
}

func (q *holdingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (s *OrchestratorTestSuite) TestLauncherRunsSagaInBackground() {
	tm := taskmanager.NewTaskManager(1, 4, nil)
	tm.Start()
	defer func() { s.NoError(tm.Stop(context.Background())) }()

	launcher := NewLauncher(s.defaultOrchestrator(), tm, nil)
	id, err := launcher.Launch(s.ctx, tokenSpec(hubChainID, sepoliaChainID))
	s.Require().NoError(err)
	s.NotEmpty(id)

	s.Eventually(func() bool {
		got, err := s.store.Get(s.ctx, id)
		return err == nil && got.OverallStatus.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(models.DeploymentStatusCompleted, s.stored(id).OverallStatus)
}

func (s *OrchestratorTestSuite) TestLaunchedRecordExistsBeforeSagaRuns() {
	queue := &holdingQueue{}
	launcher := NewLauncher(s.defaultOrchestrator(), queue, nil)

	id, err := launcher.Launch(s.ctx, tokenSpec(hubChainID, sepoliaChainID))
	s.Require().NoError(err)

	pending := s.stored(id)
	s.Equal(models.DeploymentStatusPending, pending.OverallStatus)
	s.Equal(hubChainID, pending.HubChainID)
	s.Require().Len(pending.Spokes, 1)
	s.Equal(sepoliaChainID, pending.Spokes[0].ChainID)
	s.Empty(pending.DeployerAddress)
	s.Zero(s.client.total())

	s.Equal(1, queue.len())
	queue.runAll(s.ctx)

	done := s.stored(id)
	s.Equal(models.DeploymentStatusCompleted, done.OverallStatus)
	s.Equal(s.signer.Address().Hex(), done.DeployerAddress)
}

func (s *OrchestratorTestSuite) TestLauncherRejectsSynchronously() {
	launcher := NewLauncher(s.defaultOrchestrator(), rejectingQueue{}, nil)

	_, err := launcher.Launch(s.ctx, tokenSpec(sepoliaChainID))
	var validationErr *ValidationError
	s.ErrorAs(err, &validationErr)

	_, err = launcher.Launch(s.ctx, tokenSpec(hubChainID, 424242))
	s.ErrorAs(err, &validationErr)

	_, err = launcher.Launch(s.ctx, tokenSpec(hubChainID))
	s.ErrorIs(err, taskmanager.ErrQueueFull)
	s.Zero(s.client.total())

	// only the launch the queue refused left a record, and it is closed
	list, err := s.store.List(s.ctx, 100, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(models.DeploymentStatusFailed, list[0].OverallStatus)
	s.Contains(list[0].ErrorMessage, "deployment was not queued")
	s.NotNil(list[0].CompletedAt)
	s.Equal(models.StepStatusNotAttempted, list[0].HubStatus)
}

func (s *OrchestratorTestSuite) TestLauncherKeepsSignerFailureAsRecord() {
	tm := taskmanager.NewTaskManager(1, 1, nil)
	tm.Start()
	launcher := NewLauncher(s.newOrchestrator(Config{}, failingProvider{}), tm, nil)

	id, err := launcher.Launch(s.ctx, tokenSpec(hubChainID))
	s.Require().NoError(err)
	s.Require().NoError(tm.Stop(context.Background()))

	got := s.stored(id)
	s.Equal(models.DeploymentStatusFailed, got.OverallStatus)
	s.Contains(got.ErrorMessage, "[chain 0] failed to load service signer")
	s.Equal(models.StepStatusNotAttempted, got.HubStatus)
	s.NotNil(got.CompletedAt)
	s.Zero(s.client.total())
}

func (s *OrchestratorTestSuite) TestResumePendingQueuesStoredRecords() {
	o := s.defaultOrchestrator()
	first, err := o.Prepare(s.ctx, tokenSpec(hubChainID))
	s.Require().NoError(err)
	second, err := o.Prepare(s.ctx, tokenSpec(hubChainID, bscChainID))
	s.Require().NoError(err)
	_, err = o.Deploy(s.ctx, tokenSpec(hubChainID))
	s.Require().NoError(err)

	queue := &holdingQueue{}
	n, err := NewLauncher(o, queue, nil).ResumePending(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	queue.runAll(s.ctx)
	s.Equal(models.DeploymentStatusCompleted, s.stored(first.ID).OverallStatus)
	s.Equal(models.DeploymentStatusCompleted, s.stored(second.ID).OverallStatus)
}

func (s *OrchestratorTestSuite) TestRunOnlyStartsPendingRecords() {
	o := s.defaultOrchestrator()
	record, err := o.Deploy(s.ctx, tokenSpec(hubChainID))
	s.Require().NoError(err)
	calls := s.client.total()

	_, err = o.Run(s.ctx, record.ID)
	s.ErrorContains(err, "not pending")
	s.Equal(calls, s.client.total())

	_, err = o.Run(s.ctx, "missing")
	s.Error(err)
}

func (s *OrchestratorTestSuite) TestRunFailsWhenRegistryChangedWhileQueued() {
	o := s.defaultOrchestrator()
	record, err := o.Prepare(s.ctx, tokenSpec(hubChainID, bscChainID))
	s.Require().NoError(err)

	disabled := testTargets()[bscChainID]
	disabled.Enabled = false
	s.registry.set(disabled)

	got, err := o.Run(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(models.DeploymentStatusFailed, got.OverallStatus)
	s.Contains(got.ErrorMessage, "chain registry check failed")
	s.Zero(s.client.total())

	stored := s.stored(record.ID)
	s.Equal(models.DeploymentStatusFailed, stored.OverallStatus)
	s.NotNil(stored.CompletedAt)
}
