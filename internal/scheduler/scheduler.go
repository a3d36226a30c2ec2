package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// CycleRunner runs one dispatch cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*service.CycleStats, error)
}

// CycleScheduler triggers the dispatch cycle on a cron cadence. Overlapping
// runs are suppressed: if a cycle is still executing when the next tick
// fires, the tick is dropped (the following one picks up whatever is
// pending).
type CycleScheduler struct {
	cron    *cron.Cron
	cycles  CycleRunner
	spec    string
	log     *logger.Logger
	running sync.Mutex
}

// NewCycleScheduler creates a new cycle scheduler
func NewCycleScheduler(cycles CycleRunner, spec string, log *logger.Logger) *CycleScheduler {
	return &CycleScheduler{
		cron:   cron.New(),
		cycles: cycles,
		spec:   spec,
		log:    log,
	}
}

// Start registers the cron entry and starts the scheduler
func (s *CycleScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.tick)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Cycle scheduler started", "spec", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running cycle to finish
func (s *CycleScheduler) Stop() {
	s.log.Info("Stopping cycle scheduler")
	<-s.cron.Stop().Done()

	s.running.Lock()
	s.running.Unlock()
}

func (s *CycleScheduler) tick() {
	if !s.running.TryLock() {
		s.log.Warn("Previous dispatch cycle still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	if _, err := s.cycles.RunCycle(context.Background()); err != nil {
		s.log.Error("Dispatch cycle failed", "error", err)
	}
}
