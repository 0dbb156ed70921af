package services

import (
	"context"
	"fmt"
	"time"

	"AutoPostAPI/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the automation from two cron timers: the daily
// provisioning job and the frequent due sweep. Each timer skips a tick while
// its previous run is still going and recovers from panics, so a slow
// generation never holds up the sweep and a crash never stops the timers.
type Scheduler struct {
	cron       *cron.Cron
	automation *AutomationService
	dailySpec  string
	sweepSpec  string
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(automation *AutomationService, loc *time.Location, dailySpec, sweepSpec string) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(utils.Logger())
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		automation: automation,
		dailySpec:  dailySpec,
		sweepSpec:  sweepSpec,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.dailySpec, s.runDaily); err != nil {
		return fmt.Errorf("schedule daily job %q: %w", s.dailySpec, err)
	}
	if _, err := s.cron.AddFunc(s.sweepSpec, s.runSweep); err != nil {
		return fmt.Errorf("schedule sweep job %q: %w", s.sweepSpec, err)
	}

	s.cron.Start()
	utils.Infof("Scheduler started (daily %q, sweep %q, timezone %s)", s.dailySpec, s.sweepSpec, s.cron.Location())
	return nil
}

// Stop halts both timers, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	utils.Infof("Scheduler stopped")
}

func (s *Scheduler) runDaily() {
	utils.Infof("Daily automation triggered")
	_, _ = s.automation.RunDaily(s.ctx, s.now())
}

func (s *Scheduler) runSweep() {
	_, _ = s.automation.RunSweep(s.ctx, s.now())
}
