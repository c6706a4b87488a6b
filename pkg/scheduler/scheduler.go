package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Scheduler runs analysis jobs on cron schedules. It owns only the timing;
// the jobs themselves are caller-supplied closures, so no scheduling concern
// ever leaks into the analysis engine.
type Scheduler struct {
	cron    *cron.Cron
	verbose bool
}

// New creates a scheduler
func New(verbose bool) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		verbose: verbose,
	}
}

// Add registers a job under a standard 5-field cron spec
func (s *Scheduler) Add(spec string, name string, job func() error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.verbose {
			fmt.Printf("[DEBUG] scheduled job %q starting\n", name)
		}
		if err := job(); err != nil {
			fmt.Printf("[WARN] scheduled job %q failed: %v\n", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
