package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
)

// Prober refreshes the reference source status.
type Prober interface {
	Probe(ctx context.Context) source.Status
}

// Scheduler runs the periodic reference source probe.
type Scheduler struct {
	cron    *cron.Cron
	prober  Prober
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a scheduler with no jobs. Call Register before Start.
func New(prober Prober, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		prober:  prober,
		timeout: time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds the probe job under spec. An empty spec disables probing
// and reports false.
func (s *Scheduler) Register(spec string) (bool, error) {
	if spec == "" {
		return false, nil
	}
	if _, err := s.cron.AddFunc(spec, s.probe); err != nil {
		return false, fmt.Errorf("register source probe %q: %w", spec, err)
	}
	return true, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels a running probe and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow probes immediately, outside the schedule.
func (s *Scheduler) RunNow() source.Status {
	return s.run()
}

func (s *Scheduler) probe() {
	s.run()
}

func (s *Scheduler) run() source.Status {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	status := s.prober.Probe(ctx)
	event := log.Info()
	if !status.Available {
		event = log.Warn()
	}
	event.
		Str("source", status.Source).
		Bool("available", status.Available).
		Int("weight_rows", status.WeightRows).
		Int("forecast_rows", status.ForecastRows).
		Str("error", status.Error).
		Msg("reference source probed")
	return status
}
