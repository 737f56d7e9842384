package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	timeseries "gridpulse/internal/timeseries/domain"
)

// Schedule holds the cron specs for the two source families. Weather runs
// before energy so same-day comparisons see fresh observations first.
type Schedule struct {
	WeatherSpec string
	EnergySpec  string
	// RunOnStart triggers a full sweep immediately on Start, before the
	// first cron tick. Useful after a fresh deploy with an empty store.
	RunOnStart bool
}

// DefaultSchedule returns the standard daily cadence (times in UTC).
func DefaultSchedule() Schedule {
	return Schedule{WeatherSpec: "0 1 * * *", EnergySpec: "0 2 * * *"}
}

// Scheduler triggers ingestion runs on a cron schedule.
type Scheduler struct {
	orchestrator *Orchestrator
	schedule     Schedule
	timeout      time.Duration
	logger       *log.Logger
	cron         *cron.Cron
}

// NewScheduler constructs a Scheduler.
func NewScheduler(orchestrator *Orchestrator, schedule Schedule, timeout time.Duration, logger *log.Logger) (*Scheduler, error) {
	if orchestrator == nil {
		return nil, errors.New("ingest: nil orchestrator")
	}
	if schedule.WeatherSpec == "" || schedule.EnergySpec == "" {
		return nil, errors.New("ingest: empty cron spec")
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Scheduler{
		orchestrator: orchestrator,
		schedule:     schedule,
		timeout:      timeout,
		logger:       logger,
		cron:         cron.New(cron.WithLocation(time.UTC)),
	}, nil
}

// Start registers the cron jobs and begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	weatherEntities := []timeseries.EntityType{
		timeseries.EntityWeatherObservation,
		timeseries.EntityWeatherForecast,
	}
	energyEntities := []timeseries.EntityType{
		timeseries.EntityPrice,
		timeseries.EntityLoad,
		timeseries.EntityFuelMix,
		timeseries.EntityInterfaceFlow,
	}

	if _, err := s.cron.AddFunc(s.schedule.WeatherSpec, func() {
		s.runEntities(ctx, "weather", weatherEntities)
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.schedule.EnergySpec, func() {
		s.runEntities(ctx, "energy", energyEntities)
	}); err != nil {
		return err
	}

	if s.schedule.RunOnStart {
		go s.runAll(ctx)
	}

	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

func (s *Scheduler) runAll(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := s.orchestrator.RunAll(runCtx)
	for entity, err := range report.Errors {
		if s.logger != nil {
			s.logger.Printf("scheduled ingest error: entity=%s err=%v", entity, err)
		}
	}
}

func (s *Scheduler) runEntities(ctx context.Context, family string, entities []timeseries.EntityType) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, entity := range entities {
		result, err := s.orchestrator.Run(runCtx, entity)
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("scheduled ingest error: family=%s entity=%s err=%v", family, entity, err)
			}
			continue
		}
		if s.logger != nil {
			s.logger.Printf("scheduled ingest: family=%s entity=%s upserted=%d rejected=%d",
				family, entity, result.Upserted, result.Rejected)
		}
	}
}
