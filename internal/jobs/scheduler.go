package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type StreamTrimmer interface {
	Trim(ctx context.Context, maxLen int64) (int64, error)
}

// Scheduler runs periodic maintenance. Schedules use the six-field cron
// format with seconds.
type Scheduler struct {
	cron     *cron.Cron
	trimmer  StreamTrimmer
	schedule string
	maxLen   int64
	log      zerolog.Logger
}

func NewScheduler(trimmer StreamTrimmer, schedule string, maxLen int64, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		trimmer:  trimmer,
		schedule: schedule,
		maxLen:   maxLen,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.trimmer == nil || s.maxLen <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.trimStream); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for a running job to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) trimStream() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.trimmer.Trim(ctx, s.maxLen)
	if err != nil {
		s.log.Error().Err(err).Msg("trim event stream failed")
		return
	}
	s.log.Info().Int64("removed", removed).Int64("max_len", s.maxLen).Msg("event stream trimmed")
}
