package scheduler

import (
	"context"
	"time"

	"congregation_backend/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DispatchScheduler triggers the dispatch pass on a cron spec. The pass is
// idempotent and safe to fire from several processes at once, so the spec can
// be as tight as every minute.
type DispatchScheduler struct {
	cronEngine *cron.Cron
	dispatch   app.DispatchService
	logger     *logrus.Logger
	cronSpec   string
}

func NewDispatchScheduler(dispatch app.DispatchService, logger *logrus.Logger, cronSpec string) *DispatchScheduler {
	return &DispatchScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		dispatch:   dispatch,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (s *DispatchScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		summary, err := s.dispatch.RunDuePass(ctx)
		if err != nil {
			s.logger.Errorf("Scheduled dispatch pass failed: %v", err)
			return
		}
		if summary.ProcessedCount > 0 {
			s.logger.Infof("Scheduled dispatch pass: %d automation(s), %d recipient(s)",
				summary.ProcessedCount, summary.RecipientsLogged)
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("Dispatch scheduler started with spec %q", s.cronSpec)
	return nil
}

func (s *DispatchScheduler) Stop() {
	s.logger.Info("Stopping dispatch scheduler...")
	ctx := s.cronEngine.Stop() // Stops new runs, waits for in-flight ones.
	<-ctx.Done()
	s.logger.Info("Dispatch scheduler stopped.")
}
