// Package reconcile runs the periodic duplicate-person scan.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/unitecrm/unite/internal/config"
	"github.com/unitecrm/unite/internal/crm"
)

const scanLimit = 500

// PeopleLister is the person-listing capability the scan consumes.
type PeopleLister interface {
	ListPeople(ctx context.Context, limit int) ([]crm.Person, error)
}

// PeopleMerger collapses one duplicate pair. A (nil, nil) result means the
// pair was already gone; that is not a scan failure.
type PeopleMerger interface {
	MergePeople(ctx context.Context, keeperID, loserID string) (*crm.Person, error)
}

// Service schedules and executes duplicate scans.
type Service struct {
	cron   *cron.Cron
	parser cron.Parser
	crm    PeopleLister
	merger PeopleMerger
	cfg    config.ReconcileConfig
	logger *slog.Logger
}

// NewService creates the reconcile service. The cron loop is not started
// until Bootstrap.
func NewService(log *slog.Logger, crmSvc PeopleLister, merger PeopleMerger, cfg config.ReconcileConfig) *Service {
	if log == nil {
		log = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		cron:   cron.New(cron.WithParser(parser)),
		parser: parser,
		crm:    crmSvc,
		merger: merger,
		cfg:    cfg,
		logger: log.With(slog.String("service", "reconcile")),
	}
}

// Bootstrap registers the scan job and starts the cron loop. Disabled
// configuration is not an error; the service simply stays idle.
func (s *Service) Bootstrap(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("duplicate scan disabled")
		return nil
	}
	pattern := s.cfg.Pattern
	if pattern == "" {
		pattern = config.DefaultReconcilePattern
	}
	if _, err := s.parser.Parse(pattern); err != nil {
		return fmt.Errorf("invalid cron pattern %q: %w", pattern, err)
	}
	_, err := s.cron.AddFunc(pattern, func() {
		if merged, err := s.Run(context.Background()); err != nil {
			s.logger.Error("duplicate scan failed", slog.Any("error", err))
		} else if merged > 0 {
			s.logger.Info("duplicate scan merged records", slog.Int("merged", merged))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule duplicate scan: %w", err)
	}
	s.cron.Start()
	s.logger.Info("duplicate scan scheduled", slog.String("pattern", pattern))
	return nil
}

// Shutdown stops the cron loop and waits for a running scan to finish or
// the context to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes one scan: list live people, pair up likely duplicates, and
// merge each pair. Returns the number of merges applied. Individual merge
// failures are logged and skipped so one bad pair cannot stall the rest.
func (s *Service) Run(ctx context.Context) (int, error) {
	if s.crm == nil || s.merger == nil {
		return 0, errors.New("reconcile collaborators not configured")
	}
	people, err := s.crm.ListPeople(ctx, scanLimit)
	if err != nil {
		return 0, fmt.Errorf("list people: %w", err)
	}

	threshold := s.cfg.MergeThreshold
	if threshold <= 0 {
		threshold = config.DefaultMergeThreshold
	}
	merged := 0
	for _, p := range duplicatePairs(people, threshold) {
		result, err := s.merger.MergePeople(ctx, p.KeeperID, p.LoserID)
		if err != nil {
			s.logger.Error("merge failed",
				slog.String("keeper_id", p.KeeperID), slog.String("loser_id", p.LoserID), slog.Any("error", err))
			continue
		}
		if result == nil {
			continue
		}
		merged++
		s.logger.Info("merged duplicate person",
			slog.String("keeper_id", p.KeeperID), slog.String("loser_id", p.LoserID),
			slog.Float64("score", p.Score))
	}
	return merged, nil
}
