package scheduler

import (
	"context"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/monitoring"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	dailyDigest  = "0 0 9 * * *"
	weeklyDigest = "0 0 9 * * MON"
	alertCheck   = "0 0 */4 * * *"
	stateBackup  = "0 0 * * * *"
	collection   = "0 30 * * * *"

	jobTimeout = 5 * time.Minute
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	RunDigest(ctx context.Context, userID string) (*models.Report, error)
	RunAlertCheck(ctx context.Context, userID string) (*models.Alert, error)
	BackupState(ctx context.Context) (string, error)
	RunCollection(ctx context.Context, userID string) (*monitoring.CollectionResult, error)
}

// Service handles scheduling of digests, alert checks, mention collection and backups
type Service struct {
	config  *config.Config
	jobs    Jobs
	backups bool
	cron    *cron.Cron
}

// NewService creates a new scheduler service. backups enables the hourly state backup.
func NewService(cfg *config.Config, jobs Jobs, backups bool) *Service {
	return &Service{
		config:  cfg,
		jobs:    jobs,
		backups: backups,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location())),
	}
}

// Start registers the jobs and begins running them
func (s *Service) Start() error {
	digestExpression := weeklyDigest
	if s.config.ReportSchedule == "daily" {
		digestExpression = dailyDigest
	}

	if _, err := s.cron.AddFunc(digestExpression, s.runDigests); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(alertCheck, s.runAlertChecks); err != nil {
		return err
	}

	if s.config.CollectionEnabled() {
		if _, err := s.cron.AddFunc(collection, s.runCollections); err != nil {
			return err
		}
	}

	if s.backups {
		if _, err := s.cron.AddFunc(stateBackup, s.runBackup); err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digests for %d users (plus alert checks every 4 hours)", s.config.ReportSchedule, len(s.config.ReportUsers))
	return nil
}

func (s *Service) runDigests() {
	for _, userID := range s.config.ReportUsers {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		logrus.Infof("Starting scheduled digest for user %s", userID)
		if _, err := s.jobs.RunDigest(ctx, userID); err != nil {
			logrus.Errorf("Scheduled digest for user %s failed: %v", userID, err)
		}
		cancel()
	}
}

func (s *Service) runAlertChecks() {
	for _, userID := range s.config.ReportUsers {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		if _, err := s.jobs.RunAlertCheck(ctx, userID); err != nil {
			logrus.Errorf("Alert check for user %s failed: %v", userID, err)
		}
		cancel()
	}
}

func (s *Service) runCollections() {
	for _, userID := range s.config.ReportUsers {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		if _, err := s.jobs.RunCollection(ctx, userID); err != nil {
			logrus.Errorf("Mention collection for user %s failed: %v", userID, err)
		}
		cancel()
	}
}

func (s *Service) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.jobs.BackupState(ctx); err != nil {
		logrus.Errorf("State backup failed: %v", err)
	}
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
