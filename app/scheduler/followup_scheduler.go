// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/propertyshodh/lead-pipeline/config"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ReminderSender is a minimal interface extracted from NotificationService.
// This keeps the scheduler independent and easy to test.
type ReminderSender interface {
	NotifyFollowUpDue(ctx context.Context, admin *models.Admin, lead *models.Lead) error
}

// FollowUpScheduler periodically finds leads whose follow-up time has arrived
// and reminds the owning operator. Unowned leads are skipped; a lead is
// reminded at most once per follow-up timestamp.
type FollowUpScheduler struct {
	leadRepo  repository.LeadRepository
	adminRepo repository.AdminRepository
	notifier  ReminderSender
	logger    *log.Logger
	interval  time.Duration
	batchSize int
}

func NewFollowUpScheduler(
	leadRepo repository.LeadRepository,
	adminRepo repository.AdminRepository,
	notifier ReminderSender,
	cfg config.SchedulerConfig,
) *FollowUpScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	s := &FollowUpScheduler{
		leadRepo:  leadRepo,
		adminRepo: adminRepo,
		notifier:  notifier,
		interval:  interval,
		batchSize: batchSize,
	}
	s.initSchedulerLogger(cfg.LogPath)

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a
// rotating persistent file
func (s *FollowUpScheduler) initSchedulerLogger(logPath string) {
	if logPath == "" {
		s.logger = log.New(os.Stdout, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotating)
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *FollowUpScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *FollowUpScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()

	due, err := s.leadRepo.ListDueFollowUps(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Printf("scheduler: list due follow-ups failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d leads due for follow-up", len(due))

	// Owners are looked up once per run
	owners := make(map[uint]*models.Admin)

	for _, lead := range due {
		if lead.AssignedAdminID == nil {
			continue
		}
		ownerID := *lead.AssignedAdminID

		owner, ok := owners[ownerID]
		if !ok {
			owner, err = s.adminRepo.ByID(ctx, ownerID)
			if err != nil {
				s.logger.Printf("scheduler: owner lookup failed for lead id=%d: %v", lead.ID, err)
				continue
			}
			owners[ownerID] = owner
		}
		if owner == nil || !utils.IsTrue(owner.IsActive) {
			continue
		}

		if err := s.notifier.NotifyFollowUpDue(ctx, owner, lead); err != nil {
			s.logger.Printf("scheduler: reminder failed for lead id=%d owner id=%d: %v", lead.ID, ownerID, err)
			continue
		}

		if err := s.leadRepo.MarkFollowUpNotified(ctx, lead.ID, now); err != nil {
			s.logger.Printf("scheduler: mark notified failed for lead id=%d: %v", lead.ID, err)
			continue
		}
		s.logger.Printf("scheduler: reminded owner id=%d about lead id=%d", ownerID, lead.ID)
	}
}
