// Package scheduler runs the recurring installment-reminder job. It only
// sends notifications; installment payment processing lives elsewhere.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/models"
	"github.com/lucasvidela94/wallet-service/internal/utils/email"
)

// reminderWindow is how far ahead of the due date holders are reminded.
const reminderWindow = 3 * 24 * time.Hour

// InstallmentSource lists pending installments for the reminder job.
type InstallmentSource interface {
	ListInstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]models.InstallmentReminder, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	source InstallmentSource
	mailer *email.Sender
	log    *logrus.Logger
	cron   *cron.Cron
}

// New creates a scheduler around the repository and mail sender.
func New(source InstallmentSource, mailer *email.Sender, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		source: source,
		mailer: mailer,
		log:    log,
		cron:   cron.New(),
	}
}

// Start registers the reminder job with the given cron spec and starts the
// runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runReminders); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("Reminder scheduler started with spec %q", spec)
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()

	// Overdue first: anything pending from the last 30 days.
	overdue, err := s.source.ListInstallmentsDueBetween(ctx, now.Add(-30*24*time.Hour), now)
	if err != nil {
		s.log.WithError(err).Error("Failed to list overdue installments")
	} else {
		s.sendBatch(overdue, true)
	}

	upcoming, err := s.source.ListInstallmentsDueBetween(ctx, now, now.Add(reminderWindow))
	if err != nil {
		s.log.WithError(err).Error("Failed to list upcoming installments")
		return
	}
	s.sendBatch(upcoming, false)
}

func (s *Scheduler) sendBatch(reminders []models.InstallmentReminder, overdue bool) {
	for _, r := range reminders {
		if err := s.mailer.SendInstallmentReminder(r.Email, r.Username, r.DueAt, r.Amount, overdue); err != nil {
			s.log.WithError(err).Warnf("Failed to send reminder for installment %d", r.InstallmentID)
		}
	}
}
