package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smartcity/trafficlens/internal/ingest"
)

// AttachmentSource yields the newest dataset file from a remote inbox
type AttachmentSource interface {
	FetchLatest(ctx context.Context) (*ingest.Attachment, error)
}

// Scheduler runs the periodic mailbox poll and summary snapshot jobs
type Scheduler struct {
	cron     *cron.Cron
	datasets *DatasetService
	mailbox  AttachmentSource
	timeout  time.Duration
}

// NewScheduler creates a scheduler. mailbox may be nil to disable polling.
func NewScheduler(datasets *DatasetService, mailbox AttachmentSource) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		datasets: datasets,
		mailbox:  mailbox,
		timeout:  time.Minute,
	}
}

// Schedule registers both jobs. An empty schedule skips that job.
func (s *Scheduler) Schedule(mailboxSchedule, snapshotSchedule string) error {
	if s.mailbox != nil && mailboxSchedule != "" {
		_, err := s.cron.AddFunc(mailboxSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.PollMailbox(ctx); err != nil {
				log.Printf("Mailbox poll error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduler: error scheduling mailbox job: %w", err)
		}
	}

	if snapshotSchedule != "" {
		_, err := s.cron.AddFunc(snapshotSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.datasets.SnapshotSummary(ctx); err != nil {
				log.Printf("Summary snapshot error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduler: error scheduling snapshot job: %w", err)
		}
	}
	return nil
}

// PollMailbox loads the newest matching attachment, if any
func (s *Scheduler) PollMailbox(ctx context.Context) error {
	att, err := s.mailbox.FetchLatest(ctx)
	if err != nil {
		return err
	}
	if att == nil {
		return nil
	}

	if _, err := s.datasets.Load(ctx, att.Filename, bytes.NewReader(att.Content)); err != nil {
		return fmt.Errorf("scheduler: failed to load attachment %s: %w", att.Filename, err)
	}
	return nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
