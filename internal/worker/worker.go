// Package worker consumes background jobs from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitlabs/accounts-backend/pkg/queue"
)

// EmailLogStore records delivery outcomes; satisfied by emaillog.Repository.
type EmailLogStore interface {
	RecordSent(ctx context.Context, userID uuid.UUID, emailType, recipient, subject string) error
	RecordFailed(ctx context.Context, userID uuid.UUID, emailType, recipient, errMsg string) error
}

// EmailProcessor processes welcome email jobs: renders the message, hands it
// to the sender, and records the outcome in email_logs.
type EmailProcessor struct {
	logs   EmailLogStore
	queue  *queue.Queue
	sender Sender
	logger *zap.Logger
}

// Sender delivers one email. The default logSender only records delivery;
// actual SMTP transport is out of scope.
type Sender func(ctx context.Context, recipient, subject, body string) error

// NewEmailProcessor creates a welcome email processor. A nil sender uses the
// log-only sender.
func NewEmailProcessor(logs EmailLogStore, q *queue.Queue, sender Sender, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = func(ctx context.Context, recipient, subject, body string) error { return nil }
	}
	return &EmailProcessor{logs: logs, queue: q, sender: sender, logger: logger}
}

// Run consumes jobs until the context is cancelled.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		job, err := p.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("process job", zap.Error(err), zap.String("job_id", job.ID))
			if rerr := p.queue.Retry(ctx, job); rerr != nil {
				p.logger.Error("retry job", zap.Error(rerr), zap.String("job_id", job.ID))
			}
		}
	}
}

// Process executes one welcome email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeWelcomeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.WelcomeEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	subject := fmt.Sprintf("Welcome, %s!", payload.FirstName)
	body := fmt.Sprintf("Hi %s, your account is ready.", payload.FirstName)
	if err := p.sender(ctx, payload.Email, subject, body); err != nil {
		_ = p.logs.RecordFailed(ctx, payload.UserID, string(queue.JobTypeWelcomeEmail), payload.Email, err.Error())
		return fmt.Errorf("send: %w", err)
	}
	if err := p.logs.RecordSent(ctx, payload.UserID, string(queue.JobTypeWelcomeEmail), payload.Email, subject); err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	p.logger.Info("welcome email sent", zap.String("user_id", payload.UserID.String()))
	return nil
}
