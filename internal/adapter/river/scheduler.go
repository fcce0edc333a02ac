package river

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/caimari/musedock/internal/domain"
)

// Scheduler enqueues provisioning follow-up work on the River queue,
// implementing domain.TaskScheduler. Jobs are durable in SQLite, so a
// restart mid-provisioning resumes verification where it left off.
type Scheduler struct {
	client *Client
}

// NewScheduler creates a Scheduler backed by the given River client.
func NewScheduler(client *Client) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleEdgeVerification enqueues the TLS polling job. The first attempt
// is delayed to give the edge router time to request a certificate.
func (s *Scheduler) ScheduleEdgeVerification(ctx context.Context, tenantID string) error {
	_, err := s.client.Insert(ctx, EdgeVerifyArgs{TenantID: tenantID}, &river.InsertOpts{
		ScheduledAt: time.Now().Add(edgeRetryDelay),
	})
	if err != nil {
		return fmt.Errorf("enqueueing edge verification for tenant %s: %w", tenantID, err)
	}
	return nil
}

// ScheduleNameserverCheck enqueues the delegation polling job. The first
// check runs quickly in case the customer already changed nameservers; the
// worker's retry schedule spaces subsequent checks out.
func (s *Scheduler) ScheduleNameserverCheck(ctx context.Context, tenantID string) error {
	_, err := s.client.Insert(ctx, NameserverCheckArgs{TenantID: tenantID}, &river.InsertOpts{
		ScheduledAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		return fmt.Errorf("enqueueing nameserver check for tenant %s: %w", tenantID, err)
	}
	return nil
}

// ScheduleMail enqueues an email for asynchronous delivery.
func (s *Scheduler) ScheduleMail(ctx context.Context, mail domain.Mail) error {
	_, err := s.client.Insert(ctx, SendMailArgs{
		To:      mail.To,
		Subject: mail.Subject,
		Body:    mail.Body,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueueing mail to %s: %w", mail.To, err)
	}
	return nil
}
