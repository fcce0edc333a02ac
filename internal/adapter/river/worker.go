package river

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/caimari/musedock/internal/domain"
)

// Provisioner is the slice of the orchestrator the background workers call
// back into. It is bound after construction because the orchestrator itself
// depends on the River client for scheduling.
type Provisioner interface {
	VerifyEdge(ctx context.Context, tenantID string, final bool) (bool, error)
	CheckNameservers(ctx context.Context, tenantID string) (bool, error)
}

// errNotBound guards against jobs firing before Bind was called.
var errNotBound = errors.New("provisioner not bound yet")

// --- edge TLS verification ---

// maxEdgeAttempts bounds the TLS polling loop. On the last attempt the
// orchestrator activates the tenant with a tls-pending diagnostic instead
// of holding it in limbo.
const maxEdgeAttempts = 4

// edgeRetryDelay is the fixed delay between TLS polls.
const edgeRetryDelay = 5 * time.Second

// EdgeVerifyArgs asks the queue to poll a tenant's live domain for TLS
// readiness.
type EdgeVerifyArgs struct {
	TenantID string `json:"tenant_id"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EdgeVerifyArgs) Kind() string { return "edge.verify" }

// InsertOpts bounds the retry loop.
func (EdgeVerifyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: maxEdgeAttempts}
}

// EdgeVerifyWorker polls TLS issuance for freshly routed tenants.
type EdgeVerifyWorker struct {
	river.WorkerDefaults[EdgeVerifyArgs]
	provisioner Provisioner
}

// Work runs one verification attempt. Returning an error reschedules the
// job on the fixed retry delay until MaxAttempts is reached.
func (w *EdgeVerifyWorker) Work(ctx context.Context, job *river.Job[EdgeVerifyArgs]) error {
	if w.provisioner == nil {
		return errNotBound
	}

	final := job.Attempt >= maxEdgeAttempts
	done, err := w.provisioner.VerifyEdge(ctx, job.Args.TenantID, final)
	if err != nil {
		if errors.Is(err, domain.ErrProvisioningInFlight) {
			return river.JobSnooze(edgeRetryDelay)
		}
		return err
	}
	if done {
		slog.InfoContext(ctx, "edge verification finished",
			"tenant_id", job.Args.TenantID,
			"attempt", job.Attempt,
		)
		return nil
	}
	return fmt.Errorf("tls not confirmed for tenant %s yet", job.Args.TenantID)
}

// NextRetry spaces attempts on a fixed delay instead of River's default
// exponential backoff.
func (w *EdgeVerifyWorker) NextRetry(job *river.Job[EdgeVerifyArgs]) time.Time {
	return time.Now().Add(edgeRetryDelay)
}

// --- nameserver verification ---

// nsRetryDelay is the delay between delegation checks. Nameserver changes
// routinely take hours to propagate, so polling is coarse.
const nsRetryDelay = 10 * time.Minute

// maxNSAttempts gives a customer roughly two days to change nameservers
// before automatic polling stops. The manual check endpoint keeps working
// after that; the tenant simply stays in waiting_ns_change.
const maxNSAttempts = 288

// NameserverCheckArgs asks the queue to poll the DNS provider for a custom
// domain's delegation.
type NameserverCheckArgs struct {
	TenantID string `json:"tenant_id"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NameserverCheckArgs) Kind() string { return "nameserver.check" }

// InsertOpts bounds the polling window.
func (NameserverCheckArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: maxNSAttempts}
}

// NameserverCheckWorker polls delegation for bring-your-own domains.
type NameserverCheckWorker struct {
	river.WorkerDefaults[NameserverCheckArgs]
	provisioner Provisioner
}

// Work runs one delegation check.
func (w *NameserverCheckWorker) Work(ctx context.Context, job *river.Job[NameserverCheckArgs]) error {
	if w.provisioner == nil {
		return errNotBound
	}

	verified, err := w.provisioner.CheckNameservers(ctx, job.Args.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrProvisioningInFlight) {
			return river.JobSnooze(nsRetryDelay)
		}
		return err
	}
	if verified {
		slog.InfoContext(ctx, "nameserver delegation confirmed",
			"tenant_id", job.Args.TenantID,
			"attempt", job.Attempt,
		)
		return nil
	}
	return fmt.Errorf("nameservers for tenant %s not delegated yet", job.Args.TenantID)
}

// NextRetry spaces delegation checks on the coarse fixed delay.
func (w *NameserverCheckWorker) NextRetry(job *river.Job[NameserverCheckArgs]) time.Time {
	return time.Now().Add(nsRetryDelay)
}

// --- outbound mail ---

// SendMailArgs delivers one email asynchronously.
type SendMailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (SendMailArgs) Kind() string { return "mail.send" }

// InsertOpts allows a few delivery retries before giving up silently.
func (SendMailArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 3}
}

// MailWorker delivers queued mail. Delivery failure never reaches the
// provisioning flows that enqueued the message.
type MailWorker struct {
	river.WorkerDefaults[SendMailArgs]
	mailer domain.Mailer
}

// Work sends one message.
func (w *MailWorker) Work(ctx context.Context, job *river.Job[SendMailArgs]) error {
	err := w.mailer.Send(ctx, domain.Mail{
		To:      job.Args.To,
		Subject: job.Args.Subject,
		Body:    job.Args.Body,
	})
	if err != nil {
		slog.WarnContext(ctx, "mail delivery failed",
			"to", job.Args.To,
			"attempt", job.Attempt,
			"error", err,
		)
		return err
	}
	return nil
}

// --- domain events ---

// EventWorker processes domain event jobs from the River queue. For now it
// logs the event; future versions will dispatch to webhooks or billing.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing event",
		"event", job.Args.Event,
		"tenant_id", job.Args.TenantID,
		"domain", job.Args.Domain,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
