package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/caimari/musedock/internal/domain"
)

// Runtime bundles the River client with the workers that need a late
// provisioner binding. The orchestrator depends on the client (through the
// scheduler), and the verification workers depend on the orchestrator, so
// the cycle is broken by constructing the queue first and binding after.
type Runtime struct {
	Client *Client

	edgeVerify *EdgeVerifyWorker
	nsCheck    *NameserverCheckWorker
}

// Bind wires the orchestrator into the verification workers. It must be
// called before Client.Start.
func (r *Runtime) Bind(p Provisioner) {
	r.edgeVerify.provisioner = p
	r.nsCheck.provisioner = p
}

// Setup creates a River client with all workers registered and runs River's
// internal migrations. The caller must Bind the orchestrator, then call
// Client.Start() to begin processing jobs and Client.Stop() for graceful
// shutdown.
func Setup(ctx context.Context, db *sql.DB, mailer domain.Mailer) (*Runtime, error) {
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	rt := &Runtime{
		edgeVerify: &EdgeVerifyWorker{},
		nsCheck:    &NameserverCheckWorker{},
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{})
	river.AddWorker(workers, rt.edgeVerify)
	river.AddWorker(workers, rt.nsCheck)
	river.AddWorker(workers, &MailWorker{mailer: mailer})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}
	rt.Client = client

	return rt, nil
}
