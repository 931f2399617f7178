package driving

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// Scheduler runs periodic incremental rebuilds.
type Scheduler interface {
	// Start runs the scheduler loop until Stop is called or ctx ends.
	Start(ctx context.Context) error

	// Stop shuts the loop down and waits for a running task.
	Stop() error

	// Tasks returns a snapshot of the scheduled tasks.
	Tasks() []domain.ScheduledTask
}
