// Package ingest uploads the guides into a File Search store and waits for
// them to be indexed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jharjadi/guides-search/internal/gemini"
)

// DefaultPollInterval matches the cadence the indexing API expects clients
// to poll at.
const DefaultPollInterval = 3 * time.Second

// State is a step of the indexing wait.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// ErrCancelled is returned when the wait is interrupted.
var ErrCancelled = errors.New("indexing wait cancelled")

// OperationGetter refreshes a long-running operation.
type OperationGetter interface {
	GetOperation(ctx context.Context, name string) (*gemini.Operation, error)
}

// Poller waits for an upload operation:
// submitted -> polling* -> done | failed | cancelled.
type Poller struct {
	Ops      OperationGetter
	Interval time.Duration

	// OnState, when set, is called on entry to every state, including each
	// repeated polling step.
	OnState func(State, *gemini.Operation)
}

// Wait polls op at a fixed interval until it finishes, fails or ctx ends.
func (p *Poller) Wait(ctx context.Context, op *gemini.Operation) (*gemini.Operation, error) {
	if op == nil {
		return nil, errors.New("wait: nil operation")
	}
	p.notify(StateSubmitted, op)

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if op.Done {
			if err := op.Err(); err != nil {
				p.notify(StateFailed, op)
				return op, err
			}
			p.notify(StateDone, op)
			return op, nil
		}

		select {
		case <-ctx.Done():
			p.notify(StateCancelled, op)
			return op, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-ticker.C:
		}

		p.notify(StatePolling, op)
		next, err := p.Ops.GetOperation(ctx, op.Name)
		if err == nil && next == nil {
			err = errors.New("empty operation")
		}
		if err != nil {
			if ctx.Err() != nil {
				p.notify(StateCancelled, op)
				return op, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			p.notify(StateFailed, op)
			return op, fmt.Errorf("poll %s: %w", op.Name, err)
		}
		op = next
	}
}

func (p *Poller) notify(s State, op *gemini.Operation) {
	if p.OnState != nil {
		p.OnState(s, op)
	}
}
