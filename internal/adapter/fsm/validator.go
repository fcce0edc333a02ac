package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/caimari/musedock/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// buildEvents converts a transitions table into looplab/fsm EventDesc
// format. It consolidates transitions with the same event+destination into
// a single EventDesc with multiple source states (e.g. EventDelete from
// "active" and "error" both go to "deleting").
func buildEvents(transitions []domain.Transition) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range transitions {
		k := key{event: t.Event, dst: t.Dst}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], t.Src)
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm. It
// creates a short-lived FSM instance per Apply call, initialized with the
// entity's current state. This is necessary because looplab/fsm is stateful
// (it tracks the current state internally).
type Validator struct {
	events []loopfsm.EventDesc
}

// New creates an FSM-backed validator for the given transitions table.
// Separate instances serve the tenant, order and transfer machines.
func New(transitions []domain.Transition) *Validator {
	return &Validator{events: buildEvents(transitions)}
}

// Apply checks if the given event is valid from the current status and
// returns the destination status. Returns a domain.TransitionError if the
// transition is not allowed.
func (v *Validator) Apply(ctx context.Context, current string, event domain.Event) (string, error) {
	machine := loopfsm.NewFSM(current, v.events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return machine.Current(), nil
}
