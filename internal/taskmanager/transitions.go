package taskmanager

import "github.com/agent-protocol/a2a-server/pkg/a2a"

// legalTransitions is the state-machine table from spec §4.5. A state
// absent from this map (any terminal state) has no outgoing transitions.
var legalTransitions = map[a2a.TaskState]map[a2a.TaskState]bool{
	a2a.TaskStateSubmitted: set(
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
		a2a.TaskStateRejected,
		a2a.TaskStateAuthRequired,
		a2a.TaskStateInputRequired,
	),
	a2a.TaskStateWorking: set(
		a2a.TaskStateWorking, // repeated progress updates
		a2a.TaskStateInputRequired,
		a2a.TaskStateCompleted,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
		a2a.TaskStateAuthRequired,
	),
	a2a.TaskStateInputRequired: set(
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
	),
	a2a.TaskStateAuthRequired: set(
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
	),
}

func set(states ...a2a.TaskState) map[a2a.TaskState]bool {
	m := make(map[a2a.TaskState]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return m
}

// legalTransition reports whether moving from -> to is permitted.
// Idempotent reassertion of the same terminal state is handled
// separately by the store (spec §8); this function only governs the
// transition graph itself.
func legalTransition(from, to a2a.TaskState) bool {
	if from.Terminal() {
		return from == to // idempotent reassertion only
	}
	allowed, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}
