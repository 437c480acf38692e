package mission

import "hash/fnv"

// RationaleTracker detects missions stuck on ambiguous requirements by
// comparing reviewer rationales across consecutive rounds. Two identical
// rationales in a row mean another retry will not make progress, so the
// engine escalates instead of burning the remaining round budget.
type RationaleTracker struct {
	lastHash uint64
	seen     bool
}

// Record registers a round's reviewer rationale and returns true when it
// is identical to the previous round's rationale.
func (t *RationaleTracker) Record(rationale string) bool {
	h := hashRationale(rationale)
	repeated := t.seen && h == t.lastHash
	t.lastHash = h
	t.seen = true
	return repeated
}

// Reset clears the tracker, used when a round makes clear progress.
func (t *RationaleTracker) Reset() {
	t.lastHash = 0
	t.seen = false
}

func hashRationale(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
