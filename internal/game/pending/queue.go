// Package pending holds attacks whose effect on the rotation counter can only be judged
// once their damage would have landed.
package pending

import (
	"github.com/cory-johannsen/stylewatch/internal/game/memory"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

// Entry is one attack awaiting confirmation.
type Entry struct {
	Attacker string
	Style    rotation.Style
	Target   string
	// Deadline is the absolute tick at which the entry is judged.
	Deadline int
}

// Reason explains a resolution.
type Reason string

const (
	ReasonTargetGone Reason = "target-gone"
	ReasonNoDamage   Reason = "no-damage"
	ReasonBlocked    Reason = "blocked"
	ReasonDamaged    Reason = "damaged"
)

// Resolution is the judgement of one due entry.
type Resolution struct {
	Entry
	// Miss is true when the attack counts as a zero-damage hit and the counter must drop.
	Miss   bool
	Reason Reason
}

// Evidence looks up the damage a target received this tick.
type Evidence interface {
	Get(id string) (*memory.Defender, bool)
}

// Queue is a FIFO of pending entries. It is not safe for concurrent use.
type Queue struct {
	entries []Entry
}

// Push enqueues e.
func (q *Queue) Push(e Entry) {
	q.entries = append(q.entries, e)
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int { return len(q.entries) }

// Clear drops every entry.
func (q *Queue) Clear() { q.entries = nil }

// CancelAttacker drops every entry whose attacker is id and returns how many were dropped.
func (q *Queue) CancelAttacker(id string) int {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Attacker != id {
			kept = append(kept, e)
		}
	}
	n := len(q.entries) - len(kept)
	clear(q.entries[len(kept):])
	q.entries = kept
	return n
}

// Resolve removes every entry whose deadline is at or before tick and judges it against
// ev. A target that left memory, received nothing, or received a blocked hit is a miss.
//
// Postcondition: each returned entry has been removed; entries are returned in push order.
func (q *Queue) Resolve(tick int, ev Evidence) []Resolution {
	var out []Resolution
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Deadline > tick {
			kept = append(kept, e)
			continue
		}
		out = append(out, judge(e, ev))
	}
	clear(q.entries[len(kept):])
	q.entries = kept
	return out
}

func judge(e Entry, ev Evidence) Resolution {
	d, ok := ev.Get(e.Target)
	switch {
	case !ok:
		return Resolution{Entry: e, Miss: true, Reason: ReasonTargetGone}
	case !d.Damaged():
		// the target may have been out of memory while the projectile travelled
		return Resolution{Entry: e, Miss: true, Reason: ReasonNoDamage}
	case d.Blocked():
		return Resolution{Entry: e, Miss: true, Reason: ReasonBlocked}
	default:
		return Resolution{Entry: e, Reason: ReasonDamaged}
	}
}
