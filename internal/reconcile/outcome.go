// Package reconcile decides what the user is finally shown, given the local
// ranking, the oracle's verdict and what is still present on the live page.
package reconcile

import "fmt"

// Outcome is the terminal state of one reconciliation.
type Outcome int

const (
	// NoMatch: no oracle verdict and nothing usable locally.
	NoMatch Outcome = iota
	// Accepted: the oracle target is known, confident and live.
	Accepted
	// UsedAlternate: a locally ranked, live-confirmed candidate replaced the oracle pick.
	UsedAlternate
	// DegradedOriginal: the oracle target stands, with capped confidence.
	DegradedOriginal
	// UnavailableOriginal: the oracle target is unknown or gone and nothing replaces it.
	UnavailableOriginal
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case UsedAlternate:
		return "used_alternate"
	case DegradedOriginal:
		return "degraded_original"
	case UnavailableOriginal:
		return "unavailable_original"
	default:
		return "no_match"
	}
}

// MarshalText renders the outcome as its snake_case name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses a snake_case outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for _, v := range []Outcome{NoMatch, Accepted, UsedAlternate, DegradedOriginal, UnavailableOriginal} {
		if v.String() == string(b) {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Status is the user-facing summary of a reconciliation.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusAlternate   Status = "alternate"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
	StatusNoMatch     Status = "no_match"
)
