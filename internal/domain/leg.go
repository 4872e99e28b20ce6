// Package domain defines the core business entities and types for the
// parlay betting engine: legs, tickets, lock positions, and the event set.
package domain

import (
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Side — the outcome a bettor chooses for a leg
// ──────────────────────────────────────────────────────────────────────────────

// Side represents the binary outcome a bettor backs on a single leg.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// IsValid returns true if the side is a recognised sentinel.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// ──────────────────────────────────────────────────────────────────────────────
// LegResult — what the oracle says about a leg
// ──────────────────────────────────────────────────────────────────────────────

// LegResult is the final (or pending) resolution of a leg's question.
type LegResult string

const (
	ResultUnresolved LegResult = "unresolved"
	ResultYes        LegResult = "yes"
	ResultNo         LegResult = "no"
	ResultVoid       LegResult = "void"
)

// IsValid returns true for a recognised result sentinel.
func (r LegResult) IsValid() bool {
	switch r {
	case ResultUnresolved, ResultYes, ResultNo, ResultVoid:
		return true
	}
	return false
}

// IsFinal returns true once a leg can never change again.
func (r LegResult) IsFinal() bool {
	return r == ResultYes || r == ResultNo || r == ResultVoid
}

// Won returns true when the result matches the chosen side.
func (r LegResult) Won(chosen Side) bool {
	return (r == ResultYes && chosen == SideYes) || (r == ResultNo && chosen == SideNo)
}

// ──────────────────────────────────────────────────────────────────────────────
// LegOutcome — a leg's result viewed through a ticket's chosen side
// ──────────────────────────────────────────────────────────────────────────────

// LegOutcome is the per-ticket view of a leg: the leg's final result compared
// against the side the bettor chose.
type LegOutcome string

const (
	OutcomeUnresolved LegOutcome = "unresolved"
	OutcomeWon        LegOutcome = "won"
	OutcomeLost       LegOutcome = "lost"
	OutcomeVoided     LegOutcome = "voided"
)

// OutcomeFor derives the ticket-side outcome from a leg result and the side
// the bettor chose.
func OutcomeFor(result LegResult, chosen Side) LegOutcome {
	switch {
	case result == ResultVoid:
		return OutcomeVoided
	case !result.IsFinal():
		return OutcomeUnresolved
	case result.Won(chosen):
		return OutcomeWon
	default:
		return OutcomeLost
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Leg
// ──────────────────────────────────────────────────────────────────────────────

// Leg is a single binary event that parlays can include.  Legs are created by
// the operator, mutated only to deactivate, and never destroyed.
type Leg struct {
	ID                  uint64    `json:"id"`
	Question            string    `json:"question"`
	SourceRef           string    `json:"source_ref"`
	CutoffTime          time.Time `json:"cutoff_time"`
	EarliestResolveTime time.Time `json:"earliest_resolve_time"`
	ProbabilityPPM      int64     `json:"probability_ppm"` // in [1, PPM−1]
	OracleRef           string    `json:"oracle_ref"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
}

// AcceptsBets returns true while the leg may be included in a new ticket.
func (l *Leg) AcceptsBets(now time.Time) bool {
	return l.Active && now.Before(l.CutoffTime)
}

// LegMeta carries the operator-supplied fields for creating a leg.
type LegMeta struct {
	Question            string    `json:"question"`
	SourceRef           string    `json:"source_ref"`
	CutoffTime          time.Time `json:"cutoff_time"`
	EarliestResolveTime time.Time `json:"earliest_resolve_time"`
	ProbabilityPPM      int64     `json:"probability_ppm"`
	OracleRef           string    `json:"oracle_ref"`
}
