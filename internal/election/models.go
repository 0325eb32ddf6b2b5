// Package election owns election metadata and the lifecycle state machine
// that gates casting and tallying.
package election

import "time"

// Type classifies an election. Only confidence elections are multi-select.
type Type string

const (
	TypeOfficer    Type = "officer"
	TypeStrike     Type = "strike"
	TypeAgenda     Type = "agenda"
	TypeConfidence Type = "confidence"
)

// Valid reports whether t is one of the known election types.
func (t Type) Valid() bool {
	switch t {
	case TypeOfficer, TypeStrike, TypeAgenda, TypeConfidence:
		return true
	}
	return false
}

// MultiSelect reports whether ballots for this type may name several options.
func (t Type) MultiSelect() bool {
	return t == TypeConfidence
}

// Status is the stored lifecycle state. closed is never stored; it is the
// implicit condition now > EndAt, resolved at read time by EffectiveStatus.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusCounted  Status = "counted"
)

// AbstainOption is the synthetic option appended to every election at
// creation. In multi-select elections its selection excludes all others.
const AbstainOption = "Abstain"

// Election is one election's metadata. EndAt may only ever increase; every
// other field is immutable after creation.
type Election struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"type"`
	StartAt     time.Time `json:"start_datetime"`
	EndAt       time.Time `json:"end_datetime"`
	Status      Status    `json:"status"`
	DetailURL   string    `json:"detail_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsClosed reports whether the voting window has ended.
func (e *Election) IsClosed(now time.Time) bool {
	return now.After(e.EndAt)
}

// WindowOpen reports whether now falls inside [StartAt, EndAt].
func (e *Election) WindowOpen(now time.Time) bool {
	return !now.Before(e.StartAt) && !now.After(e.EndAt)
}

// EffectiveStatus resolves the implicit closed state: counted wins, then the
// time window, then the stored status.
func (e *Election) EffectiveStatus(now time.Time) Status {
	if e.Status == StatusCounted {
		return StatusCounted
	}
	if e.IsClosed(now) {
		return StatusClosed
	}
	return e.Status
}

// Option is one selectable entry on a ballot, scoped to a single election.
type Option struct {
	ElectionID   string `json:"-"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// Result is one persisted per-option count.
type Result struct {
	Option string `json:"selected_option"`
	Count  int    `json:"vote_count"`
}

// Figures is the complete outcome of one count, persisted at count time and
// replayed verbatim on every later read.
type Figures struct {
	Results     []Result  `json:"results"`
	Turnout     string    `json:"turnout"`
	TotalVoters int       `json:"total_voters"`
	VotedCount  int       `json:"voted_count"`
	CountedAt   time.Time `json:"counted_at"`
}

// CreateInput carries an admin's election creation request.
type CreateInput struct {
	Title       string
	Description string
	Type        Type
	StartAt     time.Time
	EndAt       time.Time
	DetailURL   string
	Options     []OptionInput
}

// OptionInput is one caller-supplied option.
type OptionInput struct {
	Name        string
	Description string
}
