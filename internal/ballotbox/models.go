// Package ballotbox is the anonymous ballot store. It lives behind its own
// database handle and its schema must never grow a column capable of
// re-identifying a voter: no employee id, no correlation token, no client IP.
// That structural separation from the roll store is the system's entire
// secrecy mechanism.
package ballotbox

import (
	"time"

	"github.com/google/uuid"
)

// Source distinguishes how a ballot entered the box.
type Source string

const (
	SourceElectronic Source = "electronic"
	// SourcePaperAggregate marks rows entered from the manual paper count.
	// They are option-count expansions, not individual voters' ballots.
	SourcePaperAggregate Source = "paper-aggregate"
)

// Ballot is one cast selection. A multi-select casting event produces one
// Ballot per chosen option.
type Ballot struct {
	ID             uuid.UUID
	ElectionID     string
	SelectedOption string
	Source         Source
	CastAt         time.Time
}

// OptionCount is one aggregated tally row.
type OptionCount struct {
	Option string `json:"selected_option"`
	Count  int    `json:"vote_count"`
}
