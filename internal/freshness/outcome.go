package freshness

// Outcome classifies what a Sync call did
type Outcome int

const (
	// OutcomeDisabled means no status source is configured
	OutcomeDisabled Outcome = iota
	// OutcomeNotSynchronizable means the record has no external reference
	OutcomeNotSynchronizable
	// OutcomeFresh means the last check is younger than the TTL
	OutcomeFresh
	// OutcomeRefreshed means a new status was fetched and persisted
	OutcomeRefreshed
	// OutcomePersistFailed means a new status was fetched but could not be saved
	OutcomePersistFailed
	// OutcomeIndeterminate means the source answered without an open/closed status
	OutcomeIndeterminate
	// OutcomeFailed means the fetch errored or timed out
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeDisabled:          "disabled",
	OutcomeNotSynchronizable: "not_synchronizable",
	OutcomeFresh:             "fresh",
	OutcomeRefreshed:         "refreshed",
	OutcomePersistFailed:     "persist_failed",
	OutcomeIndeterminate:     "indeterminate",
	OutcomeFailed:            "failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Fetched reports whether the outcome involved a call to the status source
func (o Outcome) Fetched() bool {
	switch o {
	case OutcomeRefreshed, OutcomePersistFailed, OutcomeIndeterminate, OutcomeFailed:
		return true
	default:
		return false
	}
}
