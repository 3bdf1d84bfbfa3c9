// internal/model/status.go
package model

// Status is the post lifecycle state stored in the status column.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPosted    Status = "posted"
	StatusFailed    Status = "failed"
)

// transitions is the legal-transition table. posted is terminal; failed only
// re-enters draft through manual reprocessing.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusScheduled, StatusFailed},
	StatusScheduled: {StatusPosted, StatusFailed, StatusDraft},
	StatusPosted:    {},
	StatusFailed:    {StatusDraft},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
