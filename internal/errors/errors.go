package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrPostNotFound is a sentinel error
type ErrPostNotFound struct {
	PostID int
}

func (e *ErrPostNotFound) Error() string {
	return fmt.Sprintf("post with ID %d not found", e.PostID)
}

func NewPostNotFound(id int) error {
	return &ErrPostNotFound{PostID: id}
}

// ErrIllegalTransition reports a post status move the lifecycle does not allow.
type ErrIllegalTransition struct {
	From, To string
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal post transition %s -> %s", e.From, e.To)
}

func NewIllegalTransition(from, to string) error {
	return &ErrIllegalTransition{From: from, To: to}
}
