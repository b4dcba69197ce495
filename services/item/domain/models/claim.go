package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the admin decision state of a claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// Decision is the admin verdict applied to a claim.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// Claim is a claimant's ownership assertion, embedded in an Item. Answers are
// positional, one per verification question, and never change after
// submission.
type Claim struct {
	ID         uuid.UUID
	ClaimantID uuid.UUID
	Answers    []string
	Confidence int
	Status     ClaimStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ClampConfidence bounds a raw score to [0,100].
func ClampConfidence(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
