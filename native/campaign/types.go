package campaign

import (
	"fmt"
	"math/big"
)

// Status is a campaign lifecycle state.
type Status uint8

const (
	StatusDraft Status = iota
	StatusActive
	StatusPaused
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Campaign tracks one relief campaign's metadata, lifecycle status, and fund
// bookkeeping. RaisedAmount and DistributedAmount are bookkeeping counters;
// the token balances themselves live in the ledger.
type Campaign struct {
	ID                uint64
	Name              string
	Description       string
	Region            string
	DisasterType      string
	Status            uint8
	TargetAmount      *big.Int
	RaisedAmount      *big.Int
	DistributedAmount *big.Int
	BeneficiaryCount  uint64
	CreatedAt         uint64
	StartDate         uint64
	EndDate           uint64
	MetadataRef       string
}

// Stats is the aggregate view served to dashboards.
type Stats struct {
	TargetAmount      *big.Int
	RaisedAmount      *big.Int
	DistributedAmount *big.Int
	BeneficiaryCount  uint64
	Remaining         *big.Int
}

// CreateParams carries the caller-supplied fields of a new campaign.
type CreateParams struct {
	Name         string
	Description  string
	Region       string
	DisasterType string
	TargetAmount *big.Int
	StartDate    uint64
	EndDate      uint64
	MetadataRef  string
}
