package model

type RewardReason string

const (
	RewardVote          RewardReason = "vote"
	RewardMission       RewardReason = "mission"
	RewardDiscretionary RewardReason = "grant"
)

func (r RewardReason) Valid() bool {
	switch r {
	case RewardVote, RewardMission, RewardDiscretionary:
		return true
	default:
		return false
	}
}

// RewardGrant is an append-only FT credit. A voter is rewarded once per
// proposal and a contribution once.
type RewardGrant struct {
	ID             uint         `gorm:"primaryKey"`
	Block          int64        `gorm:"not null;index"`
	Recipient      string       `gorm:"not null;index;size:255;uniqueIndex:idx_reward_vote,priority:1,where:reason = 'vote'"`
	Reason         RewardReason `gorm:"not null;size:16"`
	Amount         int64        `gorm:"not null"`
	ProposalID     *uint        `gorm:"index;uniqueIndex:idx_reward_vote,priority:2,where:reason = 'vote'"`
	ContributionID *uint        `gorm:"uniqueIndex"`
	GrantedBy      string       `gorm:"size:255"`
}

func (RewardGrant) TableName() string {
	return "reward_grants"
}

type RewardGrantDTO struct {
	ID             uint         `json:"id"`
	Block          int64        `json:"block"`
	Recipient      string       `json:"recipient"`
	Reason         RewardReason `json:"reason"`
	Amount         int64        `json:"amount"`
	ProposalID     *uint        `json:"proposal_id,omitempty"`
	ContributionID *uint        `json:"contribution_id,omitempty"`
}

func (g *RewardGrant) DTO() *RewardGrantDTO {
	if g == nil {
		return nil
	}

	return &RewardGrantDTO{
		ID:             g.ID,
		Block:          g.Block,
		Recipient:      g.Recipient,
		Reason:         g.Reason,
		Amount:         g.Amount,
		ProposalID:     g.ProposalID,
		ContributionID: g.ContributionID,
	}
}
