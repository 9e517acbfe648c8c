package model

type ProposalState string

const (
	ProposalCreated ProposalState = "created"
	ProposalOpen    ProposalState = "open"
	ProposalClosed  ProposalState = "closed"
)

type Proposal struct {
	ID             uint          `gorm:"primaryKey"`
	Name           string        `gorm:"not null;size:255"`
	DescriptionRef string        `gorm:"not null;default:'';size:1024"`
	VoterFTReward  int64         `gorm:"not null;default:0"`
	CreatedAt      int64         `gorm:"not null;autoCreateTime:false"`
	StartBlock     int64         `gorm:"not null"`
	EndBlock       int64         `gorm:"not null"`
	Creator        string        `gorm:"size:255"`
	Options        []*VoteOption `gorm:"foreignKey:ProposalID"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// State is derived from the block height, nothing is stored.
func (p *Proposal) State(height int64) ProposalState {
	switch {
	case height < p.StartBlock:
		return ProposalCreated
	case height < p.EndBlock:
		return ProposalOpen
	default:
		return ProposalClosed
	}
}

func (p *Proposal) IsOpen(height int64) bool {
	return p.State(height) == ProposalOpen
}

func (p *Proposal) Option(id uint) *VoteOption {
	for _, o := range p.Options {
		if o.ID == id {
			return o
		}
	}

	return nil
}

type VoteOption struct {
	ID          uint   `gorm:"primaryKey"`
	ProposalID  uint   `gorm:"not null;index"`
	Description string `gorm:"not null;size:1024"`
}

func (VoteOption) TableName() string {
	return "vote_options"
}

// FTSnapshot freezes an identity's flight time at proposal creation.
type FTSnapshot struct {
	ID         uint   `gorm:"primaryKey"`
	ProposalID uint   `gorm:"not null;uniqueIndex:idx_snapshot,priority:1"`
	Identity   string `gorm:"not null;size:255;uniqueIndex:idx_snapshot,priority:2"`
	FTAmount   int64  `gorm:"not null"`
}

func (FTSnapshot) TableName() string {
	return "ft_snapshots"
}

type Vote struct {
	ID         uint   `gorm:"primaryKey"`
	Identity   string `gorm:"not null;size:255;uniqueIndex:idx_vote_unique,priority:1;index:idx_vote_voter,priority:1"`
	ProposalID uint   `gorm:"not null;uniqueIndex:idx_vote_unique,priority:2;index:idx_vote_voter,priority:2"`
	OptionID   uint   `gorm:"not null;uniqueIndex:idx_vote_unique,priority:3"`
	Weight     int64  `gorm:"not null"`
	Comment    string `gorm:"not null;default:'';size:1024"`
	CastAt     int64  `gorm:"not null"`
}

func (Vote) TableName() string {
	return "votes"
}

type OptionTally struct {
	OptionID    uint   `json:"option_id"`
	Description string `json:"description"`
	Weight      int64  `json:"weight"`
	Voters      int64  `json:"voters"`
}

type TallyDTO struct {
	ProposalID uint           `json:"proposal_id"`
	State      ProposalState  `json:"state"`
	Options    []*OptionTally `json:"options"`
	Total      int64          `json:"total"`
}

type VoteOptionDTO struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
}

type ProposalDTO struct {
	ID             uint             `json:"id"`
	Name           string           `json:"name"`
	DescriptionRef string           `json:"description_ref,omitempty"`
	VoterFTReward  int64            `json:"voter_ft_reward"`
	CreatedAt      int64            `json:"created_at"`
	StartBlock     int64            `json:"start_block"`
	EndBlock       int64            `json:"end_block"`
	Creator        string           `json:"creator,omitempty"`
	State          ProposalState    `json:"state"`
	Options        []*VoteOptionDTO `json:"options"`
}

func (p *Proposal) DTO(height int64) *ProposalDTO {
	if p == nil {
		return nil
	}

	opts := make([]*VoteOptionDTO, len(p.Options))
	for i, o := range p.Options {
		opts[i] = &VoteOptionDTO{ID: o.ID, Description: o.Description}
	}

	return &ProposalDTO{
		ID:             p.ID,
		Name:           p.Name,
		DescriptionRef: p.DescriptionRef,
		VoterFTReward:  p.VoterFTReward,
		CreatedAt:      p.CreatedAt,
		StartBlock:     p.StartBlock,
		EndBlock:       p.EndBlock,
		Creator:        p.Creator,
		State:          p.State(height),
		Options:        opts,
	}
}

type VoteDTO struct {
	ID         uint   `json:"id"`
	Identity   string `json:"identity"`
	ProposalID uint   `json:"proposal_id"`
	OptionID   uint   `json:"option_id"`
	Weight     int64  `json:"weight"`
	Comment    string `json:"comment,omitempty"`
	CastAt     int64  `json:"cast_at"`
}

func (v *Vote) DTO() *VoteDTO {
	if v == nil {
		return nil
	}

	return &VoteDTO{
		ID:         v.ID,
		Identity:   v.Identity,
		ProposalID: v.ProposalID,
		OptionID:   v.OptionID,
		Weight:     v.Weight,
		Comment:    v.Comment,
		CastAt:     v.CastAt,
	}
}
