package model

type Mission struct {
	ID                       uint     `gorm:"primaryKey"`
	Name                     string   `gorm:"not null;size:255;uniqueIndex"`
	Description              string   `gorm:"not null;default:''"`
	Tags                     []string `gorm:"serializer:json"`
	Requirements             string   `gorm:"not null;default:''"`
	Rewards                  string   `gorm:"not null;default:''"`
	Deliverables             string   `gorm:"not null;default:''"`
	RewardFT                 int64    `gorm:"not null;default:0"`
	ContributionsStartBlock  int64    `gorm:"not null;default:0"`
	ContributionsEndBlock    int64    `gorm:"not null;default:0"`
	MaxNumberOfContributions int64    `gorm:"not null;default:0"`
	ContributionsDisabled    bool     `gorm:"not null;default:false"`
}

func (Mission) TableName() string {
	return "missions"
}

// AcceptsAt reports whether height is inside the contribution window.
// Zero bounds are open.
func (m *Mission) AcceptsAt(height int64) bool {
	if m.ContributionsStartBlock > 0 && height < m.ContributionsStartBlock {
		return false
	}

	if m.ContributionsEndBlock > 0 && height >= m.ContributionsEndBlock {
		return false
	}

	return true
}

type MissionDTO struct {
	ID                       uint     `json:"id"`
	Name                     string   `json:"name"`
	Description              string   `json:"description,omitempty"`
	Tags                     []string `json:"tags,omitempty"`
	Requirements             string   `json:"requirements,omitempty"`
	Rewards                  string   `json:"rewards,omitempty"`
	Deliverables             string   `json:"deliverables,omitempty"`
	RewardFT                 int64    `json:"reward_ft"`
	ContributionsStartBlock  int64    `json:"contributions_start_block"`
	ContributionsEndBlock    int64    `json:"contributions_end_block"`
	MaxNumberOfContributions int64    `json:"max_number_of_contributions"`
	ContributionsDisabled    bool     `json:"contributions_disabled"`
}

func (m *Mission) DTO() *MissionDTO {
	if m == nil {
		return nil
	}

	return &MissionDTO{
		ID:                       m.ID,
		Name:                     m.Name,
		Description:              m.Description,
		Tags:                     m.Tags,
		Requirements:             m.Requirements,
		Rewards:                  m.Rewards,
		Deliverables:             m.Deliverables,
		RewardFT:                 m.RewardFT,
		ContributionsStartBlock:  m.ContributionsStartBlock,
		ContributionsEndBlock:    m.ContributionsEndBlock,
		MaxNumberOfContributions: m.MaxNumberOfContributions,
		ContributionsDisabled:    m.ContributionsDisabled,
	}
}

type ContributionStatus string

const (
	ContributionPending  ContributionStatus = "pending"
	ContributionAccepted ContributionStatus = "accepted"
	ContributionRejected ContributionStatus = "rejected"
)

type MissionContribution struct {
	ID                   uint   `gorm:"primaryKey"`
	UID                  string `gorm:"not null;size:64;uniqueIndex"`
	Contributor          string `gorm:"not null;size:255;index"`
	MissionID            uint   `gorm:"not null;index"`
	CreatedAt            int64  `gorm:"not null;autoCreateTime:false"`
	Data                 string `gorm:"not null;default:''"`
	Accepted             *bool
	AcceptanceMotivation string `gorm:"not null;default:''"`
	Reviewer             string `gorm:"size:255"`
	ReviewedAt           *int64
}

func (MissionContribution) TableName() string {
	return "mission_contributions"
}

func (c *MissionContribution) Status() ContributionStatus {
	switch {
	case c.Accepted == nil:
		return ContributionPending
	case *c.Accepted:
		return ContributionAccepted
	default:
		return ContributionRejected
	}
}

type ContributionDTO struct {
	ID                   uint               `json:"id"`
	UID                  string             `json:"uid"`
	Contributor          string             `json:"contributor"`
	MissionID            uint               `json:"mission_id"`
	CreatedAt            int64              `json:"created_at"`
	Data                 string             `json:"data"`
	Status               ContributionStatus `json:"status"`
	Accepted             *bool              `json:"accepted"`
	AcceptanceMotivation string             `json:"acceptance_motivation,omitempty"`
	Reviewer             string             `json:"reviewer,omitempty"`
	ReviewedAt           *int64             `json:"reviewed_at,omitempty"`
}

func (c *MissionContribution) DTO() *ContributionDTO {
	if c == nil {
		return nil
	}

	return &ContributionDTO{
		ID:                   c.ID,
		UID:                  c.UID,
		Contributor:          c.Contributor,
		MissionID:            c.MissionID,
		CreatedAt:            c.CreatedAt,
		Data:                 c.Data,
		Status:               c.Status(),
		Accepted:             c.Accepted,
		AcceptanceMotivation: c.AcceptanceMotivation,
		Reviewer:             c.Reviewer,
		ReviewedAt:           c.ReviewedAt,
	}
}
