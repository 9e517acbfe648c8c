package model

import (
	"fmt"
)

type PilotKind string

const (
	PilotInternal PilotKind = "internal"
	PilotExternal PilotKind = "external"
)

// PilotRef names the operator of a rig: the rig's own default pilot or a
// pilot living in an external contract.
type PilotRef struct {
	Kind     PilotKind `json:"kind"`
	Contract string    `json:"contract,omitempty"`
	ID       int64     `json:"id,omitempty"`
}

func InternalPilot() PilotRef {
	return PilotRef{Kind: PilotInternal}
}

func ExternalPilot(contract string, id int64) PilotRef {
	return PilotRef{Kind: PilotExternal, Contract: contract, ID: id}
}

func (p PilotRef) Validate() error {
	switch p.Kind {
	case PilotInternal:
		if p.Contract != "" || p.ID != 0 {
			return fmt.Errorf("internal pilot can't have contract reference")
		}
	case PilotExternal:
		if p.Contract == "" {
			return fmt.Errorf("external pilot needs contract")
		}
	default:
		return fmt.Errorf("unknown pilot kind %q", p.Kind)
	}

	return nil
}

func (p PilotRef) String() string {
	if p.Kind == PilotExternal {
		return fmt.Sprintf("%s#%d", p.Contract, p.ID)
	}

	return string(PilotInternal)
}

type PilotSession struct {
	ID            uint      `gorm:"primaryKey"`
	AssetID       int64     `gorm:"not null;index;uniqueIndex:idx_session_open,where:end_time IS NULL"`
	Owner         string    `gorm:"not null;index;size:255"`
	PilotKind     PilotKind `gorm:"not null;size:16"`
	PilotContract string    `gorm:"not null;default:'';size:255"`
	PilotID       int64     `gorm:"not null;default:0"`
	StartTime     int64     `gorm:"not null"`
	EndTime       *int64    `gorm:"index"`
}

func (PilotSession) TableName() string {
	return "pilot_sessions"
}

func (s *PilotSession) IsOpen() bool {
	return s != nil && s.EndTime == nil
}

func (s *PilotSession) Pilot() PilotRef {
	return PilotRef{Kind: s.PilotKind, Contract: s.PilotContract, ID: s.PilotID}
}

// Duration is the session length up to now, or up to its end if closed.
func (s *PilotSession) Duration(now int64) int64 {
	if s == nil {
		return 0
	}

	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}

	if end < s.StartTime {
		return 0
	}

	return end - s.StartTime
}

type SessionDTO struct {
	ID        uint     `json:"id"`
	AssetID   int64    `json:"asset_id"`
	Owner     string   `json:"owner"`
	Pilot     PilotRef `json:"pilot"`
	StartTime int64    `json:"start_time"`
	EndTime   *int64   `json:"end_time,omitempty"`
	Open      bool     `json:"open"`
	Duration  int64    `json:"duration"`
}

func (s *PilotSession) DTO(now int64) *SessionDTO {
	if s == nil {
		return nil
	}

	return &SessionDTO{
		ID:        s.ID,
		AssetID:   s.AssetID,
		Owner:     s.Owner,
		Pilot:     s.Pilot(),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Open:      s.IsOpen(),
		Duration:  s.Duration(now),
	}
}

type RigTraining struct {
	ID            uint      `gorm:"primaryKey"`
	AssetID       int64     `gorm:"not null;uniqueIndex:idx_training,priority:1"`
	PilotKind     PilotKind `gorm:"not null;size:16;uniqueIndex:idx_training,priority:2"`
	PilotContract string    `gorm:"not null;default:'';size:255;uniqueIndex:idx_training,priority:3"`
	PilotID       int64     `gorm:"not null;default:0;uniqueIndex:idx_training,priority:4"`
	TrainedAt     int64     `gorm:"not null"`
	TrainedBy     string    `gorm:"size:255"`
}

func (RigTraining) TableName() string {
	return "rig_trainings"
}
