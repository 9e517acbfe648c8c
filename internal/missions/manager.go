// Package missions keeps missions and the contributions users submit to them.
package missions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/pkg/model"
)

type Manager struct {
	dbm    *database.DatabaseManager
	clock  clock.Source
	auth   auth.Authorizer
	logger *slog.Logger
}

type MissionInput struct {
	Name                     string   `json:"name"`
	Description              string   `json:"description"`
	Tags                     []string `json:"tags"`
	Requirements             string   `json:"requirements"`
	Rewards                  string   `json:"rewards"`
	Deliverables             string   `json:"deliverables"`
	RewardFT                 int64    `json:"reward_ft"`
	ContributionsStartBlock  int64    `json:"contributions_start_block"`
	ContributionsEndBlock    int64    `json:"contributions_end_block"`
	MaxNumberOfContributions int64    `json:"max_number_of_contributions"`
	ContributionsDisabled    bool     `json:"contributions_disabled"`
}

func (in *MissionInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: empty mission name", apperr.ErrInvalid)
	}

	if in.RewardFT < 0 || in.MaxNumberOfContributions < 0 {
		return fmt.Errorf("%w: negative reward or limit", apperr.ErrInvalid)
	}

	if in.ContributionsEndBlock > 0 && in.ContributionsEndBlock <= in.ContributionsStartBlock {
		return fmt.Errorf("%w: contributions window ends before it starts", apperr.ErrInvalid)
	}

	return nil
}

func (in *MissionInput) apply(m *model.Mission) {
	m.Name = strings.TrimSpace(in.Name)
	m.Description = in.Description
	m.Tags = in.Tags
	m.Requirements = in.Requirements
	m.Rewards = in.Rewards
	m.Deliverables = in.Deliverables
	m.RewardFT = in.RewardFT
	m.ContributionsStartBlock = in.ContributionsStartBlock
	m.ContributionsEndBlock = in.ContributionsEndBlock
	m.MaxNumberOfContributions = in.MaxNumberOfContributions
	m.ContributionsDisabled = in.ContributionsDisabled
}

type Filter struct {
	MissionID   uint
	Contributor string
	Status      model.ContributionStatus
	Limit       int
	Offset      int
}

func New(dbm *database.DatabaseManager, clk clock.Source, az auth.Authorizer) *Manager {
	return &Manager{
		dbm:    dbm,
		clock:  clk,
		auth:   az,
		logger: slog.Default().With("logger", "missions"),
	}
}

func (m *Manager) checkAdmin(caller *auth.Caller) error {
	if !auth.AnyOf(m.auth, caller, auth.RoleMissionsAdmin) {
		return fmt.Errorf("%s can't manage missions: %w", caller.GetLogin(), apperr.ErrUnauthorized)
	}

	return nil
}

func (m *Manager) CreateMission(ctx context.Context, caller *auth.Caller, in MissionInput) (*model.Mission, error) {
	if err := m.checkAdmin(caller); err != nil {
		return nil, err
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	ms := new(model.Mission)
	in.apply(ms)

	if err := m.dbm.WithContext(ctx).Create(ms); err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("mission %q: %w", ms.Name, apperr.ErrDuplicate)
		}

		return nil, err
	}

	m.logger.Info("mission created", slog.Uint64("id", uint64(ms.ID)), slog.String("name", ms.Name),
		slog.String("by", caller.GetLogin()))

	return ms, nil
}

// EditMission replaces every editable field of the mission.
func (m *Manager) EditMission(ctx context.Context, caller *auth.Caller, id uint, in MissionInput) (*model.Mission, error) {
	if err := m.checkAdmin(caller); err != nil {
		return nil, err
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	var ms *model.Mission

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if ms = tx.MissionQuery().Id(id).One(); ms == nil {
			return fmt.Errorf("mission %d: %w", id, apperr.ErrNotFound)
		}

		in.apply(ms)

		if err := tx.Save(ms); err != nil {
			if database.IsDuplicate(err) {
				return fmt.Errorf("mission %q: %w", ms.Name, apperr.ErrDuplicate)
			}

			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("mission updated", slog.Uint64("id", uint64(id)), slog.String("by", caller.GetLogin()))

	return ms, nil
}

func (m *Manager) SetContributionsDisabled(ctx context.Context, caller *auth.Caller, id uint, disabled bool) (*model.Mission, error) {
	if err := m.checkAdmin(caller); err != nil {
		return nil, err
	}

	var ms *model.Mission

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if ms = tx.MissionQuery().Id(id).One(); ms == nil {
			return fmt.Errorf("mission %d: %w", id, apperr.ErrNotFound)
		}

		if ms.ContributionsDisabled == disabled {
			return nil
		}

		ms.ContributionsDisabled = disabled

		return tx.MissionQuery().Id(id).Update(map[string]any{"contributions_disabled": disabled})
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("mission gate changed", slog.Uint64("id", uint64(id)), slog.Bool("disabled", disabled))

	return ms, nil
}

// SubmitMissionContribution stores a pending contribution of the caller.
func (m *Manager) SubmitMissionContribution(ctx context.Context, caller *auth.Caller, missionID uint, data string) (*model.MissionContribution, error) {
	contributor := caller.GetLogin()
	if contributor == "" {
		return nil, fmt.Errorf("anonymous contribution: %w", apperr.ErrUnauthorized)
	}

	c := &model.MissionContribution{
		UID:         uuid.NewString(),
		Contributor: contributor,
		MissionID:   missionID,
		Data:        data,
	}

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		// locked so concurrent submits see each other's rows in the limit count
		ms := tx.MissionQuery().Id(missionID).ForUpdate().One()
		if ms == nil {
			return fmt.Errorf("mission %d: %w", missionID, apperr.ErrNotFound)
		}

		if ms.ContributionsDisabled {
			return fmt.Errorf("mission %d: %w", missionID, apperr.ErrContributionsDisabled)
		}

		h := m.clock.Height()

		if !ms.AcceptsAt(h) {
			return fmt.Errorf("mission %d contributions closed at %d: %w", missionID, h, apperr.ErrNotOpen)
		}

		if ms.MaxNumberOfContributions > 0 &&
			tx.ContributionQuery().Mission(missionID).Count() >= ms.MaxNumberOfContributions {
			return fmt.Errorf("mission %d: %w", missionID, apperr.ErrContributionLimit)
		}

		c.CreatedAt = h

		return tx.Create(c)
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("contribution submitted", slog.Uint64("mission", uint64(missionID)),
		slog.String("contributor", contributor), slog.String("uid", c.UID))

	return c, nil
}

// ReviewContribution accepts or rejects a pending contribution. A contribution
// is reviewed once; later calls fail with ErrAlreadyReviewed and change nothing.
func (m *Manager) ReviewContribution(ctx context.Context, caller *auth.Caller, id uint, accepted bool, motivation string) (*model.MissionContribution, error) {
	if !auth.AnyOf(m.auth, caller, auth.RoleMissionsAdmin, auth.RoleReviewer) {
		return nil, fmt.Errorf("%s can't review: %w", caller.GetLogin(), apperr.ErrUnauthorized)
	}

	var (
		c      *model.MissionContribution
		reward int64
	)

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if c = tx.ContributionQuery().Id(id).One(); c == nil {
			return fmt.Errorf("contribution %d: %w", id, apperr.ErrNotFound)
		}

		h := m.clock.Height()

		err := tx.ContributionQuery().Id(id).Status(model.ContributionPending).Update(map[string]any{
			"accepted":              accepted,
			"acceptance_motivation": motivation,
			"reviewer":              caller.GetLogin(),
			"reviewed_at":           h,
		})

		if err != nil {
			if database.IsNoRecord(err) {
				return fmt.Errorf("contribution %d is %s: %w", id, c.Status(), apperr.ErrAlreadyReviewed)
			}

			return err
		}

		c.Accepted = &accepted
		c.AcceptanceMotivation = motivation
		c.Reviewer = caller.GetLogin()
		c.ReviewedAt = &h

		if !accepted {
			return nil
		}

		ms := tx.MissionQuery().Id(c.MissionID).One()
		if ms == nil || ms.RewardFT <= 0 {
			return nil
		}

		cid := c.ID
		reward = ms.RewardFT

		err = tx.Create(&model.RewardGrant{
			Block:          h,
			Recipient:      c.Contributor,
			Reason:         model.RewardMission,
			Amount:         ms.RewardFT,
			ContributionID: &cid,
			GrantedBy:      caller.GetLogin(),
		})

		if database.IsDuplicate(err) {
			return fmt.Errorf("contribution %d: %w", id, apperr.ErrAlreadyReviewed)
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("contribution reviewed", slog.Uint64("id", uint64(id)), slog.Bool("accepted", accepted),
		slog.String("reviewer", caller.GetLogin()), slog.Int64("reward", reward))

	return c, nil
}

func (m *Manager) Mission(ctx context.Context, id uint) (*model.Mission, error) {
	ms := m.dbm.WithContext(ctx).MissionQuery().Id(id).One()
	if ms == nil {
		return nil, fmt.Errorf("mission %d: %w", id, apperr.ErrNotFound)
	}

	return ms, nil
}

func (m *Manager) Missions(ctx context.Context) []*model.Mission {
	return m.dbm.WithContext(ctx).MissionQuery().Limit(0).Get()
}

func (m *Manager) Contribution(ctx context.Context, id uint) (*model.MissionContribution, error) {
	c := m.dbm.WithContext(ctx).ContributionQuery().Id(id).One()
	if c == nil {
		return nil, fmt.Errorf("contribution %d: %w", id, apperr.ErrNotFound)
	}

	return c, nil
}

func (m *Manager) Contributions(ctx context.Context, f Filter) []*model.MissionContribution {
	q := m.dbm.WithContext(ctx).ContributionQuery().
		Mission(f.MissionID).
		Contributor(f.Contributor).
		Status(f.Status)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	return q.Offset(f.Offset).Get()
}

func (m *Manager) Now() int64 {
	return m.clock.Height()
}
