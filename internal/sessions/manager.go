// Package sessions keeps pilot sessions of rigs. A rig has at most one open
// session; only the parent identity may open, close or correct sessions.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

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

type Filter struct {
	Owners []string
	Asset  *int64
	Open   *bool
	Limit  int
	Offset int
}

func New(dbm *database.DatabaseManager, clk clock.Source, az auth.Authorizer) *Manager {
	return &Manager{
		dbm:    dbm,
		clock:  clk,
		auth:   az,
		logger: slog.Default().With("logger", "sessions"),
	}
}

func (m *Manager) checkParent(caller *auth.Caller) error {
	if !m.auth.IsParent(caller) {
		return fmt.Errorf("%s is not parent: %w", caller.GetLogin(), apperr.ErrUnauthorized)
	}

	return nil
}

// TrainRig marks pilot as trained for the rig. Repeated calls keep the first mark.
func (m *Manager) TrainRig(ctx context.Context, caller *auth.Caller, pilot model.PilotRef, assetID int64) (*model.RigTraining, error) {
	if err := m.checkParent(caller); err != nil {
		return nil, err
	}

	if err := pilot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}

	var res *model.RigTraining

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if t := tx.TrainingQuery().Asset(assetID).Pilot(pilot).One(); t != nil {
			res = t
			return nil
		}

		res = &model.RigTraining{
			AssetID:       assetID,
			PilotKind:     pilot.Kind,
			PilotContract: pilot.Contract,
			PilotID:       pilot.ID,
			TrainedAt:     m.clock.Height(),
			TrainedBy:     caller.GetLogin(),
		}

		return tx.Create(res)
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("rig trained", slog.Int64("asset", assetID), slog.String("pilot", pilot.String()))

	return res, nil
}

// PilotRig opens a session for the rig. It fails with ErrSessionConflict when
// the rig already has an open session.
func (m *Manager) PilotRig(ctx context.Context, caller *auth.Caller, owner string, assetID int64, pilot model.PilotRef) (*model.PilotSession, error) {
	if err := m.checkParent(caller); err != nil {
		return nil, err
	}

	if owner == "" {
		return nil, fmt.Errorf("%w: empty owner", apperr.ErrInvalid)
	}

	if err := pilot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}

	s := &model.PilotSession{
		AssetID:       assetID,
		Owner:         owner,
		PilotKind:     pilot.Kind,
		PilotContract: pilot.Contract,
		PilotID:       pilot.ID,
	}

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if open := tx.SessionQuery().Asset(assetID).Open(true).One(); open != nil {
			return fmt.Errorf("rig %d, session %d: %w", assetID, open.ID, apperr.ErrSessionConflict)
		}

		s.StartTime = m.clock.Height()

		if err := tx.Create(s); err != nil {
			if database.IsDuplicate(err) {
				return fmt.Errorf("rig %d: %w", assetID, apperr.ErrSessionConflict)
			}

			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("rig piloted", slog.Int64("asset", assetID), slog.String("owner", owner),
		slog.String("pilot", pilot.String()), slog.Uint64("session", uint64(s.ID)))

	return s, nil
}

// ParkRig closes the open session of the rig. Parking a rig without an open
// session does nothing and returns nil session.
func (m *Manager) ParkRig(ctx context.Context, caller *auth.Caller, owner string, assetID int64) (*model.PilotSession, error) {
	if err := m.checkParent(caller); err != nil {
		return nil, err
	}

	var closed *model.PilotSession

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		open := tx.SessionQuery().Asset(assetID).Open(true).One()
		if open == nil {
			return nil
		}

		end := m.clock.Height()
		if end < open.StartTime {
			end = open.StartTime
		}

		if err := tx.SessionQuery().Id(open.ID).Open(true).Update(map[string]any{"end_time": end}); err != nil {
			if database.IsNoRecord(err) {
				return nil
			}

			return err
		}

		open.EndTime = &end
		closed = open

		return nil
	})

	if err != nil {
		return nil, err
	}

	if closed == nil {
		m.logger.Debug("park of idle rig", slog.Int64("asset", assetID), slog.String("owner", owner))
		return nil, nil
	}

	if closed.Owner != owner {
		m.logger.Warn("rig parked by other owner", slog.Int64("asset", assetID),
			slog.String("owner", owner), slog.String("session_owner", closed.Owner))
	}

	m.logger.Info("rig parked", slog.Int64("asset", assetID), slog.Uint64("session", uint64(closed.ID)),
		slog.Int64("duration", closed.Duration(*closed.EndTime)))

	return closed, nil
}

// UpdateSessionOwner rewrites the owner of an open or closed session.
func (m *Manager) UpdateSessionOwner(ctx context.Context, caller *auth.Caller, sessionID uint, owner string) (*model.PilotSession, error) {
	if err := m.checkParent(caller); err != nil {
		return nil, err
	}

	if owner == "" {
		return nil, fmt.Errorf("%w: empty owner", apperr.ErrInvalid)
	}

	var s *model.PilotSession

	err := m.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		if s = tx.SessionQuery().Id(sessionID).One(); s == nil {
			return fmt.Errorf("session %d: %w", sessionID, apperr.ErrNotFound)
		}

		if s.Owner == owner {
			return nil
		}

		if err := tx.SessionQuery().Id(sessionID).Update(map[string]any{"owner": owner}); err != nil {
			return err
		}

		m.logger.Info("session owner changed", slog.Uint64("session", uint64(sessionID)),
			slog.String("from", s.Owner), slog.String("to", owner))

		s.Owner = owner

		return nil
	})

	if err != nil {
		return nil, err
	}

	return s, nil
}

func (m *Manager) OpenSession(ctx context.Context, assetID int64) *model.PilotSession {
	return m.dbm.WithContext(ctx).SessionQuery().Asset(assetID).Open(true).One()
}

func (m *Manager) Session(ctx context.Context, id uint) (*model.PilotSession, error) {
	s := m.dbm.WithContext(ctx).SessionQuery().Id(id).One()
	if s == nil {
		return nil, fmt.Errorf("session %d: %w", id, apperr.ErrNotFound)
	}

	return s, nil
}

func (m *Manager) Sessions(ctx context.Context, f Filter) []*model.PilotSession {
	q := m.dbm.WithContext(ctx).SessionQuery().Owner(f.Owners...)

	if f.Asset != nil {
		q = q.Asset(*f.Asset)
	}

	if f.Open != nil {
		q = q.Open(*f.Open)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	return q.Offset(f.Offset).Get()
}

func (m *Manager) IsTrained(ctx context.Context, assetID int64, pilot model.PilotRef) bool {
	return m.dbm.WithContext(ctx).TrainingQuery().Asset(assetID).Pilot(pilot).One() != nil
}

func (m *Manager) Now() int64 {
	return m.clock.Height()
}

// IsConflict is a shortcut for callers deciding whether to re-read state.
func IsConflict(err error) bool {
	return errors.Is(err, apperr.ErrSessionConflict)
}
