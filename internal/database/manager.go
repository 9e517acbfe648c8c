package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kdudkov/rigs/pkg/model"
)

type DatabaseManager struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to sqlite (default) or postgres.
func Open(driver, dsn string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "rigs.sqlite"
		}

		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %s", driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if driver == "" || driver == "sqlite" {
		// single writer: sqlite transactions are serialized on one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func New(db *gorm.DB) *DatabaseManager {
	return &DatabaseManager{
		db:     db,
		logger: slog.With("logger", "dbm"),
	}
}

func (mm *DatabaseManager) DB() *gorm.DB {
	return mm.db
}

func (mm *DatabaseManager) WithContext(ctx context.Context) *DatabaseManager {
	return &DatabaseManager{db: mm.db.WithContext(ctx), logger: mm.logger}
}

// Transaction runs fn on a manager bound to a single transaction.
func (mm *DatabaseManager) Transaction(ctx context.Context, fn func(tx *DatabaseManager) error) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseManager{db: tx, logger: mm.logger})
	})
}

func (mm *DatabaseManager) Create(s any) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	err := mm.db.Create(s).Error

	if err != nil && !IsDuplicate(err) {
		mm.logger.Error("error create object", slog.Any("error", err))
	}

	return err
}

func (mm *DatabaseManager) Save(s any) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	err := mm.db.Save(s).Error

	if err != nil && !IsDuplicate(err) {
		mm.logger.Error("error saving object", slog.Any("error", err))
	}

	return err
}

func (mm *DatabaseManager) SessionQuery() *SessionQuery {
	return NewSessionQuery(mm.db)
}

func (mm *DatabaseManager) TrainingQuery() *TrainingQuery {
	return NewTrainingQuery(mm.db)
}

func (mm *DatabaseManager) RewardQuery() *RewardQuery {
	return NewRewardQuery(mm.db)
}

func (mm *DatabaseManager) ProposalQuery() *ProposalQuery {
	return NewProposalQuery(mm.db)
}

func (mm *DatabaseManager) SnapshotQuery() *SnapshotQuery {
	return NewSnapshotQuery(mm.db)
}

func (mm *DatabaseManager) VoteQuery() *VoteQuery {
	return NewVoteQuery(mm.db)
}

func (mm *DatabaseManager) MissionQuery() *MissionQuery {
	return NewMissionQuery(mm.db)
}

func (mm *DatabaseManager) ContributionQuery() *ContributionQuery {
	return NewContributionQuery(mm.db)
}

func (mm *DatabaseManager) IdentityQuery() *IdentityQuery {
	return NewIdentityQuery(mm.db)
}

func (mm *DatabaseManager) Migrate() error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.AutoMigrate(
		&model.PilotSession{},
		&model.RigTraining{},
		&model.RewardGrant{},
		&model.Proposal{},
		&model.VoteOption{},
		&model.FTSnapshot{},
		&model.Vote{},
		&model.Mission{},
		&model.MissionContribution{},
		&model.Identity{},
	)
}

// IsDuplicate reports a unique constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	s := err.Error()

	return strings.Contains(s, "UNIQUE constraint failed") || strings.Contains(s, "duplicate key value")
}

// IdentityAmount is one row of a per-identity aggregate.
type IdentityAmount struct {
	Identity string
	Amount   int64
}
