package database

import (
	"gorm.io/gorm"

	"github.com/kdudkov/rigs/pkg/model"
)

// durationAt is the part of a session that lies before a height.
const durationAt = "CASE WHEN end_time IS NULL OR end_time > ? THEN ? ELSE end_time END - start_time"

type SessionQuery struct {
	Query[model.PilotSession]
	id      *uint
	assetID *int64
	owners  []string
	open    *bool
	before  *int64
}

func NewSessionQuery(db *gorm.DB) *SessionQuery {
	return &SessionQuery{
		Query: newQuery[model.PilotSession](db, "id DESC"),
	}
}

func (q *SessionQuery) Order(s string) *SessionQuery {
	q.order = s
	return q
}

func (q *SessionQuery) Limit(n int) *SessionQuery {
	q.limit = n
	return q
}

func (q *SessionQuery) Offset(n int) *SessionQuery {
	q.offset = n
	return q
}

// Id filters on the primary key, 0 included.
func (q *SessionQuery) Id(id uint) *SessionQuery {
	q.id = &id
	return q
}

func (q *SessionQuery) Asset(id int64) *SessionQuery {
	q.assetID = &id
	return q
}

func (q *SessionQuery) Owner(owners ...string) *SessionQuery {
	q.owners = append(q.owners, owners...)
	return q
}

func (q *SessionQuery) Open(b bool) *SessionQuery {
	q.open = &b
	return q
}

// StartedBy keeps sessions started at or before height h.
func (q *SessionQuery) StartedBy(h int64) *SessionQuery {
	q.before = &h
	return q
}

func (q *SessionQuery) where() *gorm.DB {
	tx := q.db.Model(&model.PilotSession{})

	if q.id != nil {
		tx = tx.Where("id = ?", *q.id)
	}

	if q.assetID != nil {
		tx = tx.Where("asset_id = ?", *q.assetID)
	}

	if len(q.owners) > 0 {
		tx = tx.Where("owner IN ?", q.owners)
	}

	if q.open != nil {
		if *q.open {
			tx = tx.Where("end_time IS NULL")
		} else {
			tx = tx.Where("end_time IS NOT NULL")
		}
	}

	if q.before != nil {
		tx = tx.Where("start_time <= ?", *q.before)
	}

	return tx
}

func (q *SessionQuery) Get() []*model.PilotSession {
	return q.get(q.where())
}

func (q *SessionQuery) One() *model.PilotSession {
	return q.one(q.where())
}

func (q *SessionQuery) Count() int64 {
	return q.count(q.where())
}

func (q *SessionQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where(), updates)
}

// SumDuration adds up session time of the selected sessions as of height h.
func (q *SessionQuery) SumDuration(h int64) (int64, error) {
	var total int64

	err := q.StartedBy(h).where().
		Select("CAST(COALESCE(SUM("+durationAt+"), 0) AS BIGINT)", h, h).
		Scan(&total).Error

	return total, err
}

// DurationByOwner is SumDuration grouped by session owner.
func (q *SessionQuery) DurationByOwner(h int64) ([]*IdentityAmount, error) {
	var res []*IdentityAmount

	err := q.StartedBy(h).where().
		Select("owner AS identity, CAST(COALESCE(SUM("+durationAt+"), 0) AS BIGINT) AS amount", h, h).
		Group("owner").
		Scan(&res).Error

	return res, err
}

type TrainingQuery struct {
	Query[model.RigTraining]
	assetID *int64
	pilot   *model.PilotRef
}

func NewTrainingQuery(db *gorm.DB) *TrainingQuery {
	return &TrainingQuery{
		Query: newQuery[model.RigTraining](db, "id"),
	}
}

func (q *TrainingQuery) Asset(id int64) *TrainingQuery {
	q.assetID = &id
	return q
}

func (q *TrainingQuery) Pilot(p model.PilotRef) *TrainingQuery {
	q.pilot = &p
	return q
}

func (q *TrainingQuery) where() *gorm.DB {
	tx := q.db.Model(&model.RigTraining{})

	if q.assetID != nil {
		tx = tx.Where("asset_id = ?", *q.assetID)
	}

	if q.pilot != nil {
		tx = tx.Where("pilot_kind = ? AND pilot_contract = ? AND pilot_id = ?", q.pilot.Kind, q.pilot.Contract, q.pilot.ID)
	}

	return tx
}

func (q *TrainingQuery) Get() []*model.RigTraining {
	return q.get(q.where())
}

func (q *TrainingQuery) One() *model.RigTraining {
	return q.one(q.where())
}
