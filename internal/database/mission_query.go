package database

import (
	"gorm.io/gorm"

	"github.com/kdudkov/rigs/pkg/model"
)

type MissionQuery struct {
	Query[model.Mission]
	id   *uint
	name string
	lock bool
}

func NewMissionQuery(db *gorm.DB) *MissionQuery {
	return &MissionQuery{
		Query: newQuery[model.Mission](db, "id"),
	}
}

func (q *MissionQuery) Limit(n int) *MissionQuery {
	q.limit = n
	return q
}

func (q *MissionQuery) Offset(n int) *MissionQuery {
	q.offset = n
	return q
}

// Id filters on the primary key, 0 included.
func (q *MissionQuery) Id(id uint) *MissionQuery {
	q.id = &id
	return q
}

func (q *MissionQuery) Name(name string) *MissionQuery {
	q.name = name
	return q
}

// ForUpdate locks the selected missions until the transaction ends.
func (q *MissionQuery) ForUpdate() *MissionQuery {
	q.lock = true
	return q
}

func (q *MissionQuery) where() *gorm.DB {
	tx := q.db.Model(&model.Mission{})

	if q.id != nil {
		tx = tx.Where("id = ?", *q.id)
	}

	if q.name != "" {
		tx = tx.Where("name = ?", q.name)
	}

	if q.lock {
		tx = lockRows(tx)
	}

	return tx
}

func (q *MissionQuery) Get() []*model.Mission {
	return q.get(q.where())
}

func (q *MissionQuery) One() *model.Mission {
	return q.one(q.where())
}

func (q *MissionQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where(), updates)
}

type ContributionQuery struct {
	Query[model.MissionContribution]
	id          *uint
	missionID   uint
	contributor string
	status      model.ContributionStatus
}

func NewContributionQuery(db *gorm.DB) *ContributionQuery {
	return &ContributionQuery{
		Query: newQuery[model.MissionContribution](db, "id DESC"),
	}
}

func (q *ContributionQuery) Limit(n int) *ContributionQuery {
	q.limit = n
	return q
}

func (q *ContributionQuery) Offset(n int) *ContributionQuery {
	q.offset = n
	return q
}

// Id filters on the primary key, 0 included.
func (q *ContributionQuery) Id(id uint) *ContributionQuery {
	q.id = &id
	return q
}

func (q *ContributionQuery) Mission(id uint) *ContributionQuery {
	q.missionID = id
	return q
}

func (q *ContributionQuery) Contributor(login string) *ContributionQuery {
	q.contributor = login
	return q
}

func (q *ContributionQuery) Status(s model.ContributionStatus) *ContributionQuery {
	q.status = s
	return q
}

func (q *ContributionQuery) where() *gorm.DB {
	tx := q.db.Model(&model.MissionContribution{})

	if q.id != nil {
		tx = tx.Where("id = ?", *q.id)
	}

	if q.missionID != 0 {
		tx = tx.Where("mission_id = ?", q.missionID)
	}

	if q.contributor != "" {
		tx = tx.Where("contributor = ?", q.contributor)
	}

	switch q.status {
	case model.ContributionPending:
		tx = tx.Where("accepted IS NULL")
	case model.ContributionAccepted:
		tx = tx.Where("accepted = ?", true)
	case model.ContributionRejected:
		tx = tx.Where("accepted = ?", false)
	}

	return tx
}

func (q *ContributionQuery) Get() []*model.MissionContribution {
	return q.get(q.where())
}

func (q *ContributionQuery) One() *model.MissionContribution {
	return q.one(q.where())
}

func (q *ContributionQuery) Count() int64 {
	return q.count(q.where())
}

// Update only touches rows matching every filter, so Status(pending) makes it a
// compare-and-set.
func (q *ContributionQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where(), updates)
}
