package database

import (
	"gorm.io/gorm"

	"github.com/kdudkov/rigs/pkg/model"
)

type ProposalQuery struct {
	Query[model.Proposal]
	id *uint
}

func NewProposalQuery(db *gorm.DB) *ProposalQuery {
	return &ProposalQuery{
		Query: newQuery[model.Proposal](db, "proposals.id DESC"),
	}
}

func (q *ProposalQuery) Limit(n int) *ProposalQuery {
	q.limit = n
	return q
}

func (q *ProposalQuery) Offset(n int) *ProposalQuery {
	q.offset = n
	return q
}

// Id filters on the primary key, 0 included.
func (q *ProposalQuery) Id(id uint) *ProposalQuery {
	q.id = &id
	return q
}

func (q *ProposalQuery) where() *gorm.DB {
	tx := q.db.Model(&model.Proposal{}).Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("vote_options.id")
	})

	if q.id != nil {
		tx = tx.Where("proposals.id = ?", *q.id)
	}

	return tx
}

func (q *ProposalQuery) Get() []*model.Proposal {
	return q.get(q.where())
}

func (q *ProposalQuery) One() *model.Proposal {
	return q.one(q.where())
}

func (q *ProposalQuery) Count() int64 {
	return q.count(q.db.Model(&model.Proposal{}))
}

type SnapshotQuery struct {
	Query[model.FTSnapshot]
	proposalID uint
	identity   string
	lock       bool
}

func NewSnapshotQuery(db *gorm.DB) *SnapshotQuery {
	return &SnapshotQuery{
		Query: newQuery[model.FTSnapshot](db, "ft_amount DESC, identity"),
	}
}

func (q *SnapshotQuery) Limit(n int) *SnapshotQuery {
	q.limit = n
	return q
}

func (q *SnapshotQuery) Proposal(id uint) *SnapshotQuery {
	q.proposalID = id
	return q
}

func (q *SnapshotQuery) Identity(id string) *SnapshotQuery {
	q.identity = id
	return q
}

// ForUpdate locks the selected snapshot rows, serializing votes of one
// identity on a proposal.
func (q *SnapshotQuery) ForUpdate() *SnapshotQuery {
	q.lock = true
	return q
}

func (q *SnapshotQuery) where() *gorm.DB {
	tx := q.db.Model(&model.FTSnapshot{})

	if q.proposalID != 0 {
		tx = tx.Where("proposal_id = ?", q.proposalID)
	}

	if q.identity != "" {
		tx = tx.Where("identity = ?", q.identity)
	}

	if q.lock {
		tx = lockRows(tx)
	}

	return tx
}

func (q *SnapshotQuery) Get() []*model.FTSnapshot {
	return q.get(q.where())
}

func (q *SnapshotQuery) One() *model.FTSnapshot {
	return q.one(q.where())
}

func (q *SnapshotQuery) Count() int64 {
	return q.count(q.where())
}

type VoteQuery struct {
	Query[model.Vote]
	proposalID uint
	identity   string
	optionID   uint
}

func NewVoteQuery(db *gorm.DB) *VoteQuery {
	return &VoteQuery{
		Query: newQuery[model.Vote](db, "id"),
	}
}

func (q *VoteQuery) Limit(n int) *VoteQuery {
	q.limit = n
	return q
}

func (q *VoteQuery) Proposal(id uint) *VoteQuery {
	q.proposalID = id
	return q
}

func (q *VoteQuery) Identity(id string) *VoteQuery {
	q.identity = id
	return q
}

func (q *VoteQuery) Option(id uint) *VoteQuery {
	q.optionID = id
	return q
}

func (q *VoteQuery) where() *gorm.DB {
	tx := q.db.Model(&model.Vote{})

	if q.proposalID != 0 {
		tx = tx.Where("proposal_id = ?", q.proposalID)
	}

	if q.identity != "" {
		tx = tx.Where("identity = ?", q.identity)
	}

	if q.optionID != 0 {
		tx = tx.Where("option_id = ?", q.optionID)
	}

	return tx
}

func (q *VoteQuery) Get() []*model.Vote {
	return q.get(q.where())
}

func (q *VoteQuery) One() *model.Vote {
	return q.one(q.where())
}

func (q *VoteQuery) Count() int64 {
	return q.count(q.where())
}

func (q *VoteQuery) SumWeight() (int64, error) {
	var total int64

	err := q.where().Select("CAST(COALESCE(SUM(weight), 0) AS BIGINT)").Scan(&total).Error

	return total, err
}

// OptionTotal is the summed weight and voter count of one option.
type OptionTotal struct {
	OptionID uint
	Weight   int64
	Voters   int64
}

func (q *VoteQuery) TotalsByOption() ([]*OptionTotal, error) {
	var res []*OptionTotal

	err := q.where().
		Select("option_id, CAST(COALESCE(SUM(weight), 0) AS BIGINT) AS weight, COUNT(*) AS voters").
		Group("option_id").
		Scan(&res).Error

	return res, err
}
