package database

import (
	"gorm.io/gorm"

	"github.com/kdudkov/rigs/pkg/model"
)

type RewardQuery struct {
	Query[model.RewardGrant]
	recipients []string
	reason     model.RewardReason
	proposalID uint
	before     *int64
}

func NewRewardQuery(db *gorm.DB) *RewardQuery {
	return &RewardQuery{
		Query: newQuery[model.RewardGrant](db, "id DESC"),
	}
}

func (q *RewardQuery) Limit(n int) *RewardQuery {
	q.limit = n
	return q
}

func (q *RewardQuery) Offset(n int) *RewardQuery {
	q.offset = n
	return q
}

func (q *RewardQuery) Recipient(ids ...string) *RewardQuery {
	q.recipients = append(q.recipients, ids...)
	return q
}

func (q *RewardQuery) Reason(r model.RewardReason) *RewardQuery {
	q.reason = r
	return q
}

func (q *RewardQuery) Proposal(id uint) *RewardQuery {
	q.proposalID = id
	return q
}

// GrantedBy keeps grants written at or before height h.
func (q *RewardQuery) GrantedBy(h int64) *RewardQuery {
	q.before = &h
	return q
}

func (q *RewardQuery) where() *gorm.DB {
	tx := q.db.Model(&model.RewardGrant{})

	if len(q.recipients) > 0 {
		tx = tx.Where("recipient IN ?", q.recipients)
	}

	if q.reason != "" {
		tx = tx.Where("reason = ?", q.reason)
	}

	if q.proposalID != 0 {
		tx = tx.Where("proposal_id = ?", q.proposalID)
	}

	if q.before != nil {
		tx = tx.Where("block <= ?", *q.before)
	}

	return tx
}

func (q *RewardQuery) Get() []*model.RewardGrant {
	return q.get(q.where())
}

func (q *RewardQuery) One() *model.RewardGrant {
	return q.one(q.where())
}

func (q *RewardQuery) Count() int64 {
	return q.count(q.where())
}

func (q *RewardQuery) SumAmount() (int64, error) {
	var total int64

	err := q.where().Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").Scan(&total).Error

	return total, err
}

func (q *RewardQuery) AmountByRecipient() ([]*IdentityAmount, error) {
	var res []*IdentityAmount

	err := q.where().
		Select("recipient AS identity, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS amount").
		Group("recipient").
		Scan(&res).Error

	return res, err
}
