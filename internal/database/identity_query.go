package database

import (
	"gorm.io/gorm"

	"github.com/kdudkov/rigs/pkg/model"
)

type IdentityQuery struct {
	Query[model.Identity]
	login string
}

func NewIdentityQuery(db *gorm.DB) *IdentityQuery {
	return &IdentityQuery{
		Query: newQuery[model.Identity](db, "login"),
	}
}

func (q *IdentityQuery) Login(login string) *IdentityQuery {
	q.login = login
	return q
}

func (q *IdentityQuery) where() *gorm.DB {
	tx := q.db.Model(&model.Identity{})

	if q.login != "" {
		tx = tx.Where("login = ?", q.login)
	}

	return tx
}

func (q *IdentityQuery) Get() []*model.Identity {
	return q.get(q.where())
}

func (q *IdentityQuery) One() *model.Identity {
	return q.one(q.where())
}

func (q *IdentityQuery) Count() int64 {
	return q.count(q.where())
}

func (q *IdentityQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where(), updates)
}
