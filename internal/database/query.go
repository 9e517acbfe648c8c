package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errUpdate = errors.New("no record found")

type Query[T any] struct {
	db     *gorm.DB
	limit  int
	offset int
	order  string
}

func newQuery[T any](db *gorm.DB, order string) Query[T] {
	return Query[T]{
		db:     db,
		limit:  100,
		offset: 0,
		order:  order,
	}
}

func (q *Query[T]) get(tx *gorm.DB) []*T {
	var res []*T

	if q.order != "" {
		tx = tx.Order(q.order)
	}

	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}

	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}

	if err := tx.Find(&res).Error; err != nil {
		return nil
	}

	return res
}

func (q *Query[T]) one(tx *gorm.DB) *T {
	res := new(T)

	if err := tx.Take(res).Error; err != nil {
		return nil
	}

	return res
}

func (q *Query[T]) count(tx *gorm.DB) int64 {
	var n int64

	if err := tx.Count(&n).Error; err != nil {
		return 0
	}

	return n
}

func (q *Query[T]) updateOrError(tx *gorm.DB, updates map[string]any) error {
	tx = tx.Updates(updates)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return errUpdate
	}

	return nil
}

// IsNoRecord reports whether an Update call matched nothing.
func IsNoRecord(err error) bool {
	return errors.Is(err, errUpdate) || errors.Is(err, gorm.ErrRecordNotFound)
}

// lockRows selects rows FOR UPDATE. sqlite has no row locks; its writers are
// already serialized on the single connection.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
