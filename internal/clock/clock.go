package clock

import (
	"sync/atomic"
	"time"
)

// Source gives the current block height. Values never decrease.
type Source interface {
	Height() int64
}

// Wall uses unix seconds as height.
type Wall struct{}

func (Wall) Height() int64 {
	return time.Now().Unix()
}

// Manual is a height moved only by Set and Advance.
type Manual struct {
	h atomic.Int64
}

func NewManual(start int64) *Manual {
	m := new(Manual)
	m.h.Store(start)

	return m
}

func (m *Manual) Height() int64 {
	return m.h.Load()
}

func (m *Manual) Advance(d int64) int64 {
	if d < 0 {
		return m.h.Load()
	}

	return m.h.Add(d)
}

// Set moves the height forward to h. Lower values are ignored.
func (m *Manual) Set(h int64) {
	for {
		cur := m.h.Load()
		if h <= cur || m.h.CompareAndSwap(cur, h) {
			return
		}
	}
}

func FromName(name string, start int64) Source {
	if name == "manual" {
		return NewManual(start)
	}

	return Wall{}
}
