package util

import (
	"slices"
	"strings"
)

const sep = ';'

type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	s.Add(items...)

	return s
}

// StringToSet splits a ';' separated list, skipping empty parts.
func StringToSet(s string) Set[string] {
	ss := make(Set[string])

	for _, s1 := range strings.Split(s, string(sep)) {
		if s1 = strings.TrimSpace(s1); s1 != "" {
			ss.Add(s1)
		}
	}

	return ss
}

func (s Set[T]) Add(keys ...T) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

func (s Set[T]) Remove(key T) {
	delete(s, key)
}

func (s Set[T]) Has(key T) bool {
	_, ok := s[key]

	return ok
}

func (s Set[T]) List() []T {
	res := make([]T, 0, len(s))

	for k := range s {
		res = append(res, k)
	}

	return res
}

// Sorted returns the members of a string set in order, for stable output.
func Sorted(s Set[string]) []string {
	res := s.List()
	slices.Sort(res)

	return res
}

func FirstString(s ...string) string {
	for _, s1 := range s {
		if s1 != "" {
			return s1
		}
	}

	return ""
}
