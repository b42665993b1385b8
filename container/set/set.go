// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package set provides a generic hash set.
package set

import (
	"encoding/json"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var empty = struct{}{}

// Set is an unordered collection of distinct items. The zero value is an
// empty read-only set; use New before calling Add.
type Set[T comparable] map[T]struct{}

// New creates a set holding items.
func New[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = empty
	}
	return s
}

// Add inserts items into the set.
func (s Set[T]) Add(items ...T) {
	for _, item := range items {
		s[item] = empty
	}
}

// Remove deletes items from the set.
func (s Set[T]) Remove(items ...T) {
	for _, item := range items {
		delete(s, item)
	}
}

// Contains reports whether item is in the set.
func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

// Size returns the number of items.
func (s Set[T]) Size() int {
	return len(s)
}

// Empty reports whether the set has no items.
func (s Set[T]) Empty() bool {
	return len(s) == 0
}

// Values returns the items in unspecified order.
func (s Set[T]) Values() []T {
	return maps.Keys(s)
}

// Sorted returns the items of s in ascending order.
func Sorted[T constraints.Ordered](s Set[T]) []T {
	values := s.Values()
	slices.Sort(values)
	return values
}

// MarshalJSON encodes the set as a JSON array.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	values := s.Values()
	if values == nil {
		values = []T{}
	}
	return json.Marshal(values)
}

// UnmarshalJSON decodes a JSON array, dropping duplicates.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = New(values...)
	return nil
}
