package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowShape[T any](rows [][]T) []int {
	shape := make([]int, 0, len(rows))
	for _, row := range rows {
		shape = append(shape, len(row))
	}
	return shape
}

func TestLayout_Shapes(t *testing.T) {
	tests := []struct {
		n     int
		shape []int
	}{
		{n: 0, shape: []int{}},
		{n: 1, shape: []int{1}},
		{n: 2, shape: []int{1, 1}},
		{n: 3, shape: []int{2, 1}},
		{n: 4, shape: []int{1, 2, 1}},
		{n: 5, shape: []int{2, 3}},
		{n: 6, shape: []int{1, 2, 2, 1}},
		{n: 7, shape: []int{2, 3, 2}},
		{n: 8, shape: []int{1, 2, 2, 2, 1}},
		{n: 9, shape: []int{2, 3, 2, 1, 1}},
	}

	for _, tt := range tests {
		items := make([]int, tt.n)
		for i := range items {
			items[i] = i
		}

		rows := Layout(items)
		assert.Equal(t, tt.shape, rowShape(rows), "n=%d", tt.n)
	}
}

func TestLayout_PreservesOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}

	rows := Layout(items)

	var flat []string
	for _, row := range rows {
		flat = append(flat, row...)
	}
	assert.Equal(t, items, flat)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d", "e"}, {"f", "g"}}, rows)
}

func TestLayout_Deterministic(t *testing.T) {
	items := []string{"one", "two", "three", "four", "five", "six"}

	assert.Equal(t, Layout(items), Layout(items))
	assert.Equal(t, [][]string{{"one"}, {"two", "three"}, {"four", "five"}, {"six"}}, Layout(items))
}
