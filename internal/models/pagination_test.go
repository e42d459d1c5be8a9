package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationTotalPages(t *testing.T) {
	cases := []struct {
		name     string
		total    int
		pageSize int
		want     int
	}{
		{"exact multiple", 20, 10, 2},
		{"partial tail page", 21, 10, 3},
		{"fewer than one page", 3, 10, 1},
		{"empty result", 0, 10, 0},
		{"zero page size", 21, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Pagination{TotalCount: tc.total, PageSize: tc.pageSize}
			assert.Equal(t, tc.want, p.TotalPages())
		})
	}
}
