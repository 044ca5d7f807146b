package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name          string
		totalItems    int
		pageSize      int
		requestedPage int
		want          Page
	}{
		{
			name:          "empty collection still has one page",
			totalItems:    0,
			pageSize:      5,
			requestedPage: 1,
			want:          Page{Offset: 0, Limit: 5, CurrentPage: 1, TotalPages: 1},
		},
		{
			name:          "exact multiple of page size",
			totalItems:    10,
			pageSize:      5,
			requestedPage: 2,
			want:          Page{Offset: 5, Limit: 5, CurrentPage: 2, TotalPages: 2},
		},
		{
			name:          "partial last page",
			totalItems:    25,
			pageSize:      10,
			requestedPage: 3,
			want:          Page{Offset: 20, Limit: 10, CurrentPage: 3, TotalPages: 3},
		},
		{
			name:          "out of range page is clamped to the last page",
			totalItems:    7,
			pageSize:      5,
			requestedPage: 99,
			want:          Page{Offset: 5, Limit: 5, CurrentPage: 2, TotalPages: 2},
		},
		{
			name:          "page past the end of an empty collection",
			totalItems:    0,
			pageSize:      5,
			requestedPage: 3,
			want:          Page{Offset: 0, Limit: 5, CurrentPage: 1, TotalPages: 1},
		},
		{
			name:          "single record",
			totalItems:    1,
			pageSize:      5,
			requestedPage: 1,
			want:          Page{Offset: 0, Limit: 5, CurrentPage: 1, TotalPages: 1},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Paginate(test.totalItems, test.pageSize, test.requestedPage)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestPaginateRejectsNonPositivePage(t *testing.T) {
	for _, requestedPage := range []int{0, -1, -100} {
		_, err := Paginate(10, 5, requestedPage)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
}

func TestPaginateInvariants(t *testing.T) {
	for totalItems := 0; totalItems <= 50; totalItems++ {
		for _, pageSize := range []int{1, 3, 5, 10} {
			for _, requestedPage := range []int{1, 2, 7, 1000} {
				page, err := Paginate(totalItems, pageSize, requestedPage)
				require.NoError(t, err)

				wantTotalPages := (totalItems + pageSize - 1) / pageSize
				if wantTotalPages < 1 {
					wantTotalPages = 1
				}
				assert.Equal(t, wantTotalPages, page.TotalPages)
				assert.GreaterOrEqual(t, page.CurrentPage, 1)
				assert.LessOrEqual(t, page.CurrentPage, page.TotalPages)
				assert.GreaterOrEqual(t, page.Offset, 0)
			}
		}
	}
}

func TestPageLinks(t *testing.T) {
	page, err := Paginate(25, 10, 3)
	require.NoError(t, err)

	assert.True(t, page.HasPrev())
	assert.False(t, page.HasNext(), "the last page should not expose a next link")
	assert.Equal(t, 2, page.PrevPage())
	assert.Equal(t, 3, page.NextPage())

	first, err := Paginate(25, 10, 1)
	require.NoError(t, err)

	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())
	assert.Equal(t, 1, first.PrevPage())
	assert.Equal(t, 2, first.NextPage())
}
