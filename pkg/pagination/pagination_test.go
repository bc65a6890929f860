// Copyright (c) 2026 Folio Works. All rights reserved.

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/folioworks/folio/pkg/pagination"
)

/*
TestParams_Offset verifies the page-to-offset arithmetic.
*/
func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, pagination.Params{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 40, pagination.Params{Page: 5, Limit: 10}.Offset())

	// Page 0 and negative pages are treated as the first page.
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 10}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: -3, Limit: 10}.Offset())
}

/*
TestNewMeta verifies total page counting, including the partial last page.
*/
func TestNewMeta(t *testing.T) {
	// 25 rows at 10 per page is 3 pages (the last holds 5).
	meta := pagination.NewMeta(1, 10, 25)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 25, meta.Total)

	// Exact multiples do not create a trailing empty page.
	assert.Equal(t, 2, pagination.NewMeta(1, 10, 20).TotalPages)

	// Zero rows means zero pages.
	assert.Equal(t, 0, pagination.NewMeta(1, 10, 0).TotalPages)

	// Guard against division by zero.
	assert.Equal(t, 0, pagination.NewMeta(1, 0, 50).TotalPages)
}

/*
TestFromRequest verifies query parsing and clamping behavior.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "/posts", pagination.DefaultPage, pagination.DefaultLimit},
		{"explicit", "/posts?page=3&limit=25", 3, 25},
		{"negative page clamps", "/posts?page=-1&limit=5", pagination.DefaultPage, 5},
		{"excessive limit clamps", "/posts?limit=9999", pagination.DefaultPage, pagination.DefaultLimit},
		{"garbage input clamps", "/posts?page=abc&limit=xyz", pagination.DefaultPage, pagination.DefaultLimit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", tc.url, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tc.wantPage, params.Page)
			assert.Equal(t, tc.wantLimit, params.Limit)
		})
	}
}
