package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/policy-intel-cli/internal/export"
	"github.com/aqlhr/policy-intel-cli/internal/store"
)

func TestParseListFilter(t *testing.T) {
	filter, err := parseListFilter("leave", "2026-01-01", "2026-02-01", store.OrderByOverall, true, 10)
	require.NoError(t, err)

	assert.Equal(t, "leave", filter.Query)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), filter.From)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), filter.To)
	assert.Equal(t, store.OrderByOverall, filter.OrderBy)
	assert.True(t, filter.Asc)
	assert.Equal(t, 10, filter.Limit)
}

func TestParseListFilter_BadDate(t *testing.T) {
	_, err := parseListFilter("", "January 1st", "", "", false, 0)
	assert.Error(t, err)
}

func TestResolveExportFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		explicit string
		want     string
		wantErr  bool
	}{
		{name: "csv extension", path: "out.csv", want: export.FormatCSV},
		{name: "xlsx extension", path: "report.XLSX", want: export.FormatXLSX},
		{name: "explicit wins", path: "out.dat", explicit: "csv", want: export.FormatCSV},
		{name: "unknown", path: "out.dat", wantErr: true},
		{name: "bad explicit", path: "out.csv", explicit: "pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveExportFormat(tt.path, tt.explicit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
