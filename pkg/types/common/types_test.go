package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Validate_ValidUUID(t *testing.T) {
	id := ID("550e8400-e29b-41d4-a716-446655440000")
	assert.NoError(t, id.Validate())
}

func TestID_Validate_EmptyString(t *testing.T) {
	err := ID("").Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestID_Validate_InvalidFormat(t *testing.T) {
	err := ID("not-a-uuid").Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ID format")
}

func TestNewID_GeneratesValidUUID(t *testing.T) {
	assert.NoError(t, NewID().Validate())
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	ts := Timestamp(time.Date(2025, 7, 8, 23, 59, 59, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-07-08T23:59:59Z"`, string(data))
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-07-08T23:59:59Z"`), &ts))
	assert.Equal(t, time.Date(2025, 7, 8, 23, 59, 59, 0, time.UTC), time.Time(ts))

	// fractional seconds also accepted
	require.NoError(t, json.Unmarshal([]byte(`"2025-07-08T23:59:59.123Z"`), &ts))
	assert.Equal(t, 123000000, time.Time(ts).Nanosecond())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestPagination_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Pagination
		wantErr bool
	}{
		{"valid", Pagination{Page: 1, PageSize: 20}, false},
		{"page zero", Pagination{Page: 0, PageSize: 20}, true},
		{"size zero", Pagination{Page: 1, PageSize: 0}, true},
		{"size over max", Pagination{Page: 1, PageSize: 501}, true},
		{"size at max", Pagination{Page: 1, PageSize: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPagination_Offset(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, Pagination{Page: 3, PageSize: 20}.Offset())
}

func TestDateRange_Validate(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	assert.NoError(t, DateRange{From: from, To: to}.Validate())
	assert.NoError(t, DateRange{From: from, To: from}.Validate())
	assert.Error(t, DateRange{From: to, To: from}.Validate())
}
