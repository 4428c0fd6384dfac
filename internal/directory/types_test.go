package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFilterNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filter   Filter
		expected Filter
	}{
		{name: "zero value", filter: Filter{}, expected: Filter{}},
		{name: "All folds to empty", filter: Filter{Category: "All"}, expected: Filter{}},
		{name: "all lowercase folds to empty", filter: Filter{Category: " all "}, expected: Filter{}},
		{name: "category trimmed", filter: Filter{Category: " Food "}, expected: Filter{Category: "Food"}},
		{name: "search trimmed", filter: Filter{Search: "  tea "}, expected: Filter{Search: "tea"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.filter.Normalize())
		})
	}
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	rec := &ServiceRecord{Name: "Campus Canteen", Category: "Food", Description: "Cheap Thali and chai"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, want: true},
		{name: "category match", filter: Filter{Category: "Food"}, want: true},
		{name: "category mismatch", filter: Filter{Category: "Health"}, want: false},
		{name: "category is case sensitive", filter: Filter{Category: "food"}, want: false},
		{name: "search in name any case", filter: Filter{Search: "CANTEEN"}, want: true},
		{name: "search in description", filter: Filter{Search: "thali"}, want: true},
		{name: "search miss", filter: Filter{Search: "pharmacy"}, want: false},
		{name: "both must hold", filter: Filter{Category: "Health", Search: "chai"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.filter.Matches(rec))
		})
	}
}

func TestServiceRecordClone(t *testing.T) {
	t.Parallel()

	checked := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	orig := &ServiceRecord{
		ID:                NewID(),
		Name:              "Print Hub",
		ExternalRef:       ptr("ChIJ123"),
		StatusLastChecked: &checked,
	}

	clone := orig.Clone()
	require.Empty(t, cmp.Diff(orig, clone))

	*clone.ExternalRef = "changed"
	*clone.StatusLastChecked = checked.Add(time.Hour)
	assert.Equal(t, "ChIJ123", *orig.ExternalRef)
	assert.Equal(t, checked, *orig.StatusLastChecked)

	var nilRec *ServiceRecord
	assert.Nil(t, nilRec.Clone())
}

func TestServiceRecordHasExternalRef(t *testing.T) {
	t.Parallel()

	assert.False(t, (&ServiceRecord{}).HasExternalRef())
	assert.False(t, (&ServiceRecord{ExternalRef: ptr("  ")}).HasExternalRef())
	assert.True(t, (&ServiceRecord{ExternalRef: ptr("ChIJ")}).HasExternalRef())
}

func TestUpdateApplyTo(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &ServiceRecord{Name: "Old", Category: "Food", IsOpen: false, Rating: 3.5}

	Update{IsOpen: ptr(true), StatusLastChecked: &now}.ApplyTo(rec, now)

	assert.Equal(t, "Old", rec.Name)
	assert.Equal(t, "Food", rec.Category)
	assert.Equal(t, 3.5, rec.Rating)
	assert.True(t, rec.IsOpen)
	require.NotNil(t, rec.StatusLastChecked)
	assert.Equal(t, now, *rec.StatusLastChecked)
	assert.Equal(t, now, rec.UpdatedAt)

	assert.True(t, Update{}.IsEmpty())
	assert.False(t, Update{Rating: ptr(4.0)}.IsEmpty())
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id := NewID()
	parsed, err := ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, parsed.String())

	for _, bad := range []string{"", "42", "not-a-uuid", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		_, err := ParseID(bad)
		assert.True(t, errors.Is(err, ErrInvalidIdentifier), "id %q", bad)
	}
}

func TestValidateRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rec     *ServiceRecord
		wantErr string
	}{
		{name: "nil", rec: nil, wantErr: "cannot be nil"},
		{name: "missing name", rec: &ServiceRecord{Category: "Food"}, wantErr: "name is required"},
		{name: "missing category", rec: &ServiceRecord{Name: "x"}, wantErr: "category is required"},
		{name: "bad latitude", rec: &ServiceRecord{Name: "x", Category: "Food", Location: Location{Lat: 91}}, wantErr: "latitude"},
		{name: "bad longitude", rec: &ServiceRecord{Name: "x", Category: "Food", Location: Location{Lng: -181}}, wantErr: "longitude"},
		{name: "valid", rec: &ServiceRecord{Name: "x", Category: "Food", Location: Location{Lat: 12.97, Lng: 79.16}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRecord(tt.rec)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
