package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOptions_Defaults(t *testing.T) {
	o := ApplyOptions()
	assert.Equal(t, 0, o.Offset)
	assert.Equal(t, 20, o.Limit)
	assert.Empty(t, o.Profile)
}

func TestWithPagination_Clamps(t *testing.T) {
	tests := []struct {
		name           string
		offset, limit  int
		wantOff, wantL int
	}{
		{"valid", 40, 10, 40, 10},
		{"negative offset", -5, 10, 0, 10},
		{"zero limit", 0, 0, 0, 20},
		{"limit too large", 0, 1000, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ApplyOptions(WithPagination(tt.offset, tt.limit))
			assert.Equal(t, tt.wantOff, o.Offset)
			assert.Equal(t, tt.wantL, o.Limit)
		})
	}
}

func TestFilters(t *testing.T) {
	o := ApplyOptions(WithProfile("caelo"), WithJobID("job-7"))
	assert.Equal(t, "caelo", o.Profile)
	assert.Equal(t, "job-7", o.JobID)
}

//Personal.AI order the ending
