package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailyWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    *DailyWindow
		wantErr bool
	}{
		{name: "both empty yields nil window", start: "", end: ""},
		{name: "only start is an error", start: "09:00", end: "", wantErr: true},
		{name: "only end is an error", start: "", end: "17:00", wantErr: true},
		{
			name: "valid window", start: "09:30", end: "17:45",
			want: &DailyWindow{Start: 9*60 + 30, End: 17*60 + 45},
		},
		{
			name: "midnight to end of day", start: "00:00", end: "23:59",
			want: &DailyWindow{Start: 0, End: 23*60 + 59},
		},
		{name: "hour out of range", start: "24:00", end: "25:00", wantErr: true},
		{name: "minute out of range", start: "10:60", end: "11:00", wantErr: true},
		{name: "missing colon", start: "1000", end: "1100", wantErr: true},
		{name: "non-numeric", start: "ab:cd", end: "11:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDailyWindow(tt.start, tt.end)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
