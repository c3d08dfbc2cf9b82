package timeservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestSnapshotFromTime(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want Snapshot
	}{
		{
			name: "Midnight",
			time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			want: Snapshot{},
		},
		{
			name: "Truncates sub-second part to tenths",
			time: time.Date(2020, 1, 1, 13, 45, 7, 999999999, time.UTC),
			want: Snapshot{Hours: 13, Minutes: 45, Seconds: 7, Tenths: 9},
		},
		{
			name: "Just below one tenth",
			time: time.Date(2020, 1, 1, 23, 59, 59, 99999999, time.UTC),
			want: Snapshot{Hours: 23, Minutes: 59, Seconds: 59, Tenths: 0},
		},
		{
			name: "Exactly one tenth",
			time: time.Date(2020, 1, 1, 23, 59, 59, 100000000, time.UTC),
			want: Snapshot{Hours: 23, Minutes: 59, Seconds: 59, Tenths: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotFromTime(tt.time))
		})
	}
}

func TestDetectChanges(t *testing.T) {
	base := Snapshot{Hours: 10, Minutes: 20, Seconds: 30, Tenths: 4}
	tests := []struct {
		name     string
		previous Snapshot
		current  Snapshot
		want     []Change
	}{
		{
			name:     "No changes for identical snapshots",
			previous: base,
			current:  base,
			want:     nil,
		},
		{
			name:     "Only seconds changed",
			previous: base,
			current:  Snapshot{Hours: 10, Minutes: 20, Seconds: 31, Tenths: 4},
			want:     []Change{{Field: Seconds, Old: 30, New: 31}},
		},
		{
			name:     "Cascade is ordered tenths, seconds, minutes, hours",
			previous: Snapshot{Hours: 10, Minutes: 59, Seconds: 59, Tenths: 9},
			current:  Snapshot{Hours: 11, Minutes: 0, Seconds: 0, Tenths: 0},
			want: []Change{
				{Field: Tenths, Old: 9, New: 0},
				{Field: Seconds, Old: 59, New: 0},
				{Field: Minutes, Old: 59, New: 0},
				{Field: Hours, Old: 10, New: 11},
			},
		},
		{
			name:     "Unchanged fields between changed ones are skipped",
			previous: base,
			current:  Snapshot{Hours: 11, Minutes: 20, Seconds: 30, Tenths: 5},
			want: []Change{
				{Field: Tenths, Old: 4, New: 5},
				{Field: Hours, Old: 10, New: 11},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectChanges(tt.previous, tt.current))
		})
	}
}

// Checks DetectChanges against random snapshot pairs: every differing field
// appears exactly once, in dispatch order, with its old and new values.
func TestDetectChanges_RandomPairs(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	randomSnapshot := func() Snapshot {
		// Small ranges make equal fields likely, exercising the filtering.
		return Snapshot{
			Hours:   random.Intn(3),
			Minutes: random.Intn(3),
			Seconds: random.Intn(3),
			Tenths:  random.Intn(3),
		}
	}

	for i := 0; i < 1000; i++ {
		previous, current := randomSnapshot(), randomSnapshot()
		changes := DetectChanges(previous, current)

		var want []Change
		for _, f := range Fields {
			if previous.Get(f) != current.Get(f) {
				want = append(want, Change{Field: f, Old: previous.Get(f), New: current.Get(f)})
			}
		}
		assert.Equalf(t, want, changes, "expected changes for %v -> %v", previous, current)
		assert.Emptyf(t, DetectChanges(previous, previous), "expected no changes for identical snapshot %v", previous)
	}
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "tenths", Tenths.String())
	assert.Equal(t, "seconds", Seconds.String())
	assert.Equal(t, "minutes", Minutes.String())
	assert.Equal(t, "hours", Hours.String())
	assert.Equal(t, "Field(7)", Field(7).String())
}

func TestSnapshot_GetPanicsOnUnknownField(t *testing.T) {
	assert.Panics(t, func() { Snapshot{}.Get(Field(7)) })
}
