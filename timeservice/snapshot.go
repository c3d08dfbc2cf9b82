// Package timeservice samples the wall clock at a fixed interval, splits it
// into hours, minutes, seconds and tenths of a second, and notifies
// registered listeners whenever one of those fields changes.
package timeservice

import (
	"fmt"
	"time"
)

// Field identifies which part of the time of day changed.
type Field int

const (
	Tenths Field = iota
	Seconds
	Minutes
	Hours
)

// Fields lists every field in dispatch order: the most frequently changing
// field first, cascading up to hours.
var Fields = [...]Field{Tenths, Seconds, Minutes, Hours}

func (f Field) String() string {
	switch f {
	case Tenths:
		return "tenths"
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Snapshot holds the four fields at one sampled instant. Each field is only
// bounded on its own (hours 0-23, minutes and seconds 0-59, tenths 0-9).
type Snapshot struct {
	Hours   int
	Minutes int
	Seconds int
	Tenths  int
}

// SnapshotFromTime decomposes t, resolving the sub-second part to tenths.
func SnapshotFromTime(t time.Time) Snapshot {
	return Snapshot{
		Hours:   t.Hour(),
		Minutes: t.Minute(),
		Seconds: t.Second(),
		Tenths:  t.Nanosecond() / 100000000,
	}
}

// Get returns the value of field f.
func (s Snapshot) Get(f Field) int {
	switch f {
	case Tenths:
		return s.Tenths
	case Seconds:
		return s.Seconds
	case Minutes:
		return s.Minutes
	case Hours:
		return s.Hours
	default:
		panic(fmt.Sprintf("Snapshot.Get() expected a known field; got %v", f))
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%d", s.Hours, s.Minutes, s.Seconds, s.Tenths)
}

// Change is a single field transition between two snapshots.
type Change struct {
	Field Field
	Old   int
	New   int
}

// DetectChanges returns the fields that differ between previous and current,
// each once, ordered tenths, seconds, minutes, hours.
func DetectChanges(previous, current Snapshot) []Change {
	var changes []Change
	for _, f := range Fields {
		oldValue, newValue := previous.Get(f), current.Get(f)
		if oldValue != newValue {
			changes = append(changes, Change{Field: f, Old: oldValue, New: newValue})
		}
	}
	return changes
}
