package ticklatency

import "time"

type Aggregation struct {
	P50    time.Duration // P50 is the 50th percentile tick processing time.
	P75    time.Duration // P75 is the 75th percentile tick processing time.
	P95    time.Duration // P95 is the 95th percentile tick processing time.
	StdDev time.Duration // StdDev approximates tick jitter; zero if the collector cannot compute it.
	Count  int           // Count is the number of samples aggregated.
}

type Collector interface {
	Add(t time.Duration)     // Add sends a new tick processing time to the collector.
	Len() int                // Len gets the number of processing times collected.
	Aggregate() *Aggregation // Aggregate calculates aggregate metrics since the last Reset.
	Reset()                  // Reset resets the state of the collector for reuse.
}

// Seconds converts d to fractional seconds, the unit the logger works in.
func Seconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}
