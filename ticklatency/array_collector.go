package ticklatency

import (
	"fmt"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"math"
	"sync"
	"time"
)

// arrayCollector keeps every tick processing time since the last Reset. As
// storage and computation are both O(n), it suits diagnosis sessions where
// the jitter (standard deviation) is needed.
type arrayCollector struct {
	tickTimesSeconds    []float64
	tickTimesSecondsMux *sync.Mutex
}

func NewArrayCollector() *arrayCollector {
	return &arrayCollector{
		tickTimesSeconds:    []float64{},
		tickTimesSecondsMux: &sync.Mutex{},
	}
}

// All gets a copy of all the tick processing times collected, in seconds.
func (c *arrayCollector) All() []float64 {
	c.tickTimesSecondsMux.Lock()
	defer c.tickTimesSecondsMux.Unlock()
	times := make([]float64, len(c.tickTimesSeconds))
	copy(times, c.tickTimesSeconds)
	return times
}

func (c *arrayCollector) Add(t time.Duration) {
	c.tickTimesSecondsMux.Lock()
	c.tickTimesSeconds = append(c.tickTimesSeconds, Seconds(t))
	c.tickTimesSecondsMux.Unlock()
}

func (c *arrayCollector) Len() int {
	c.tickTimesSecondsMux.Lock()
	defer c.tickTimesSecondsMux.Unlock()
	return len(c.tickTimesSeconds)
}

func (c *arrayCollector) Aggregate() *Aggregation {
	// The stats package creates a copy of the array, so we must hold onto the
	// mutex while calculations are being made.
	c.tickTimesSecondsMux.Lock()
	defer c.tickTimesSecondsMux.Unlock()

	// The stats package requires input arrays to be non-empty.
	if len(c.tickTimesSeconds) == 0 {
		return &Aggregation{}
	}

	p50, err := stats.Median(c.tickTimesSeconds)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p50: %w", err))
	}
	p75, err := stats.PercentileNearestRank(c.tickTimesSeconds, 75)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p75: %w", err))
	}
	p95, err := stats.PercentileNearestRank(c.tickTimesSeconds, 95)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p95: %w", err))
	}

	// gonum returns NaN for a single sample; a single sample has no spread.
	var stdDev float64
	if len(c.tickTimesSeconds) > 1 {
		stdDev = stat.StdDev(c.tickTimesSeconds, nil)
	}

	return &Aggregation{
		P50:    toDuration(p50),
		P75:    toDuration(p75),
		P95:    toDuration(p95),
		StdDev: toDuration(stdDev),
		Count:  len(c.tickTimesSeconds),
	}
}

func (c *arrayCollector) Reset() {
	c.tickTimesSecondsMux.Lock()
	c.tickTimesSeconds = []float64{}
	c.tickTimesSecondsMux.Unlock()
}

func toDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
