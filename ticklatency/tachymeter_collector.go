package ticklatency

import (
	"github.com/jamiealquiza/tachymeter"
	"time"
)

// tachymeterCollector uses the jamiealquiza/tachymeter library to capture and
// calculate timings locally over a fixed-size window. It is the default
// collector of the time service as memory stays bounded however long the
// service runs.
type tachymeterCollector struct {
	tach *tachymeter.Tachymeter
}

func NewTachymeterCollector(window int) *tachymeterCollector {
	return &tachymeterCollector{tach: tachymeter.New(&tachymeter.Config{
		Size: window,
		// Aggregate may be called by the control API while the tick loop adds.
		Safe: true,
	})}
}

func (c *tachymeterCollector) Add(t time.Duration) {
	c.tach.AddTime(t)
}

func (c *tachymeterCollector) Len() int {
	return c.tach.Calc().Samples
}

func (c *tachymeterCollector) Aggregate() *Aggregation {
	metrics := c.tach.Calc()
	// tachymeter does not expose a standard deviation, so StdDev is left zero.
	return &Aggregation{
		P50:   metrics.Time.P50,
		P75:   metrics.Time.P75,
		P95:   metrics.Time.P95,
		Count: metrics.Samples,
	}
}

func (c *tachymeterCollector) Reset() {
	c.tach.Reset()
}
