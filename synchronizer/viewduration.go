package synchronizer

import (
	"math"
	"time"

	"github.com/kengeo/libra/modules"
)

type fixedViewDuration struct {
	duration time.Duration
}

// NewFixedViewDuration returns a ViewDuration with a fixed duration.
func NewFixedViewDuration(duration time.Duration) modules.ViewDuration {
	return &fixedViewDuration{
		duration: duration,
	}
}

// Duration returns the fixed duration.
func (f *fixedViewDuration) Duration() time.Duration {
	return f.duration
}

// ViewStarted does nothing for the fixed duration.
func (f *fixedViewDuration) ViewStarted() {}

// ViewSucceeded does nothing for the fixed duration.
func (f *fixedViewDuration) ViewSucceeded() {}

// ViewTimeout does nothing for the fixed duration.
func (f *fixedViewDuration) ViewTimeout() {}

// NewViewDuration returns a ViewDuration that approximates the round duration
// based on durations of previous rounds.
// sampleSize determines the number of previous rounds that should be considered.
// startTimeout determines the round duration of the first rounds.
// When a timeout occurs, the next round duration will be multiplied by the multiplier.
func NewViewDuration(sampleSize uint64, startTimeout, maxTimeout, multiplier float64) modules.ViewDuration {
	return &viewDuration{
		limit: sampleSize,
		mean:  startTimeout,
		max:   maxTimeout,
		mul:   multiplier,
	}
}

// viewDuration uses statistics from previous rounds to guess a good value for
// the round duration. It only takes a limited amount of measurements into
// account.
type viewDuration struct {
	mul       float64   // on failed rounds, multiply the current mean by this number (should be > 1)
	limit     uint64    // how many measurements should be included in mean
	count     uint64    // total number of measurements
	startTime time.Time // the start time for the current measurement
	mean      float64   // the mean round duration
	m2        float64   // sum of squares of differences from the mean
	prevM2    float64   // m2 calculated from the last period
	max       float64   // upper bound on round timeout
}

// ViewSucceeded calculates the duration of the round and updates the internal
// values used for mean and variance calculations.
func (v *viewDuration) ViewSucceeded() {
	if v.startTime.IsZero() {
		return
	}

	duration := float64(time.Since(v.startTime)) / float64(time.Millisecond)
	v.count++

	// Reset m2 occasionally such that we will pick up on changes in variance faster.
	// We store the m2 to prevM2, which will be used when calculating the variance.
	// This ensures that at least 'limit' measurements have contributed to the approximate variance.
	if v.count%v.limit == 0 {
		v.prevM2 = v.m2
		v.m2 = 0
	}

	var c float64
	if v.count > v.limit {
		c = float64(v.limit)
		// throw away one measurement
		v.mean -= v.mean / c
	} else {
		c = float64(v.count)
	}

	// Welford's algorithm
	d1 := duration - v.mean
	v.mean += d1 / c
	d2 := duration - v.mean
	v.m2 += d1 * d2
}

// ViewTimeout multiplies the current mean by the multiplier, increasing the
// duration of the next round.
func (v *viewDuration) ViewTimeout() {
	v.mean *= v.mul
}

// ViewStarted records the start time of the round.
func (v *viewDuration) ViewStarted() {
	v.startTime = time.Now()
}

// Duration returns the upper bound of the 95% confidence interval for the
// mean round duration.
func (v *viewDuration) Duration() time.Duration {
	conf := 1.96 // 95% confidence
	dev := float64(0)
	if v.count > 1 {
		c := float64(v.count)
		m2 := v.m2
		// The m2 that was reset at the start of the period is included so
		// that the variance is based on at least 'limit' samples.
		if v.count >= v.limit {
			c = float64(v.limit) + float64(v.count%v.limit)
			m2 += v.prevM2
		}
		dev = math.Sqrt(m2 / c)
	}

	duration := v.mean + dev*conf
	if v.max > 0 && duration > v.max {
		duration = v.max
	}

	return time.Duration(duration * float64(time.Millisecond))
}
