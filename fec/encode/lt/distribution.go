package lt

import (
	"fmt"
	"math"
)

// Distribution is a robust soliton degree distribution truncated to
// 1..MaxDegree(). It is read-only after construction.
type Distribution struct {
	n   int
	pmf []float64 // pmf[d-1] is the probability of degree d
	cdf []float64
}

// NewDistribution builds the robust soliton distribution for a source block of
// n symbols, truncated to degrees 1..min(maxDegree, n) and renormalized. c is
// the spread parameter and delta the decoder failure probability.
func NewDistribution(n, maxDegree int, c, delta float64) (*Distribution, error) {
	if n <= 0 {
		return nil, fmt.Errorf("source block size must be positive")
	}
	if maxDegree <= 0 {
		return nil, fmt.Errorf("max degree must be positive")
	}
	if c <= 0 || delta <= 0 || delta >= 1 {
		return nil, fmt.Errorf("invalid soliton parameters c=%v delta=%v", c, delta)
	}

	d := maxDegree
	if n < d {
		d = n
	}
	fn := float64(n)
	r := c * math.Log(fn/delta) * math.Sqrt(fn)

	pivot := int(math.Floor(fn / r))
	if pivot < 1 {
		pivot = 1
	}
	if pivot > d {
		pivot = d
	}
	spike := r * math.Log(r/delta) / fn
	if spike < 0 {
		spike = 0
	}

	pmf := make([]float64, d)
	var total float64
	for i := 1; i <= d; i++ {
		fi := float64(i)
		var p float64
		if i == 1 {
			p = 1 / fn
		} else {
			p = 1 / (fi * (fi - 1))
		}
		switch {
		case i < pivot:
			p += r / (fi * fn)
		case i == pivot:
			p += spike
		}
		pmf[i-1] = p
		total += p
	}

	cdf := make([]float64, d)
	var acc float64
	for i := range pmf {
		pmf[i] /= total
		acc += pmf[i]
		cdf[i] = acc
	}
	cdf[d-1] = 1

	return &Distribution{n: n, pmf: pmf, cdf: cdf}, nil
}

// MaxDegree returns the largest degree with nonzero support.
func (d *Distribution) MaxDegree() int {
	return len(d.pmf)
}

// Probability returns the probability of the given degree.
func (d *Distribution) Probability(degree int) float64 {
	if degree < 1 || degree > len(d.pmf) {
		return 0
	}
	return d.pmf[degree-1]
}

// Mean returns the expected degree.
func (d *Distribution) Mean() float64 {
	var m float64
	for i, p := range d.pmf {
		m += float64(i+1) * p
	}
	return m
}

// Sample draws a degree by inverting the CDF at rng.Float64().
func (d *Distribution) Sample(rng Source) int {
	u := rng.Float64()
	for i, c := range d.cdf {
		if u < c {
			return i + 1
		}
	}
	return len(d.cdf)
}
