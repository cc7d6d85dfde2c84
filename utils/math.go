// Package utils contains small helpers shared across the perception packages.
package utils

import (
	"math"
	"math/rand"
)

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return float64(180) - math.Abs(math.Abs(math.Mod(a1-a2, 360))-float64(180))
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}

// SampleDistinct returns k distinct indices from [0, n) in random order. If k >= n
// every index is returned.
func SampleDistinct(n, k int, r *rand.Rand) []int {
	if k >= n {
		return r.Perm(n)
	}
	return r.Perm(n)[:k]
}

