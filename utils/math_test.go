package utils

import (
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestAngleDiffDeg(t *testing.T) {
	for _, tc := range []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{0, 180, 180},
		{90, 270, 180},
		{359, 1, 2},
		{45, 90, 45},
	} {
		test.That(t, AngleDiffDeg(tc.a, tc.b), test.ShouldAlmostEqual, tc.want)
	}
}

func TestSampleRandomIntRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := SampleRandomIntRange(3, 5, r)
		test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, 3)
		test.That(t, v, test.ShouldBeLessThanOrEqualTo, 5)
	}
}

func TestSampleDistinct(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	got := SampleDistinct(10, 4, r)
	test.That(t, got, test.ShouldHaveLength, 4)
	seen := map[int]bool{}
	for _, v := range got {
		test.That(t, seen[v], test.ShouldBeFalse)
		seen[v] = true
	}
	test.That(t, SampleDistinct(3, 10, r), test.ShouldHaveLength, 3)
}

