// SPDX-License-Identifier: MIT
package transfer

import "strings"

// Stage is a pointwise or block-wise operation on the decoded N-sample buffer.
// Apply works in place and must not allocate or block.
type Stage interface {
	Apply(buf []float64)
	Name() string
}

// Compile-time checks for interface implementations.
var (
	_ Stage = Identity{}
	_ Stage = SoftClip{}
	_ Stage = Gate{}
	_ Stage = Delta{}
	_ Stage = Amplify{}
	_ Stage = Chain{}
)

// Identity leaves the buffer untouched.
type Identity struct{}

func (Identity) Apply([]float64) {}
func (Identity) Name() string { return "identity" }

// SoftClip divides values inside the linear region |x| < Linear by Slope and
// pulls values outside it toward ±1 with the same slope.
type SoftClip struct {
	Linear float64
	Slope  float64
}

func (s SoftClip) Apply(buf []float64) {
	for i, x := range buf {
		switch {
		case x*x < s.Linear*s.Linear:
			buf[i] = x / s.Slope
		case x > 0:
			buf[i] = 1 + (x-1)/s.Slope
		default:
			buf[i] = -1 + (x+1)/s.Slope
		}
	}
}

func (SoftClip) Name() string { return "softclip" }

// Gate quantizes every value to -1, 0 or +1 around ±Threshold.
type Gate struct {
	Threshold float64
}

func (g Gate) Apply(buf []float64) {
	for i, x := range buf {
		switch {
		case x > g.Threshold:
			buf[i] = 1
		case x < -g.Threshold:
			buf[i] = -1
		default:
			buf[i] = 0
		}
	}
}

func (Gate) Name() string { return "gate" }

// Delta replaces the buffer with a unit impulse at position 0, so the encoded
// output is the codec's own impulse response.
type Delta struct{}

func (Delta) Apply(buf []float64) {
	clear(buf)
	if len(buf) > 0 {
		buf[0] = 1
	}
}

func (Delta) Name() string { return "delta" }

// Amplify multiplies every value by Gain.
type Amplify struct {
	Gain float64
}

func (a Amplify) Apply(buf []float64) {
	for i := range buf {
		buf[i] *= a.Gain
	}
}

func (Amplify) Name() string { return "amplify" }

// Chain applies its stages in order.
type Chain []Stage

func (c Chain) Apply(buf []float64) {
	for _, s := range c {
		s.Apply(buf)
	}
}

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, "|")
}
