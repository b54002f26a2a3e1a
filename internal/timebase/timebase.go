// Package timebase implements rational timestamp conversion between the
// arbitrary timescales a container or codec may use (stream timebase,
// 90kHz presentation clock, audio sample rate) without floating point.
package timebase

import "math/big"

// Rational is a timescale expressed as a fraction (Num/Den), matching the
// way container formats express a stream timebase (e.g. 1/90000).
type Rational struct {
	Num int64
	Den int64
}

// Rescale converts a timestamp expressed in the "from" timebase into the
// equivalent timestamp in the "to" timebase: ts * (from.Num/from.Den) /
// (to.Num/to.Den), computed with a big.Int intermediate so the cross
// multiplication never overflows int64 regardless of the magnitude of ts
// or the two timebases. Rounds to nearest, matching how tfdt/trun fields
// must line up exactly across segment boundaries (no accumulated drift).
func Rescale(ts int64, from, to Rational) int64 {
	if from.Den == 0 || to.Den == 0 || from == to {
		return ts
	}

	num := big.NewInt(ts)
	num.Mul(num, big.NewInt(from.Num))
	num.Mul(num, big.NewInt(to.Den))

	den := big.NewInt(from.Den)
	den.Mul(den, big.NewInt(to.Num))

	return divRound(num, den)
}

// divRound performs num/den rounded to nearest, handling negative values
// and preserving sign correctly (round-half-away-from-zero).
func divRound(num, den *big.Int) int64 {
	if den.Sign() == 0 {
		return 0
	}

	neg := num.Sign() < 0 != (den.Sign() < 0)
	n := new(big.Int).Abs(num)
	d := new(big.Int).Abs(den)

	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	// round half up: if 2*r >= d, bump quotient
	twiceR := new(big.Int).Lsh(r, 1)
	if twiceR.Cmp(d) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	if neg {
		q.Neg(q)
	}
	return q.Int64()
}

// PTSToSeconds converts a presentation timestamp expressed in tb into
// seconds, for human-facing values like EXTINF durations.
func PTSToSeconds(pts int64, tb Rational) float64 {
	if tb.Num == 0 {
		return 0
	}
	return float64(pts) * float64(tb.Num) / float64(tb.Den)
}

// SecondsToPTS converts a duration in seconds into a presentation
// timestamp expressed in tb.
func SecondsToPTS(seconds float64, tb Rational) int64 {
	if tb.Num == 0 {
		return 0
	}
	return int64(seconds*float64(tb.Den)/float64(tb.Num) + 0.5)
}

// PTSToMillis converts a PTS in tb to milliseconds, used for WebVTT cue
// timestamps which are specified to millisecond precision.
func PTSToMillis(pts int64, tb Rational) int64 {
	return Rescale(pts, tb, Rational{Num: 1, Den: 1000})
}
