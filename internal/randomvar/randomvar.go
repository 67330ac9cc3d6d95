// Package randomvar implements vectorized numeric and boolean lanes across
// Monte-Carlo samples, with a deterministic-collapse optimization that
// keeps homogeneous values in O(1) storage until a per-lane write forces
// expansion.
package randomvar

import "math"

// timeUnset is the sentinel tag for a RandomVariable that has not been
// re-stamped by a model primitive since its last assignment.
const timeUnset = math.MaxFloat64

// RandomVariable is a sequence of N real-valued lanes. When deterministic
// is true, value holds the single shared lane value and lanes is nil.
type RandomVariable struct {
	size          int
	deterministic bool
	value         float64
	lanes         []float64
	timeTag       float64
}

// NewDeterministic returns a RandomVariable of the given size with every
// lane equal to v.
func NewDeterministic(size int, v float64) RandomVariable {
	return RandomVariable{size: size, deterministic: true, value: v, timeTag: timeUnset}
}

// NewFromSlice copies lanes into a general-form RandomVariable; it is
// collapsed immediately if all lanes happen to coincide.
func NewFromSlice(lanes []float64) RandomVariable {
	cp := make([]float64, len(lanes))
	copy(cp, lanes)
	rv := RandomVariable{size: len(cp), lanes: cp, timeTag: timeUnset}
	rv.UpdateDeterministic()
	return rv
}

// Size returns the fixed lane count N.
func (r RandomVariable) Size() int { return r.size }

// Deterministic reports whether the current internal form is collapsed.
func (r RandomVariable) Deterministic() bool { return r.deterministic }

// TimeTag returns the model time stamp, or false if unset.
func (r RandomVariable) TimeTag() (float64, bool) {
	if r.timeTag == timeUnset {
		return 0, false
	}
	return r.timeTag, true
}

// WithTimeTag returns a copy of r stamped with t.
func (r RandomVariable) WithTimeTag(t float64) RandomVariable {
	r.timeTag = t
	return r
}

// At returns the value of lane k. A deterministic variable returns its
// value for any k; in general form an out-of-range k panics; callers within
// this module always check bounds first via the script engine.
func (r RandomVariable) At(k int) float64 {
	if r.deterministic {
		return r.value
	}
	return r.lanes[k]
}

// Set demotes r to general form (if needed) and assigns lane k.
func (r *RandomVariable) Set(k int, v float64) {
	r.expand()
	r.lanes[k] = v
	r.UpdateDeterministic()
}

func (r *RandomVariable) expand() {
	if !r.deterministic {
		return
	}
	lanes := make([]float64, r.size)
	for i := range lanes {
		lanes[i] = r.value
	}
	r.lanes = lanes
	r.deterministic = false
}

// UpdateDeterministic re-scans the general-form lanes and collapses r back
// to deterministic form if every lane is equal.
func (r *RandomVariable) UpdateDeterministic() {
	if r.deterministic || r.size == 0 {
		return
	}
	first := r.lanes[0]
	for _, v := range r.lanes[1:] {
		if v != first {
			return
		}
	}
	r.value = first
	r.lanes = nil
	r.deterministic = true
}

func binaryOp(a, b RandomVariable, f func(x, y float64) float64) RandomVariable {
	size := a.size
	if size == 0 {
		size = b.size
	}
	if a.deterministic && b.deterministic {
		return NewDeterministic(size, f(a.value, b.value))
	}
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = f(a.At(i), b.At(i))
	}
	return NewFromSlice(out)
}

func unaryOp(a RandomVariable, f func(x float64) float64) RandomVariable {
	if a.deterministic {
		return NewDeterministic(a.size, f(a.value))
	}
	out := make([]float64, a.size)
	for i, v := range a.lanes {
		out[i] = f(v)
	}
	return NewFromSlice(out)
}

func Add(a, b RandomVariable) RandomVariable {
	return binaryOp(a, b, func(x, y float64) float64 { return x + y })
}
func Sub(a, b RandomVariable) RandomVariable {
	return binaryOp(a, b, func(x, y float64) float64 { return x - y })
}
func Mul(a, b RandomVariable) RandomVariable {
	return binaryOp(a, b, func(x, y float64) float64 { return x * y })
}
func Div(a, b RandomVariable) RandomVariable {
	return binaryOp(a, b, func(x, y float64) float64 { return x / y })
}
func Pow(a, b RandomVariable) RandomVariable { return binaryOp(a, b, math.Pow) }
func Min(a, b RandomVariable) RandomVariable { return binaryOp(a, b, math.Min) }
func Max(a, b RandomVariable) RandomVariable { return binaryOp(a, b, math.Max) }

func Neg(a RandomVariable) RandomVariable       { return unaryOp(a, func(x float64) float64 { return -x }) }
func Abs(a RandomVariable) RandomVariable       { return unaryOp(a, math.Abs) }
func Exp(a RandomVariable) RandomVariable       { return unaryOp(a, math.Exp) }
func Log(a RandomVariable) RandomVariable       { return unaryOp(a, math.Log) }
func Sqrt(a RandomVariable) RandomVariable      { return unaryOp(a, math.Sqrt) }
func NormalCdf(a RandomVariable) RandomVariable { return unaryOp(a, normCdf) }
func NormalPdf(a RandomVariable) RandomVariable { return unaryOp(a, normPdf) }

func normCdf(x float64) float64 { return 0.5 * (1 + math.Erf(x/math.Sqrt2)) }
func normPdf(x float64) float64 { return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi) }

// Select implements the conditional-result primitive: lane k is thenV[k]
// when mask[k] holds, otherwise elseV[k].
func Select(mask Filter, thenV, elseV RandomVariable) RandomVariable {
	size := thenV.size
	if mask.Deterministic() {
		if mask.At(0) {
			return thenV
		}
		return elseV
	}
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		if mask.At(i) {
			out[i] = thenV.At(i)
		} else {
			out[i] = elseV.At(i)
		}
	}
	return NewFromSlice(out)
}
