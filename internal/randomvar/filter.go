package randomvar

// Filter is a sequence of N boolean lanes with the same deterministic-
// collapse optimization as RandomVariable.
type Filter struct {
	size          int
	deterministic bool
	value         bool
	lanes         []bool
}

// NewFilterDeterministic returns a Filter of the given size with every
// lane equal to v.
func NewFilterDeterministic(size int, v bool) Filter {
	return Filter{size: size, deterministic: true, value: v}
}

// NewFilterFromSlice copies lanes, collapsing if they all agree.
func NewFilterFromSlice(lanes []bool) Filter {
	cp := make([]bool, len(lanes))
	copy(cp, lanes)
	f := Filter{size: len(cp), lanes: cp}
	f.updateDeterministic()
	return f
}

func (f Filter) Size() int           { return f.size }
func (f Filter) Deterministic() bool { return f.deterministic }

// At returns lane k.
func (f Filter) At(k int) bool {
	if f.deterministic {
		return f.value
	}
	return f.lanes[k]
}

func (f *Filter) updateDeterministic() {
	if f.deterministic || f.size == 0 {
		return
	}
	first := f.lanes[0]
	for _, v := range f.lanes[1:] {
		if v != first {
			return
		}
	}
	f.value = first
	f.lanes = nil
	f.deterministic = true
}

func filterBinary(a, b Filter, f func(x, y bool) bool) Filter {
	size := a.size
	if size == 0 {
		size = b.size
	}
	if a.deterministic && b.deterministic {
		return NewFilterDeterministic(size, f(a.value, b.value))
	}
	out := make([]bool, size)
	for i := 0; i < size; i++ {
		out[i] = f(a.At(i), b.At(i))
	}
	return NewFilterFromSlice(out)
}

// And is the logical conjunction used to combine active masks.
func And(a, b Filter) Filter { return filterBinary(a, b, func(x, y bool) bool { return x && y }) }

// Or is the logical disjunction.
func Or(a, b Filter) Filter { return filterBinary(a, b, func(x, y bool) bool { return x || y }) }

// Not negates every lane.
func Not(a Filter) Filter {
	if a.deterministic {
		return NewFilterDeterministic(a.size, !a.value)
	}
	out := make([]bool, a.size)
	for i, v := range a.lanes {
		out[i] = !v
	}
	return NewFilterFromSlice(out)
}

// AllTrue reports whether every lane is true.
func (f Filter) AllTrue() bool {
	if f.deterministic {
		return f.value
	}
	for _, v := range f.lanes {
		if !v {
			return false
		}
	}
	return true
}

// AllFalse reports whether every lane is false.
func (f Filter) AllFalse() bool {
	if f.deterministic {
		return !f.value
	}
	for _, v := range f.lanes {
		if v {
			return false
		}
	}
	return true
}

func compare(a, b RandomVariable, cmp func(x, y float64) bool) Filter {
	size := a.size
	if size == 0 {
		size = b.size
	}
	if a.deterministic && b.deterministic {
		return NewFilterDeterministic(size, cmp(a.value, b.value))
	}
	out := make([]bool, size)
	for i := 0; i < size; i++ {
		out[i] = cmp(a.At(i), b.At(i))
	}
	return NewFilterFromSlice(out)
}

func Eq(a, b RandomVariable) Filter  { return compare(a, b, func(x, y float64) bool { return x == y }) }
func Neq(a, b RandomVariable) Filter { return compare(a, b, func(x, y float64) bool { return x != y }) }
func Lt(a, b RandomVariable) Filter  { return compare(a, b, func(x, y float64) bool { return x < y }) }
func Lte(a, b RandomVariable) Filter { return compare(a, b, func(x, y float64) bool { return x <= y }) }
func Gt(a, b RandomVariable) Filter  { return compare(a, b, func(x, y float64) bool { return x > y }) }
func Gte(a, b RandomVariable) Filter { return compare(a, b, func(x, y float64) bool { return x >= y }) }
