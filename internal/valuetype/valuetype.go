// Package valuetype implements the tagged ValueType union and the Context
// scalar/array variable store the script engine operates on.
package valuetype

import (
	"fmt"
	"time"

	"github.com/wyfcoding/ore/internal/randomvar"
)

// Kind is the closed discriminant for ValueType.
type Kind int8

const (
	KindNumber Kind = iota
	KindFilter
	KindEvent
	KindCurrency
	KindIndex
	KindDayCounter
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindFilter:
		return "Filter"
	case KindEvent:
		return "Event"
	case KindCurrency:
		return "Currency"
	case KindIndex:
		return "Index"
	case KindDayCounter:
		return "DayCounter"
	}
	return "Unknown"
}

// ValueType is a tagged union over Number, Filter, Event, Currency, Index,
// DayCounter. Only one payload field is meaningful per Kind.
type ValueType struct {
	Kind     Kind
	Number   randomvar.RandomVariable
	Filter   randomvar.Filter
	Event    time.Time
	Currency string
	Index    string
	DayCount string
}

func FromNumber(v randomvar.RandomVariable) ValueType { return ValueType{Kind: KindNumber, Number: v} }
func FromFilter(v randomvar.Filter) ValueType         { return ValueType{Kind: KindFilter, Filter: v} }
func FromEvent(t time.Time) ValueType                 { return ValueType{Kind: KindEvent, Event: t} }
func FromCurrency(c string) ValueType                 { return ValueType{Kind: KindCurrency, Currency: c} }
func FromIndex(i string) ValueType                    { return ValueType{Kind: KindIndex, Index: i} }
func FromDayCounter(d string) ValueType               { return ValueType{Kind: KindDayCounter, DayCount: d} }

// AssignableTo reports whether a value of kind src may be assigned into a
// target of kind dst: same-kind always allowed; Event/Currency/
// Index/DayCounter targets additionally accept a compatible constant of
// the same kind (there is no cross-kind constant coercion in this engine,
// so this reduces to kind equality — kept as a named predicate because the
// engine's assignment path calls it explicitly, matching the spec's
// "type-safe assign" language).
func AssignableTo(src, dst Kind) bool {
	return src == dst
}

// CheckNumeric returns an error unless v is a Number.
func (v ValueType) CheckNumeric() (randomvar.RandomVariable, error) {
	if v.Kind != KindNumber {
		return randomvar.RandomVariable{}, fmt.Errorf("expected Number, got %s", v.Kind)
	}
	return v.Number, nil
}

// CheckFilter returns an error unless v is a Filter.
func (v ValueType) CheckFilter() (randomvar.Filter, error) {
	if v.Kind != KindFilter {
		return randomvar.Filter{}, fmt.Errorf("expected Filter, got %s", v.Kind)
	}
	return v.Filter, nil
}

// CheckEvent returns an error unless v is an Event.
func (v ValueType) CheckEvent() (time.Time, error) {
	if v.Kind != KindEvent {
		return time.Time{}, fmt.Errorf("expected Event, got %s", v.Kind)
	}
	return v.Event, nil
}

// CheckCurrency returns an error unless v is a Currency.
func (v ValueType) CheckCurrency() (string, error) {
	if v.Kind != KindCurrency {
		return "", fmt.Errorf("expected Currency, got %s", v.Kind)
	}
	return v.Currency, nil
}

// CheckIndex returns an error unless v is an Index.
func (v ValueType) CheckIndex() (string, error) {
	if v.Kind != KindIndex {
		return "", fmt.Errorf("expected Index, got %s", v.Kind)
	}
	return v.Index, nil
}
