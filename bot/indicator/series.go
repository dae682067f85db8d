package indicator

import "golang.org/x/exp/constraints"

// Series is a time series, oldest value first.
type Series[T constraints.Ordered] []T

// Last returns the value pos steps from the end; 0 is the latest.
func (s Series[T]) Last(pos int) T {
	return s[len(s)-1-pos]
}

// LastValues returns the trailing size values.
func (s Series[T]) LastValues(size int) Series[T] {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Crossover reports whether s moved above ref on the latest step.
func (s Series[T]) Crossover(ref Series[T]) bool {
	if len(s) < 2 || len(ref) < 2 {
		return false
	}
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder reports whether s moved below ref on the latest step.
func (s Series[T]) Crossunder(ref Series[T]) bool {
	if len(s) < 2 || len(ref) < 2 {
		return false
	}
	return s.Last(0) < ref.Last(0) && s.Last(1) >= ref.Last(1)
}
