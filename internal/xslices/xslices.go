// Package xslices holds slice helpers that the standard library and
// x/exp/slices do not provide.
package xslices

func Filter[T any, S ~[]T](s S, f func(T) bool) (r S) {
	r = make(S, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// Remove returns s without any element equal to v. The order of the
// remaining elements is preserved.
func Remove[T comparable, S ~[]T](s S, v T) S {
	return Filter(s, func(e T) bool { return e != v })
}
