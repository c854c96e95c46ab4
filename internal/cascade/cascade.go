// Package cascade runs an ordered list of extraction strategies and
// accepts the first good-enough result. The content fetcher, the time
// resolver and the RSS adapter all share this shape.
package cascade

// Strategy produces a candidate value. A false second return means the
// strategy yielded nothing and the next one should be tried.
type Strategy[T any] func() (T, bool)

// First tries each strategy in order and returns the first candidate
// accepted by ok. Strategies that panic are not recovered here; they
// must absorb their own parse failures and report (zero, false).
func First[T any](strategies []Strategy[T], ok func(T) bool) (T, bool) {
	for _, s := range strategies {
		if s == nil {
			continue
		}
		v, found := s()
		if found && ok(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// MinLen is the common acceptance test: more than n runes. Trimming is
// the strategy's job.
func MinLen(n int) func(string) bool {
	return func(s string) bool { return len([]rune(s)) > n }
}
