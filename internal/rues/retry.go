package rues

import "time"

// retryExtract polls fn until it reports success, up to attempts tries
// with a fixed delay between them. Tab panels on the registry site render
// lazily after their trigger is clicked, so a single read often races the
// content.
func retryExtract[T any](attempts int, delay time.Duration, fn func() (T, bool)) (T, bool) {
	var last T
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(delay)
		}
		if v, ok := fn(); ok {
			return v, true
		}
	}
	return last, false
}
