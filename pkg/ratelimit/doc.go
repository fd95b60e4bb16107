// Package ratelimit spaces consecutive requests on the client side.
//
// A Pacer never retries anything and never reacts to upstream throttling; an
// HTTP 429 is still surfaced to the caller as a fatal error. It only keeps a
// polite gap between requests when a requests-per-minute budget is configured.
//
// Usage:
//
//	pacer := ratelimit.NewPacer(30, 1) // one request every two seconds
//	if err := pacer.Wait(ctx); err != nil {
//	    return err // context cancelled
//	}
//	// send the request
//
// NewPacer(0, n) returns a pacer that never waits.
package ratelimit
