// Package snapshot pulls the current value of a portfolio resource over REST.
//
// A fetch never panics and never retries: every outcome, including transport
// errors, non-2xx responses and undecodable bodies, is reported through
// Result so the caller can leave the previous value in place.
package snapshot
