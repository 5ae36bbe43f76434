// Package refresh exchanges refresh tokens for new access tokens.
//
// Concurrent refreshes for the same refresh token are coalesced into a single
// exchange; every waiter observes the same result.
package refresh
