// Package session tears a session down: it clears stored credentials and
// sends the user to an unauthenticated location. It also defines the
// navigation and notice collaborators shared with the fault handler.
package session
