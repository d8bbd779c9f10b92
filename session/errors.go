package session

import "errors"

var (
	// ErrNoCookie is returned when the request carries no valid session cookie.
	// A tampered cookie is reported the same way as a missing one.
	ErrNoCookie = errors.New("no session cookie")

	// ErrNotFound is returned when a session cannot be found in the store.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has passed its expiration time.
	// The record is deleted from the store before this error is reported.
	ErrExpired = errors.New("session has expired")

	// ErrDuplicateSession is returned when creating a session whose identifier
	// already exists in the store.
	ErrDuplicateSession = errors.New("session already exists")
)
