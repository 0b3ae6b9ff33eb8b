// Package auth implements the gateway's fast authentication and audit path
// (C6): extracting and verifying the caller's API key, enforcing the three
// operation scopes the gateway recognizes, and recording one traffic row per
// handled request.
//
// Key verification never compares a raw secret directly; every stored key is
// a salted bcrypt hash, and a caller-supplied secret is checked against every
// non-revoked, non-expired key in turn using bcrypt's own constant-time
// comparison. Which key (if any) matched is never logged.
package auth
