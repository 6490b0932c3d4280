// Package presence tracks which users currently have a live connection.
//
// The registry maps user id to the user's current connection and is the
// sole source for presence queries. It deliberately holds at most one
// connection per user: registering again overwrites the prior entry, and
// unregistering compares the handle before removing so a stale disconnect
// from a superseded connection cannot erase a newer registration.
//
// Presence is strictly process-local. It says nothing about room
// authorization; that is re-derived from conversation ownership.
package presence
