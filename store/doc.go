// Package store provides persistent implementations of core.Store: an
// in-memory store for tests and embedding, and an SQL store over SQLite.
//
// Both stores are idempotent for a repeated message id, so a retried append
// never duplicates history.
package store
