// Package storage persists reminders and weekly announcement configs.
//
// The engine itself owns no state: the poller reads due records here,
// fires them, and writes the resulting state back. Timestamps are
// stored as UTC epoch milliseconds so the due predicate is a plain
// integer comparison.
package storage
