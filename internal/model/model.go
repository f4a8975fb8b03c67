// Package model defines the domain types used across the application.
package model

import "time"

// DateLayout is the calendar date format used for history and state.
const DateLayout = "2006-01-02"

// RetentionDays is the maximum age of kept history entries. The anti-repeat
// window must stay below it or pruning would defeat deduplication.
const RetentionDays = 400

// HistoryEntry records the card posted on a given day.
type HistoryEntry struct {
	Date string `json:"date"`
	Card string `json:"card"`
}

// Day parses the entry date. Entries written by hand or by older versions
// may carry malformed dates, so callers must handle the error.
func (e HistoryEntry) Day() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// State is the persisted bot state.
// LastPostedDate is empty when no scheduled post has happened yet.
type State struct {
	LastPostedDate string
	History        []HistoryEntry
}

// NewState returns an empty state.
func NewState() *State {
	return &State{History: []HistoryEntry{}}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	cp := &State{
		LastPostedDate: s.LastPostedDate,
		History:        make([]HistoryEntry, len(s.History)),
	}
	copy(cp.History, s.History)
	return cp
}

// DateOf formats the calendar date of t in its own location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight returns the calendar date of t as midnight UTC, which makes
// day arithmetic independent of the caller's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
