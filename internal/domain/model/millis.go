package model

import "time"

// MillisPtr converts a possibly-nil time into a possibly-nil Unix
// millisecond timestamp, the wire representation used throughout this
// package's *Data/*Update types.
func MillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
