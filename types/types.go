package types

import (
	"fmt"
)

// LibraryStatus is the lifecycle state of the native engine for this process.
type LibraryStatus int

const (
	Unloaded LibraryStatus = iota
	Loaded
	LoadFailed
)

func (s LibraryStatus) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return fmt.Sprintf("LibraryStatus(%d)", int(s))
	}
}

func (s LibraryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LibraryState is a snapshot of the library handle. Reason is only set when
// Status is LoadFailed and keeps the loader's error message for diagnostics.
type LibraryState struct {
	Status  LibraryStatus `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Path    string        `json:"path,omitempty"`
	Backend Backend       `json:"backend,omitempty"`
}

func (s LibraryState) Loaded() bool {
	return s.Status == Loaded
}

// Stats counts native strings that crossed the boundary. Every acquired
// string must be released once, so Outstanding is zero whenever no call is
// in flight.
type Stats struct {
	Acquired uint64 `json:"acquired"`
	Released uint64 `json:"released"`
}

func (s Stats) Outstanding() int64 {
	return int64(s.Acquired) - int64(s.Released)
}

// EmptyResult is the canonical payload for "nothing to analyze".
const EmptyResult = "[]"
