// Package ann defines the contract shared by both ANN index designs
// (IHCI and BLAST): the query result shape, the common Index interface,
// and the error taxonomy every core operation reports through.
package ann

import (
	"errors"
	"fmt"

	"github.com/veccore/annengine/pkg/vecid"
)

// ErrorKind classifies a core error per the taxonomy: InvalidArgument,
// DimensionMismatch, InvalidID.
type ErrorKind int

const (
	InvalidArgument ErrorKind = iota
	DimensionMismatch
	InvalidID
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case DimensionMismatch:
		return "DimensionMismatch"
	case InvalidID:
		return "InvalidID"
	default:
		return "Unknown"
	}
}

// Error is the error type every core operation returns. Kind lets
// callers (e.g. the REST layer) map to a status code without string
// matching.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ErrInvalidArgument builds an InvalidArgument error.
func ErrInvalidArgument(format string, args ...interface{}) error {
	return newErr(InvalidArgument, format, args...)
}

// ErrDimensionMismatch builds a DimensionMismatch error.
func ErrDimensionMismatch(expected, got int) error {
	return newErr(DimensionMismatch, "dimension mismatch: expected %d, got %d", expected, got)
}

// ErrInvalidID builds an InvalidID error.
func ErrInvalidID(id vecid.ID) error {
	return newErr(InvalidID, "invalid vector id: %s", id)
}

// KindOf extracts the ErrorKind from err, defaulting to InvalidArgument
// for errors the core did not originate.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InvalidArgument
}

// Result is a single (id, distance) pair, ascending-distance ordered
// with ties broken by ascending id.
type Result struct {
	ID       vecid.ID
	Distance float32
}

// Index is the contract both IHCI and BLAST satisfy.
type Index interface {
	// Insert descends/links the vector identified by id into the index.
	Insert(id vecid.ID) error
	// Query returns the k nearest results to query, ascending by distance.
	Query(query []float32, k int) ([]Result, error)
	// Len reports how many vectors have been inserted.
	Len() int
	// Dimension reports the vector dimension the index was built for.
	Dimension() int
}

// TraceEventKind enumerates the BLAST diagnostic trace event kinds.
type TraceEventKind string

const (
	EventPopCandidate TraceEventKind = "pop_candidate"
	EventSetCurrent   TraceEventKind = "set_current"
	EventAddCandidate TraceEventKind = "add_candidate"
	EventScanVector   TraceEventKind = "scan_vector"
	EventTerminate    TraceEventKind = "terminate"
)

// AddReason classifies why a candidate entered the BLAST trace.
type AddReason string

const (
	ReasonSeed     AddReason = "seed"
	ReasonChild    AddReason = "child"
	ReasonNeighbor AddReason = "neighbor"
)

// TraceEvent is one ordered record in a BLAST query trace.
type TraceEvent struct {
	Kind     TraceEventKind
	NodePath string // "V<index>" for vectors, slash-delimited path for buckets
	Distance float32
	Reason   AddReason // only meaningful for EventAddCandidate
	Term     string    // only meaningful for EventTerminate: "pq_empty" | "max_visits"
}

// Counters accumulates summary statistics for a traced query.
type Counters struct {
	Popped         int
	CandidatesAdded int
	Scanned        int
}
