// Package btreeerr implements the error taxonomy of spec §7
// (NoSpace, JournalFull, JournalError, Again, Restart, ReserveExhausted,
// Fatal) as structured, wrapped errors built on cockroachdb/errors so
// callers can use errors.Is/errors.As through any number of %w-wrapping
// layers, the way the teacher's dependency graph already carries
// cockroachdb/errors for pebble's own error surface.
package btreeerr

import (
	"github.com/cockroachdb/errors"
)

// Kind is the taxonomy tag from spec §7.
type Kind int

const (
	_ Kind = iota
	// NoSpace: disk reservation could not be satisfied.
	NoSpace
	// JournalFull: journal pre-reservation could not be satisfied.
	JournalFull
	// JournalError: fatal-until-unmount; topology ops short-circuit.
	JournalError
	// Again: resource momentarily unavailable; retry after waiter fires.
	Again
	// Restart: lock lost, caller must redescend from the root.
	Restart
	// ReserveExhausted: node reserve pool could not satisfy a request.
	ReserveExhausted
	// Fatal: an invariant was violated; the filesystem must abort.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case NoSpace:
		return "NoSpace"
	case JournalFull:
		return "JournalFull"
	case JournalError:
		return "JournalError"
	case Again:
		return "Again"
	case Restart:
		return "Restart"
	case ReserveExhausted:
		return "ReserveExhausted"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// kindError is the sentinel carrying a Kind; errors.Is compares by Kind,
// not by pointer identity, so every New(k, ...) call for the same Kind
// compares equal regardless of message.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.kind.String() + ": " + e.msg }

// Is implements errors.Is: two kindErrors match iff their Kind matches.
func (e *kindError) Is(target error) bool {
	other, ok := target.(*kindError)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// New constructs an error of the given kind with a formatted message.
func New(k Kind, format string, args ...interface{}) error {
	return &kindError{kind: k, msg: errors.Newf(format, args...).Error()}
}

// sentinel instances, one per kind, used with errors.Is.
var (
	ErrNoSpace          = &kindError{kind: NoSpace, msg: "no space"}
	ErrJournalFull      = &kindError{kind: JournalFull, msg: "journal full"}
	ErrJournalError     = &kindError{kind: JournalError, msg: "journal in error state"}
	ErrAgain            = &kindError{kind: Again, msg: "resource unavailable, retry after waiter"}
	ErrRestart          = &kindError{kind: Restart, msg: "lock lost, redescend"}
	ErrReserveExhausted = &kindError{kind: ReserveExhausted, msg: "node reserve pool exhausted"}
	ErrFatal            = &kindError{kind: Fatal, msg: "invariant violated"}
)

// KindOf extracts the Kind carried by err, walking wrapped causes via
// errors.As. ok is false if err (or any wrapped cause) does not carry a
// Kind.
func KindOf(err error) (Kind, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return 0, false
}

// Is reports whether err is of the given kind, looking through wrapping.
func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// Wrap attaches context to err while preserving its Kind for errors.Is.
func Wrap(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// AgainToRestart converts an Again error to Restart, per spec §7
// "Again is converted to Restart in NOUNLOCK callers (who cannot park)".
func AgainToRestart(err error) error {
	if Is(err, Again) {
		return New(Restart, "NOUNLOCK caller cannot wait: %v", err)
	}
	return err
}
