package schedule

import (
	"errors"
	"fmt"
)

// ErrEmptyProgramFamily is raised when a zone's program-ref family has no
// eligible members to rotate through (§4.3, §7).
type ErrEmptyProgramFamily struct {
	ZoneID string
}

func (e *ErrEmptyProgramFamily) Error() string {
	return fmt.Sprintf("empty program family in zone %s", e.ZoneID)
}

// ErrDSTReject is raised when a zone's DST policy is "reject" and the
// broadcast date crosses a DST transition.
type ErrDSTReject struct {
	ZoneID        string
	BroadcastDate string
}

func (e *ErrDSTReject) Error() string {
	return fmt.Sprintf("DST transition on %s rejected for zone %s", e.BroadcastDate, e.ZoneID)
}

// Is lets callers use errors.Is(err, ErrEmptyProgramFamilyKind) style checks
// without depending on the ZoneID field.
var ErrEmptyProgramFamilyKind = errors.New("empty program family")

func (e *ErrEmptyProgramFamily) Unwrap() error { return ErrEmptyProgramFamilyKind }

var ErrDSTRejectKind = errors.New("dst transition rejected")

func (e *ErrDSTReject) Unwrap() error { return ErrDSTRejectKind }
