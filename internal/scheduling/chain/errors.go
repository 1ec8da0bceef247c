package chain

import (
	"errors"
	"fmt"
)

var (
	ErrEndOfSequence        = errors.New("end of time sequence reached")
	ErrBlockedDate          = errors.New("chain intersects a blocked date")
	ErrChainGap             = errors.New("non-available slot breaks the chain")
	ErrTimeNotInSequence    = errors.New("anchor time is not part of the time sequence")
	ErrInvalidRequiredCount = errors.New("required slot count must be at least 1")
)

type Reason string

const (
	ReasonEndOfSequence     Reason = "end_of_sequence"
	ReasonBlockedDate       Reason = "blocked_date"
	ReasonChainGap          Reason = "chain_gap"
	ReasonTimeNotInSequence Reason = "time_not_in_sequence"
)

var reasonSentinels = map[Reason]error{
	ReasonEndOfSequence:     ErrEndOfSequence,
	ReasonBlockedDate:       ErrBlockedDate,
	ReasonChainGap:          ErrChainGap,
	ReasonTimeNotInSequence: ErrTimeNotInSequence,
}

// ResolutionError describes why a chain could not be built. It matches the
// sentinel for its Reason under errors.Is.
type ResolutionError struct {
	Reason Reason
	Date   string
	// Time is the offending time of day. Empty for EndOfSequence.
	Time string
}

func (e *ResolutionError) Error() string {
	base := reasonSentinels[e.Reason]
	if base == nil {
		base = errors.New(string(e.Reason))
	}
	if e.Time != "" {
		return fmt.Sprintf("%v: date %s time %s", base, e.Date, e.Time)
	}
	return fmt.Sprintf("%v: date %s", base, e.Date)
}

func (e *ResolutionError) Is(target error) bool {
	return reasonSentinels[e.Reason] == target
}

// AsResolutionError unwraps err into a *ResolutionError when possible.
func AsResolutionError(err error) (*ResolutionError, bool) {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
