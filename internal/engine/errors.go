package engine

import "errors"

// Kind classifies rejections so callers can react appropriately: wait out a
// window, re-authenticate, top up funds, or give up.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindState
	KindTiming
	KindAuthorization
	KindDuplicate
	KindFunds
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindTiming:
		return "timing"
	case KindAuthorization:
		return "authorization"
	case KindDuplicate:
		return "duplicate"
	case KindFunds:
		return "funds"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Every rejected operation reports the specific invariant that blocked it,
// never a generic failure. Operations wrap these sentinels with context.
var (
	ErrInvalidConfig      = errors.New("invalid tournament configuration")
	ErrWrongState         = errors.New("operation not allowed in current state")
	ErrRegistrationClosed = errors.New("registration window closed")
	ErrRegistrationOpen   = errors.New("registration window still open")
	ErrFull               = errors.New("tournament is full")
	ErrAlreadyJoined      = errors.New("identity already joined")
	ErrNotAParticipant    = errors.New("identity is not a participant")
	ErrAlreadySubmitted   = errors.New("score already submitted")
	ErrInvalidWinners     = errors.New("invalid winners list")
	ErrNotAuthorized      = errors.New("caller is not the tournament creator")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrFunds              = errors.New("asset transfer failed")
	ErrNotFound           = errors.New("tournament not found")
)

// KindOf maps an operation error back to its taxonomy kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidWinners):
		return KindValidation
	case errors.Is(err, ErrWrongState), errors.Is(err, ErrFull), errors.Is(err, ErrNotAParticipant):
		return KindState
	case errors.Is(err, ErrRegistrationClosed), errors.Is(err, ErrRegistrationOpen):
		return KindTiming
	case errors.Is(err, ErrNotAuthorized):
		return KindAuthorization
	case errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrNothingToClaim):
		return KindDuplicate
	case errors.Is(err, ErrFunds):
		return KindFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}
