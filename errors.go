package fl2

import (
	"errors"

	"github.com/kingsznhone/fl2/lzma2"
	"github.com/kingsznhone/fl2/parallel"
)

// An ErrorCode classifies the errors returned by this package.
type ErrorCode int

const (
	NoError ErrorCode = iota
	Generic
	Internal
	CorruptionDetected
	ChecksumWrong
	ParameterUnsupported
	ParameterOutOfBound
	LclpMaxExceeded
	StageWrong
	InitMissing
	MemoryAllocation
	DstSizeTooSmall
	SrcSizeWrong
	Canceled
	Buffer
	TimedOut
)

var errorMessages = [...]string{
	NoError:              "no error detected",
	Generic:              "error (generic)",
	Internal:             "internal error (bug)",
	CorruptionDetected:   "corrupted block detected",
	ChecksumWrong:        "restored data doesn't match checksum",
	ParameterUnsupported: "unsupported parameter",
	ParameterOutOfBound:  "parameter is out of bound",
	LclpMaxExceeded:      "parameters lc+lp > 4",
	StageWrong:           "not possible at this stage of encoding",
	InitMissing:          "context should be init first",
	MemoryAllocation:     "allocation error: not enough memory",
	DstSizeTooSmall:      "destination buffer is too small",
	SrcSizeWrong:         "src size is incorrect",
	Canceled:             "processing was canceled",
	Buffer:               "streaming progress halted due to buffer(s) full/empty",
	TimedOut:             "wait timed out",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(errorMessages) {
		return "unspecified error code"
	}
	return errorMessages[c]
}

// An Error is an error with a code. Err, if set, is the underlying cause.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "fl2: " + e.Code.String() + ": " + e.Err.Error()
	}
	return "fl2: " + e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrCorruptionDetected) matches any corruption error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors, one per code. Compare with errors.Is.
var (
	ErrGeneric              = &Error{Code: Generic}
	ErrInternal             = &Error{Code: Internal}
	ErrCorruptionDetected   = &Error{Code: CorruptionDetected}
	ErrChecksumWrong        = &Error{Code: ChecksumWrong}
	ErrParameterUnsupported = &Error{Code: ParameterUnsupported}
	ErrParameterOutOfBound  = &Error{Code: ParameterOutOfBound}
	ErrLclpMaxExceeded      = &Error{Code: LclpMaxExceeded}
	ErrStageWrong           = &Error{Code: StageWrong}
	ErrInitMissing          = &Error{Code: InitMissing}
	ErrMemoryAllocation     = &Error{Code: MemoryAllocation}
	ErrDstSizeTooSmall      = &Error{Code: DstSizeTooSmall}
	ErrSrcSizeWrong         = &Error{Code: SrcSizeWrong}
	ErrCanceled             = &Error{Code: Canceled}
	ErrBuffer               = &Error{Code: Buffer}
	ErrTimedOut             = &Error{Code: TimedOut}
)

// Code returns the code of err: NoError for nil, Generic for errors from
// outside this package.
func Code(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	var e *Error
	if errors.As(translate(err), &e) {
		return e.Code
	}
	return Generic
}

// IsTimedOut reports whether err is a timeout. A timeout is not fatal: the
// call may be repeated.
func IsTimedOut(err error) bool {
	return Code(err) == TimedOut
}

func wrap(code ErrorCode, err error) error {
	return &Error{Code: code, Err: err}
}

// translate maps errors from the lower level packages to codes.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, parallel.ErrTimedOut):
		return ErrTimedOut
	case errors.Is(err, lzma2.ErrOutputFull):
		return wrap(DstSizeTooSmall, err)
	case errors.Is(err, lzma2.ErrCorrupt), errors.Is(err, lzma2.ErrShortInput),
		errors.Is(err, lzma2.ErrProps), errors.Is(err, lzma2.ErrDictProp):
		return wrap(CorruptionDetected, err)
	case errors.Is(err, parallel.ErrCanceled):
		return ErrCanceled
	}
	return wrap(Generic, err)
}
