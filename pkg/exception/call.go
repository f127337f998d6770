package exception

import "errors"

var (
	ErrResponseStatus = errors.New("call: non-success response status")
	ErrDecodePayload  = errors.New("call: decode payload")
)

// CallClass separates failures that halt the scheduler from the ones that do not.
type CallClass uint8

const (
	_call_class_beg CallClass = iota
	// CallTransport covers network failures and non-success responses.
	CallTransport
	// CallParse covers malformed payloads on an otherwise successful response.
	CallParse
	_call_class_end
)

func (c CallClass) IsAvailable() bool {
	return c > _call_class_beg && c < _call_class_end
}

func (c CallClass) String() string {
	switch c {
	case CallTransport:
		return "transport"
	case CallParse:
		return "parse"
	default:
		return "unknown"
	}
}

// CallError is returned by every remote operation of the exchange client.
type CallError struct {
	Op    string
	Class CallClass
	Err   error
}

func (e *CallError) Error() string {
	return e.Op + ": " + e.Class.String() + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a transport failure of op.
func Transport(op string, err error) *CallError {
	return &CallError{Op: op, Class: CallTransport, Err: err}
}

// Parse wraps err as a payload failure of op.
func Parse(op string, err error) *CallError {
	return &CallError{Op: op, Class: CallParse, Err: err}
}

// IsParse reports whether err is a CallError of class CallParse.
func IsParse(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Class == CallParse
}
