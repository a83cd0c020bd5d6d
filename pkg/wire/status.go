package wire

import "errors"

// ErrDecode indicates a malformed or unexpected response/report payload.
var ErrDecode = errors.New("payload decode error")

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusInvalidEndpoint indicates the endpoint doesn't exist.
	StatusInvalidEndpoint Status = 1

	// StatusInvalidCluster indicates the cluster doesn't exist on the endpoint.
	StatusInvalidCluster Status = 2

	// StatusInvalidAttribute indicates the attribute doesn't exist.
	StatusInvalidAttribute Status = 3

	// StatusInvalidCommand indicates the command doesn't exist.
	StatusInvalidCommand Status = 4

	// StatusInvalidParameter indicates a parameter value is out of range.
	StatusInvalidParameter Status = 5

	// StatusInvalidSubscription indicates the subscription doesn't exist.
	StatusInvalidSubscription Status = 6

	// StatusNotAuthorized indicates the caster doesn't have permission.
	StatusNotAuthorized Status = 7

	// StatusBusy indicates the commissionee is busy; try again later.
	StatusBusy Status = 8

	// StatusUnsupported indicates the operation is not supported.
	StatusUnsupported Status = 9

	// StatusConstraintError indicates a value violates a constraint.
	StatusConstraintError Status = 10

	// StatusResourceExhausted indicates no capacity for more subscriptions.
	StatusResourceExhausted Status = 11

	// StatusTimeout indicates the operation timed out.
	StatusTimeout Status = 12
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidEndpoint:
		return "INVALID_ENDPOINT"
	case StatusInvalidCluster:
		return "INVALID_CLUSTER"
	case StatusInvalidAttribute:
		return "INVALID_ATTRIBUTE"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusInvalidSubscription:
		return "INVALID_SUBSCRIPTION"
	case StatusNotAuthorized:
		return "NOT_AUTHORIZED"
	case StatusBusy:
		return "BUSY"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusConstraintError:
		return "CONSTRAINT_ERROR"
	case StatusResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}

// StatusError represents an error response from the commissionee.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Status.String() + ": " + e.Message
	}
	return e.Status.String()
}

// NewStatusError creates an error from a response status and its payload.
// The optional ErrorPayload message is carried into the error text.
func NewStatusError(status Status, payload any) *StatusError {
	msg := ""
	switch p := payload.(type) {
	case *ErrorPayload:
		msg = p.Message
	case map[any]any:
		if s, ok := p[uint64(1)].(string); ok {
			msg = s
		}
	}
	return &StatusError{Status: status, Message: msg}
}
