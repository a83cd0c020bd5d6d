package wire

// Operation represents a TVCast protocol operation.
type Operation uint8

const (
	// OpRead gets current attribute values.
	// Direction: Caster to commissionee
	OpRead Operation = 1

	// OpInvoke executes a cluster command with parameters.
	// Direction: Caster to commissionee
	OpInvoke Operation = 2

	// OpSubscribe registers for attribute change reports.
	// Direction: Caster to commissionee
	OpSubscribe Operation = 3

	// OpUnsubscribe cancels an attribute subscription.
	// Direction: Caster to commissionee
	OpUnsubscribe Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpInvoke:
		return "Invoke"
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is a valid TVCast operation.
func (o Operation) IsValid() bool {
	return o >= OpRead && o <= OpUnsubscribe
}
