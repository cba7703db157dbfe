package errz

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E5xxx: Invariant violations (programming errors in the caller)
//   - E6xxx: Resource limits
type ErrorCode string

const (
	// Invariant violations (E5xxx)
	E5001 ErrorCode = "E5001" // Label bound twice
	E5002 ErrorCode = "E5002" // Label never bound
	E5003 ErrorCode = "E5003" // Invalid register
	E5004 ErrorCode = "E5004" // Register released out of order
	E5005 ErrorCode = "E5005" // Unbalanced exception handler
	E5006 ErrorCode = "E5006" // Invalid jump table use
	E5007 ErrorCode = "E5007" // Invalid deferred constant
	E5008 ErrorCode = "E5008" // Builder already finalized
	E5009 ErrorCode = "E5009" // Invalid operand
	E5010 ErrorCode = "E5010" // Loop jump to unbound label
	E5011 ErrorCode = "E5011" // Invalid reserved constant entry

	// Resource limits (E6xxx)
	E6001 ErrorCode = "E6001" // Operand out of range
	E6002 ErrorCode = "E6002" // Constant pool exhausted
	E6003 ErrorCode = "E6003" // Jump distance out of range
)

var codeDescriptions = map[ErrorCode]string{
	E5001: "label bound twice",
	E5002: "label never bound",
	E5003: "invalid register",
	E5004: "register released out of order",
	E5005: "unbalanced exception handler",
	E5006: "invalid jump table use",
	E5007: "invalid deferred constant",
	E5008: "builder already finalized",
	E5009: "invalid operand",
	E5010: "loop jump to unbound label",
	E5011: "invalid reserved constant entry",

	E6001: "operand out of range",
	E6002: "constant pool exhausted",
	E6003: "jump distance out of range",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '5':
		return "invariant"
	case '6':
		return "limit"
	default:
		return "unknown"
	}
}
