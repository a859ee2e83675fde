package licensing

// Outcome is the terminal result of one validation request.
type Outcome string

const (
	OutcomeMaintenance    Outcome = "MAINTENANCE"
	OutcomeInvalidRequest Outcome = "INVALID_REQUEST"
	OutcomeInvalid        Outcome = "INVALID"
	OutcomeRevoked        Outcome = "REVOKED"
	OutcomeDeviceMismatch Outcome = "DEVICE_MISMATCH"
	OutcomeUpdateRequired Outcome = "UPDATE_REQUIRED"
	OutcomeValid          Outcome = "VALID"
	OutcomeError          Outcome = "ERROR"
)

// Outcomes lists every outcome, in evaluation order. Used to pre-register
// metric label values.
var Outcomes = []Outcome{
	OutcomeMaintenance,
	OutcomeInvalidRequest,
	OutcomeInvalid,
	OutcomeRevoked,
	OutcomeDeviceMismatch,
	OutcomeUpdateRequired,
	OutcomeValid,
	OutcomeError,
}

func (o Outcome) String() string { return string(o) }

// Granted reports whether the outcome grants access (and a credential).
func (o Outcome) Granted() bool { return o == OutcomeValid }

// Resolution is what the device binding manager decided for a key/device pair.
type Resolution string

const (
	NewBinding       Resolution = "NEW_BINDING"
	BoundThisDevice  Resolution = "BOUND_THIS_DEVICE"
	BoundOtherDevice Resolution = "BOUND_OTHER_DEVICE"
)
