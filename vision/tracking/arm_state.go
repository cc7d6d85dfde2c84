package tracking

// ArmState is the tracker's view of what the arm is doing with the held object.
type ArmState int

// The arm states, in the order a successful pick and place moves through them.
const (
	StateWaiting ArmState = iota
	StateGrabbing
	StateHolding
	StateDropping
	StateJustDropped
)

func (s ArmState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateGrabbing:
		return "grabbing"
	case StateHolding:
		return "holding"
	case StateDropping:
		return "dropping"
	case StateJustDropped:
		return "just_dropped"
	default:
		return "unknown"
	}
}
