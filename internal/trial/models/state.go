package models

// State is the explicit lifecycle state of a user's trial.
type State string

const (
	StateNone            State = ""
	StateNew             State = "new"
	StateStep1Passed     State = "step1_passed"
	StatePhoneVerified   State = "phone_verified"
	StateInviteIssued    State = "invite_issued"
	StateActive          State = "active"
	StateExpired         State = "expired"
	StateLeftEarly       State = "left_early"
	StateCooldownBlocked State = "cooldown_blocked"
	StateBanned          State = "banned"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateNone, StateNew, StateStep1Passed, StatePhoneVerified, StateInviteIssued,
		StateActive, StateExpired, StateLeftEarly, StateCooldownBlocked, StateBanned:
		return true
	}
	return false
}

// Pending reports whether s is a persisted pre-trial state.
func (s State) Pending() bool {
	switch s {
	case StateNew, StateStep1Passed, StatePhoneVerified, StateCooldownBlocked:
		return true
	}
	return false
}

func (s State) String() string {
	if s == StateNone {
		return "none"
	}
	return string(s)
}
