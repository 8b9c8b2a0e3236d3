package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers abuse signals: tamper, bans, repeat joins, blocked phones.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key lifecycle actions.
type Event struct {
	Action    Action
	Timestamp time.Time
	UserID    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID tracks who performed the action when it was not the user,
	// e.g. an operator ban or the engine itself removing a member.
	ActorID string
}

type Action string

const (
	ActionTrialStarted      Action = "trial_started"
	ActionTrialExpired      Action = "trial_expired"
	ActionTrialLeftEarly    Action = "trial_left_early"
	ActionStep1Passed       Action = "step1_passed"
	ActionPhoneVerified     Action = "phone_verified"
	ActionInviteIssued      Action = "invite_issued"
	ActionCooldownBlocked   Action = "cooldown_blocked"
	ActionPhoneBlocked      Action = "phone_blocked"
	ActionReputationBlocked Action = "reputation_blocked"
	ActionRepeatJoin        Action = "repeat_join_blocked"
	ActionUninvitedJoin     Action = "uninvited_join_removed"
	ActionTamperDetected    Action = "tamper_detected"
	ActionUserBanned        Action = "user_banned"
	ActionUserUnbanned      Action = "user_unbanned"
	ActionRemovalFailed     Action = "removal_failed"
)

var actionCategories = map[Action]EventCategory{
	ActionCooldownBlocked:   CategorySecurity,
	ActionPhoneBlocked:      CategorySecurity,
	ActionReputationBlocked: CategorySecurity,
	ActionRepeatJoin:        CategorySecurity,
	ActionUninvitedJoin:     CategorySecurity,
	ActionTamperDetected:    CategorySecurity,
	ActionUserBanned:        CategorySecurity,
	ActionUserUnbanned:      CategorySecurity,
	ActionRemovalFailed:     CategorySecurity,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}
