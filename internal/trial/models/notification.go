package models

import "time"

// Template names an outbound user message. Rendering lives with the notifier's consumer.
type Template string

const (
	TemplateOnboarding        Template = "onboarding"
	TemplateCooldownBlocked   Template = "cooldown_blocked"
	TemplatePhoneBlocked      Template = "phone_blocked"
	TemplateAccessBlocked     Template = "access_blocked"
	TemplateInviteIssued      Template = "invite_issued"
	TemplateTrialStarted      Template = "trial_started"
	TemplateTrialReminder     Template = "trial_reminder"
	TemplateTrialExpired      Template = "trial_expired"
	TemplateLeftEarlyFeedback Template = "left_early_feedback"
	TemplateRepeatJoinBlocked Template = "repeat_join_blocked"
)

// Notification is a request to message a user.
type Notification struct {
	ID        string            `json:"id"`
	UserID    UserID            `json:"user_id"`
	Template  Template          `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
	DedupeKey string            `json:"dedupe_key,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
