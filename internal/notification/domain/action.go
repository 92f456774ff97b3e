// Package domain models the audit trail and outbound notification queue:
// the side effects the mutation engine produces, and the settings that
// shape them.
package domain

// Action is the closed set of audit/notification type names the
// mutation engine produces. NotificationSetting.Type and AuditLog's
// action_name both draw from this set.
type Action string

const (
	ActionEventCreated     Action = "event_created"
	ActionEventEdited      Action = "event_edited"
	ActionEventDeleted     Action = "event_deleted"
	ActionEventSwapped     Action = "event_swapped"
	ActionEventSubstituted Action = "event_substituted"
	ActionRosterCreated    Action = "roster_created"
	ActionRosterEdited     Action = "roster_edited"
	ActionRosterDeleted    Action = "roster_deleted"
	ActionTeamCreated      Action = "team_created"
	ActionTeamEdited       Action = "team_edited"
	ActionTeamDeleted      Action = "team_deleted"
	ActionAdminAdded       Action = "admin_added"
	ActionAdminRemoved     Action = "admin_removed"

	// ActionOncallReminder is the reminder type the sweeper synthesizes
	// ahead of upcoming shifts.
	ActionOncallReminder Action = "oncall_reminder"
	// ActionUserValidation is the email nudge sent to users who hold
	// future events but have no call contact on file.
	ActionUserValidation Action = "user_validation"
)

func (a Action) String() string { return string(a) }
