package audit

import (
	"context"

	"github.com/interestconnect/realtime/pkg/log"
)

// Audit actions for the realtime service.
const (
	ActionConnect          = "realtime.connect"
	ActionAuthFailed       = "realtime.auth_failed"
	ActionDisconnect       = "realtime.disconnect"
	ActionJoinGroup        = "realtime.join_group"
	ActionLeaveGroup       = "realtime.leave_group"
	ActionSendMessage      = "realtime.send_message"
	ActionSendNotification = "realtime.send_notification"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTarget emits an audit entry naming the user, group or message
// the action applied to.
func LogWithTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
