package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUpdatedAt       = "updated_at"
	fieldVersion         = "version"
	fieldTaskIDs         = "task_ids"
	fieldSubtaskIDs      = "subtask_ids"
	fieldNotificationIDs = "notification_ids"
	fieldReadBy          = "read_by"
	fieldReactions       = "reactions"
	fieldMembers         = "members"
	fieldRead            = "read"
	fieldReadAt          = "read_at"
	fieldAttempts        = "attempts"
	fieldLastError       = "last_error"
	fieldState           = "state"
)

// Index names created by Bootstrap.
const (
	indexUserEmail           = "email-index"
	indexProjectClient       = "client_id-index"
	indexTaskProject         = "project_id-index"
	indexMessageConversation = "conversation_key-message_id-index"
	indexNotificationByUser  = "recipient_id-notification_id-index"
	indexOutboxState         = "state-event_id-index"
)
