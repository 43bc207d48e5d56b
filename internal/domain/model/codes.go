package model

// ErrorCode is a machine-readable protocol error code surfaced to clients.
type ErrorCode string

const (
	CodeInvalidSubmission ErrorCode = "INVALID_SUBMISSION"
	CodeDailyLimit        ErrorCode = "DAILY_LIMIT"
	CodeUnverified        ErrorCode = "UNVERIFIED"
	CodeInvalidCard       ErrorCode = "INVALID_CARD"
	CodeAlreadyQueued     ErrorCode = "ALREADY_QUEUED"
	CodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	CodePurchaseInvalid   ErrorCode = "PURCHASE_INVALID"
)

// Outbound event names of the realtime protocol.
const (
	EventMatchSearching = "match:searching"
	EventMatchBlocked   = "match:blocked"
	EventMatchError     = "match:error"
	EventMatchFound     = "match:found"
	EventCardsDeliver   = "cards:deliver"
	EventCardsError     = "cards:error"
	EventChatUnlocked   = "chat:unlocked"
	EventMatchEnded     = "match:ended"
)

// Inbound event names of the realtime protocol.
const (
	EventMatchSubmitAnswers = "match:submit_answers"
	EventMatchLeave         = "match:leave"
	EventCardsRequest       = "cards:request"
	EventCardAnswer         = "card:answer"
)
