package ws

import (
	"encoding/json"

	"github.com/emberlink/ember/internal/domain/model"
)

// Envelope is the wire frame of the realtime protocol. Data carries the
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the outbound counterpart with an already-built payload.
type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// submitPayload is the match:submit_answers body.
type submitPayload struct {
	Answers              []model.Answer `json:"answers"`
	MinimumCommonAnswers int            `json:"minimumCommonAnswers"`
}

// leavePayload is the match:leave body. MatchID is optional; without it
// only the queue entry is removed.
type leavePayload struct {
	MatchID string `json:"matchId,omitempty"`
}

// cardsRequestPayload is the cards:request body.
type cardsRequestPayload struct {
	MatchID string `json:"matchId"`
}

// cardAnswerPayload is the card:answer body.
type cardAnswerPayload struct {
	MatchID             string `json:"matchId"`
	CardID              string `json:"cardId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
}

// blockedPayload is the match:blocked body.
type blockedPayload struct {
	Reason  model.ErrorCode `json:"reason"`
	Message string          `json:"message"`
}

// errorPayload is the match:error and cards:error body.
type errorPayload struct {
	MatchID string          `json:"matchId,omitempty"`
	Code    model.ErrorCode `json:"code"`
	Message string          `json:"message"`
}
