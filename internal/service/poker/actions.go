package poker

import (
	"encoding/json"

	appErr "monopolyx-service/pkg/errors"
)

type actionPayload struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// HandleAction dispatches one websocket action from a user.
func (t *Table) HandleAction(userID int64, action string, data json.RawMessage) error {
	var payload actionPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return appErr.ErrIllegalAction
		}
	}

	switch action {
	case "fold":
		return t.Fold(userID)
	case "check":
		return t.Check(userID)
	case "call":
		return t.Call(userID)
	case "raise":
		return t.Raise(userID, payload.Amount)
	case "start":
		return t.StartHand(userID)
	case "chat":
		return t.Chat(userID, payload.Message)
	}
	return appErr.ErrIllegalAction
}
