package amqp

import (
	"encoding/json"
	"time"
)

// RunRequestMessage asks the worker to run one scenario's projection.
// It carries only identifiers; the worker loads the scenario from the
// database so a stale message can never replay stale data.
type RunRequestMessage struct {
	UserID          int64     `json:"user_id"`
	ScenarioID      int64     `json:"scenario_id"`
	RecalcFromStart bool      `json:"recalc_from_start"`
	RequestedAt     time.Time `json:"requested_at"`
}

func NewRunRequestMessage(userID, scenarioID int64, recalcFromStart bool) *RunRequestMessage {
	return &RunRequestMessage{
		UserID:          userID,
		ScenarioID:      scenarioID,
		RecalcFromStart: recalcFromStart,
		RequestedAt:     time.Now().UTC(),
	}
}

func (m *RunRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RunRequestMessageFromJSON(data []byte) (*RunRequestMessage, error) {
	var msg RunRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
