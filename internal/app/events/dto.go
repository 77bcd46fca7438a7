package events

import "time"

type TTSStatusDTO struct {
	State       string `json:"state"`
	QueueLength int    `json:"queue_length"`
	CurrentID   string `json:"current_id,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

type TTSSpokenDTO struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Text        string `json:"text,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	FinishedAt  string `json:"finished_at"`
}

func NewTTSStatusDTO(state string, queueLength int, currentID, lastError string) TTSStatusDTO {
	return TTSStatusDTO{
		State:       state,
		QueueLength: queueLength,
		CurrentID:   currentID,
		LastError:   lastError,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func NewTTSSpokenDTO(id, text, requestedBy string, err error) TTSSpokenDTO {
	payload := TTSSpokenDTO{
		ID:          id,
		OK:          err == nil,
		Text:        text,
		RequestedBy: requestedBy,
		FinishedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		payload.Error = err.Error()
	}
	return payload
}
