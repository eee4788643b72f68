package queue

import (
	"encoding/json"
	"time"
)

// CurrentVersion is the payload schema version written by NewMessage.
const CurrentVersion = 1

// Message asks the worker to generate the form for one sheet row.
type Message struct {
	Row        int    `json:"row"`
	Sheet      string `json:"sheet,omitempty"`
	Force      bool   `json:"force,omitempty"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message with the current time and schema version.
func NewMessage(sheet string, row int, force bool, requestID string, now time.Time) Message {
	return Message{
		Row:        row,
		Sheet:      sheet,
		Force:      force,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    CurrentVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
