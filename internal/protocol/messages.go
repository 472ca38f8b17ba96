// Package protocol defines the JSON messages exchanged on a session channel.
// Every message carries a "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/ironhand/internal/session"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeRegister   MessageType = "register"
	TypeAction     MessageType = "action"
	TypeManualRoll MessageType = "manual_roll"

	TypeSystem MessageType = "system"
	TypeError  MessageType = "error"
	TypeLog    MessageType = "log"
)

var (
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrInvalidMessage  = errors.New("invalid message")
)

type Envelope struct {
	Type MessageType `json:"type"`
}

// Register binds the sending connection to a session.
type Register struct {
	Type   MessageType `json:"type"`
	GameID string      `json:"gameId"`
}

type ActionPayload struct {
	Action string `json:"action"`
}

// Action is a free-text player action.
type Action struct {
	Type    MessageType   `json:"type"`
	Payload ActionPayload `json:"payload"`
}

type ManualRollPayload struct {
	Command string `json:"command"`
}

// ManualRoll carries a "/r <notation> [check]" command.
type ManualRoll struct {
	Type    MessageType       `json:"type"`
	Payload ManualRollPayload `json:"payload"`
}

type System struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

type Error struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// Log delivers one appended session log entry.
type Log struct {
	Type    MessageType      `json:"type"`
	Payload session.LogEntry `json:"payload"`
}

func NewSystem(content string) System {
	return System{Type: TypeSystem, Content: content}
}

func NewError(content string) Error {
	return Error{Type: TypeError, Content: content}
}

func NewLog(entry session.LogEntry) Log {
	return Log{Type: TypeLog, Payload: entry}
}

// TypeOf reports the discriminator of an outbound message value.
func TypeOf(msg any) MessageType {
	switch m := msg.(type) {
	case System:
		return m.Type
	case Error:
		return m.Type
	case Log:
		return m.Type
	case Register:
		return m.Type
	case Action:
		return m.Type
	case ManualRoll:
		return m.Type
	default:
		return ""
	}
}

// ParseClientMessage decodes one inbound frame into Register, Action or
// ManualRoll.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeRegister:
		var msg Register
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		msg.GameID = strings.TrimSpace(msg.GameID)
		if msg.GameID == "" {
			return nil, fmt.Errorf("%w: register requires gameId", ErrInvalidMessage)
		}
		return msg, nil
	case TypeAction:
		var msg Action
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if strings.TrimSpace(msg.Payload.Action) == "" {
			return nil, fmt.Errorf("%w: action requires payload.action", ErrInvalidMessage)
		}
		return msg, nil
	case TypeManualRoll:
		var msg ManualRoll
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if strings.TrimSpace(msg.Payload.Command) == "" {
			return nil, fmt.Errorf("%w: manual_roll requires payload.command", ErrInvalidMessage)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
