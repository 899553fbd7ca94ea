package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxHistory bounds the number of messages kept per session.
const MaxHistory = 20

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the single message shape used past the system boundary.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// SessionState is the persisted conversation state of one chat session.
type SessionState struct {
	// Identity
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	ChannelType string `json:"channel_type"`

	Language     string    `json:"language,omitempty"`
	History      []Message `json:"history,omitempty"`
	LastCategory string    `json:"last_category,omitempty"`
	TurnCount    int       `json:"turn_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrEmptyUserID  = errors.New("user id is empty")
	ErrInvalidRole  = errors.New("invalid message role")
	ErrHistoryLimit = errors.New("history exceeds limit")
)

func NewSessionState(sessionID, userID, channelType string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:   sessionID,
		UserID:      userID,
		ChannelType: channelType,
		UpdatedAt:   now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn records one user/assistant exchange and trims history to MaxHistory.
func (s *SessionState) AppendTurn(utterance, reply, category string, now time.Time) {
	s.History = append(s.History, UserMessage(utterance), AssistantMessage(reply))
	if over := len(s.History) - MaxHistory; over > 0 {
		s.History = append([]Message(nil), s.History[over:]...)
	}
	s.LastCategory = category
	s.TurnCount++
	s.Touch(now)
}

// RecentHistory returns a copy of the history so callers cannot mutate the session.
func (s *SessionState) RecentHistory() []Message {
	if s == nil || len(s.History) == 0 {
		return nil
	}
	return append([]Message(nil), s.History...)
}

func (s *SessionState) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUserID
	}
	if len(s.History) > MaxHistory {
		return fmt.Errorf("%w: %d > %d", ErrHistoryLimit, len(s.History), MaxHistory)
	}
	for i, m := range s.History {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: history[%d].role=%q", ErrInvalidRole, i, m.Role)
		}
	}
	return nil
}
