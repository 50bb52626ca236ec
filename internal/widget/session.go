package widget

import "github.com/edgard/longopass/internal/client"

// State is the position of a widget in its lifecycle.
type State int

const (
	StateClosed State = iota
	StateOpenUnauthenticated
	StateOpenNoConversation
	StateOpenInConversation
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpenUnauthenticated:
		return "open_unauthenticated"
	case StateOpenNoConversation:
		return "open_no_conversation"
	case StateOpenInConversation:
		return "open_in_conversation"
	default:
		return "unknown"
	}
}

// Session is the persistent state of one widget.
type Session struct {
	Plan           client.Plan `json:"plan"`
	UserID         string      `json:"user_id"`
	ConversationID int64       `json:"conversation_id,omitempty"`
	Open           bool        `json:"open"`
}

// State derives the lifecycle state from the session fields.
func (s Session) State() State {
	switch {
	case !s.Open:
		return StateClosed
	case s.Plan != client.PlanPremium:
		return StateOpenUnauthenticated
	case s.ConversationID == 0:
		return StateOpenNoConversation
	default:
		return StateOpenInConversation
	}
}
