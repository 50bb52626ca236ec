package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// StartChat creates a conversation and stores its id. It needs the premium
// plan and fails with ErrPremiumRequired without a network call otherwise.
func (c *Client) StartChat(ctx context.Context) (int64, error) {
	if c.Plan() != PlanPremium {
		return 0, c.fail(ErrPremiumRequired)
	}

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	var resp chatStartResponse
	if err := c.Do(ctx, http.MethodPost, "/ai/chat/start", struct{}{}, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Failed to start chat", "error", err)
		return 0, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.conversationID = resp.ConversationID
	}
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Chat started", "conversation_id", resp.ConversationID)
	return resp.ConversationID, nil
}

// SendChatMessage sends text to conversationID, or to the stored
// conversation when conversationID is 0. With AutoStartChat enabled a
// missing conversation is created first.
func (c *Client) SendChatMessage(ctx context.Context, text string, conversationID int64) (*ChatReply, error) {
	if c.Plan() != PlanPremium {
		return nil, c.fail(ErrPremiumRequired)
	}

	convID := conversationID
	if convID == 0 {
		convID = c.ConversationID()
	}
	if convID == 0 {
		if !c.autoStart {
			return nil, c.fail(ErrNoConversation)
		}
		id, err := c.StartChat(ctx)
		if err != nil {
			return nil, err
		}
		convID = id
	}

	var reply ChatReply
	if err := c.Do(ctx, http.MethodPost, "/ai/chat", chatRequest{ConversationID: convID, Text: text}, &reply); err != nil {
		c.logger.ErrorContext(ctx, "Failed to send chat message", "error", err, "conversation_id", convID)
		return nil, err
	}

	if c.hooks.OnChatMessage != nil {
		c.hooks.OnChatMessage(ChatEvent{
			Type:           "response",
			Message:        reply.Reply,
			ConversationID: reply.ConversationID,
			Model:          reply.UsedModel,
			Latency:        time.Duration(reply.LatencyMS) * time.Millisecond,
		})
	}
	return &reply, nil
}

// GetChatHistory returns the messages of conversationID, or of the stored
// conversation when conversationID is 0, oldest first.
func (c *Client) GetChatHistory(ctx context.Context, conversationID int64) ([]HistoryMessage, error) {
	if c.Plan() != PlanPremium {
		return nil, c.fail(ErrPremiumRequired)
	}

	convID := conversationID
	if convID == 0 {
		convID = c.ConversationID()
	}
	if convID == 0 {
		return nil, c.fail(ErrNoConversation)
	}

	var history []HistoryMessage
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/ai/chat/%d/history", convID), nil, &history); err != nil {
		c.logger.ErrorContext(ctx, "Failed to fetch chat history", "error", err, "conversation_id", convID)
		return nil, err
	}
	return history, nil
}

// HealthCheck reports the service status.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.Do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		c.logger.ErrorContext(ctx, "Health check failed", "error", err)
		return nil, err
	}
	return &status, nil
}
