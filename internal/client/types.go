package client

// LabTest is one laboratory measurement. Any JSON-encodable value is
// accepted where a lab test is expected; this struct is a convenience.
type LabTest struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit,omitempty"`
	ReferenceRange string  `json:"reference_range,omitempty"`
}

// ChatReply is the response of POST /ai/chat.
type ChatReply struct {
	Reply          string `json:"reply"`
	ConversationID int64  `json:"conversation_id"`
	UsedModel      string `json:"used_model"`
	LatencyMS      int64  `json:"latency_ms"`
}

// HistoryMessage is one entry of a conversation history, oldest first.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Timestamp is kept as sent; the service omits the zone.
	Timestamp string `json:"ts"`
}

// HealthStatus is the response of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// RecommendationItem is one entry of AnalyzeResponse.Recommendations.
type RecommendationItem struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Source string `json:"source,omitempty"`
}

// AnalyzeResponse is returned by the quiz and lab analyze endpoints used
// by the widget.
type AnalyzeResponse struct {
	Recommendations []RecommendationItem `json:"recommendations"`
	Analysis        map[string]any       `json:"analysis,omitempty"`
	Disclaimer      string               `json:"disclaimer"`
}

type chatStartResponse struct {
	ConversationID int64 `json:"conversation_id"`
}

type chatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}
