package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// SubmitQuiz sends quiz answers for analysis and passes the raw result to
// OnQuizComplete.
func (c *Client) SubmitQuiz(ctx context.Context, answers any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/ai/quiz", map[string]any{"answers": answers}, &result); err != nil {
		c.logger.ErrorContext(ctx, "Quiz analysis failed", "error", err)
		return nil, err
	}
	if c.hooks.OnQuizComplete != nil {
		c.hooks.OnQuizComplete(result)
	}
	return result, nil
}

// AnalyzeSingleLab analyzes one lab test, typically a LabTest.
func (c *Client) AnalyzeSingleLab(ctx context.Context, test any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/ai/lab/single", map[string]any{"test": test}, &result); err != nil {
		c.logger.ErrorContext(ctx, "Single lab analysis failed", "error", err)
		return nil, err
	}
	if c.hooks.OnLabComplete != nil {
		c.hooks.OnLabComplete(LabEvent{Type: "single", Data: result})
	}
	return result, nil
}

// AnalyzeMultipleLabs summarizes a batch of lab tests taken over
// totalSessions sessions. Values below one are sent as one.
func (c *Client) AnalyzeMultipleLabs(ctx context.Context, tests any, totalSessions int) (json.RawMessage, error) {
	if totalSessions < 1 {
		totalSessions = 1
	}
	body := map[string]any{
		"tests":               tests,
		"total_test_sessions": totalSessions,
	}
	var result json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/ai/lab/summary", body, &result); err != nil {
		c.logger.ErrorContext(ctx, "Lab summary failed", "error", err, "total_sessions", totalSessions)
		return nil, err
	}
	if c.hooks.OnLabComplete != nil {
		c.hooks.OnLabComplete(LabEvent{Type: "summary", Data: result})
	}
	return result, nil
}

// AnalyzeQuizPayload is the widget flavour of quiz analysis: the payload is
// wrapped as {payload} and the response carries recommendations.
func (c *Client) AnalyzeQuizPayload(ctx context.Context, payload any) (*AnalyzeResponse, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	var resp AnalyzeResponse
	if err := c.Do(ctx, http.MethodPost, "/ai/quiz", map[string]any{"payload": payload}, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Quiz payload analysis failed", "error", err)
		return nil, err
	}
	return &resp, nil
}

// AnalyzeLabResults posts lab results as {results} to /ai/lab/analyze.
func (c *Client) AnalyzeLabResults(ctx context.Context, results any) (*AnalyzeResponse, error) {
	if results == nil {
		results = []any{}
	}
	var resp AnalyzeResponse
	if err := c.Do(ctx, http.MethodPost, "/ai/lab/analyze", map[string]any{"results": results}, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Lab results analysis failed", "error", err)
		return nil, err
	}
	return &resp, nil
}
