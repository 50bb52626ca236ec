// Package recommend turns supplement suggestions into ranked product
// recommendations.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/edgard/longopass/internal/catalog"
	"github.com/edgard/longopass/internal/client"
)

// Supplement is one suggestion produced by a quiz analysis.
type Supplement struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// QuizResult is the input of the engine.
type QuizResult struct {
	Supplements []Supplement `json:"supplements"`
}

// Recommendation pairs a supplement with the products offered for it.
type Recommendation struct {
	Supplement Supplement        `json:"supplement"`
	Products   []catalog.Product `json:"products"`
	Reason     string            `json:"reason"`
	Priority   int               `json:"priority"`
}

type keywordGroup struct {
	words  []string
	weight int
}

var (
	nameKeywords = []keywordGroup{
		{words: []string{"vitamin"}, weight: 2},
		{words: []string{"magnezyum", "magnesium"}, weight: 2},
		{words: []string{"omega"}, weight: 1},
	}
	reasonKeywords = []keywordGroup{
		{words: []string{"eksiklik", "deficiency"}, weight: 3},
		{words: []string{"önemli", "important"}, weight: 2},
		{words: []string{"gerekli", "necessary"}, weight: 2},
	}
)

// Priority scores a supplement. The base score is 1 and every keyword group
// found in the name or reason adds its weight once.
func Priority(s Supplement) int {
	return 1 + score(s.Name, nameKeywords) + score(s.Reason, reasonKeywords)
}

func score(text string, groups []keywordGroup) int {
	text = strings.ToLower(text)
	total := 0
	for _, g := range groups {
		if slices.ContainsFunc(g.words, func(w string) bool { return strings.Contains(text, w) }) {
			total += g.weight
		}
	}
	return total
}

// Engine matches supplements against a catalog.
type Engine struct {
	catalog catalog.Catalog
	logger  *slog.Logger
}

// NewEngine returns an engine using c for product lookups.
func NewEngine(c catalog.Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		catalog: c,
		logger:  logger.With("component", "recommend"),
	}
}

// Recommend returns one recommendation per supplement with at least one
// product, highest priority first. Ties keep input order.
func (e *Engine) Recommend(ctx context.Context, result QuizResult) []Recommendation {
	recs := make([]Recommendation, 0, len(result.Supplements))
	for _, s := range result.Supplements {
		products, err := e.catalog.FindProducts(ctx, s.Name)
		if err != nil {
			e.logger.WarnContext(ctx, "Product lookup failed, skipping supplement", "supplement", s.Name, "error", err)
			continue
		}
		if len(products) == 0 {
			e.logger.WarnContext(ctx, "No products found for supplement", "supplement", s.Name)
			continue
		}
		recs = append(recs, Recommendation{
			Supplement: s,
			Products:   products,
			Reason:     s.Reason,
			Priority:   Priority(s),
		})
	}

	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return b.Priority - a.Priority
	})
	return recs
}

// FromAnalysis converts the recommendations of an analyze response into a
// quiz result.
func FromAnalysis(resp *client.AnalyzeResponse) QuizResult {
	if resp == nil {
		return QuizResult{}
	}
	out := QuizResult{Supplements: make([]Supplement, 0, len(resp.Recommendations))}
	for _, r := range resp.Recommendations {
		out.Supplements = append(out.Supplements, Supplement{Name: r.Name, Reason: r.Reason})
	}
	return out
}

// ParseQuizResult reads a quiz result from raw JSON. Besides the
// {supplements:[{name,reason}]} form it accepts the full quiz response,
// whose supplement_recommendations carry a description instead of a
// reason, and an analyze response with recommendations.
func ParseQuizResult(raw []byte) (QuizResult, error) {
	var doc struct {
		Supplements               []Supplement `json:"supplements"`
		SupplementRecommendations []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"supplement_recommendations"`
		Recommendations []client.RecommendationItem `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return QuizResult{}, fmt.Errorf("invalid quiz result: %w", err)
	}

	result := QuizResult{Supplements: doc.Supplements}
	for _, s := range doc.SupplementRecommendations {
		result.Supplements = append(result.Supplements, Supplement{Name: s.Name, Reason: s.Description})
	}
	for _, r := range doc.Recommendations {
		result.Supplements = append(result.Supplements, Supplement{Name: r.Name, Reason: r.Reason})
	}
	return result, nil
}

// Format renders recommendations as plain text, one block per supplement.
func Format(recs []Recommendation) string {
	if len(recs) == 0 {
		return "No matching products."
	}
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (priority %d)", i+1, r.Supplement.Name, r.Priority)
		if r.Reason != "" {
			fmt.Fprintf(&b, ": %s", r.Reason)
		}
		b.WriteString("\n")
		for _, p := range r.Products {
			fmt.Fprintf(&b, "   - %s, %.2f %s", p.Name, p.Price, p.Currency)
			if p.URL != "" {
				fmt.Fprintf(&b, " %s", p.URL)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
