package recommend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/longopass/internal/catalog"
	"github.com/edgard/longopass/internal/client"
	"github.com/edgard/longopass/internal/recommend"
)

func TestPriority(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		supplement recommend.Supplement
		want       int
	}{
		{name: "no keywords", supplement: recommend.Supplement{Name: "Çinko", Reason: "genel destek"}, want: 1},
		{name: "magnesium deficiency", supplement: recommend.Supplement{Name: "Magnezyum", Reason: "Eksiklik var"}, want: 6},
		{name: "english magnesium", supplement: recommend.Supplement{Name: "Magnesium", Reason: "deficiency"}, want: 6},
		{name: "vitamin important", supplement: recommend.Supplement{Name: "D Vitamini", Reason: "ÇOK ÖNEMLİ"}, want: 5},
		{name: "omega necessary", supplement: recommend.Supplement{Name: "Omega-3", Reason: "gerekli"}, want: 4},
		{
			name:       "all reason groups",
			supplement: recommend.Supplement{Name: "Vitamin B12", Reason: "eksiklik, önemli ve gerekli"},
			want:       1 + 2 + 3 + 2 + 2,
		},
		{
			name:       "group counted once",
			supplement: recommend.Supplement{Name: "magnezyum magnesium", Reason: "eksiklik deficiency"},
			want:       1 + 2 + 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, recommend.Priority(tc.supplement))
		})
	}
}

func TestRecommendMagnesiumExample(t *testing.T) {
	t.Parallel()

	engine := recommend.NewEngine(catalog.Default(), nil)
	recs := engine.Recommend(context.Background(), recommend.QuizResult{
		Supplements: []recommend.Supplement{{Name: "Magnezyum", Reason: "Eksiklik var"}},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, 6, recs[0].Priority)
	assert.Equal(t, "Eksiklik var", recs[0].Reason)
	require.Len(t, recs[0].Products, 1)
	assert.Equal(t, "Premium Magnezyum 400mg", recs[0].Products[0].Name)
}

type flakyCatalog struct {
	catalog.Catalog
	failFor string
}

func (f flakyCatalog) FindProducts(ctx context.Context, name string) ([]catalog.Product, error) {
	if name == f.failFor {
		return nil, errors.New("lookup failed")
	}
	return f.Catalog.FindProducts(ctx, name)
}

func TestRecommendDropsAndSorts(t *testing.T) {
	t.Parallel()

	engine := recommend.NewEngine(flakyCatalog{Catalog: catalog.Default(), failFor: "Magnesium"}, nil)
	recs := engine.Recommend(context.Background(), recommend.QuizResult{
		Supplements: []recommend.Supplement{
			{Name: "Omega-3", Reason: "kalp sağlığı"},
			{Name: "Çinko", Reason: "eksiklik"},
			{Name: "Magnesium", Reason: "deficiency"},
			{Name: "omega 3 balık yağı", Reason: "destek"},
			{Name: "D Vitamini", Reason: "eksiklik"},
		},
	})

	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Supplement.Name)
	}
	assert.Equal(t, []string{"D Vitamini", "Omega-3", "omega 3 balık yağı"}, names)

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Priority, recs[i].Priority)
	}
}

func TestRecommendEmpty(t *testing.T) {
	t.Parallel()

	engine := recommend.NewEngine(catalog.Default(), nil)
	assert.Empty(t, engine.Recommend(context.Background(), recommend.QuizResult{}))
}

func TestFromAnalysis(t *testing.T) {
	t.Parallel()

	got := recommend.FromAnalysis(&client.AnalyzeResponse{
		Recommendations: []client.RecommendationItem{{Name: "Magnezyum", Reason: "Eksiklik var", Source: "consensus"}},
	})
	assert.Equal(t, recommend.QuizResult{Supplements: []recommend.Supplement{{Name: "Magnezyum", Reason: "Eksiklik var"}}}, got)

	assert.Empty(t, recommend.FromAnalysis(nil).Supplements)
}

func TestParseQuizResult(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    []recommend.Supplement
		wantErr bool
	}{
		{
			name:  "supplements form",
			input: `{"supplements":[{"name":"Magnezyum","reason":"Eksiklik var"}]}`,
			want:  []recommend.Supplement{{Name: "Magnezyum", Reason: "Eksiklik var"}},
		},
		{
			name:  "quiz response form",
			input: `{"success":true,"supplement_recommendations":[{"name":"D Vitamini","description":"Önemli","daily_dose":"1000 IU"}]}`,
			want:  []recommend.Supplement{{Name: "D Vitamini", Reason: "Önemli"}},
		},
		{
			name:  "analyze response form",
			input: `{"recommendations":[{"name":"Omega-3","reason":"gerekli"}],"disclaimer":"x"}`,
			want:  []recommend.Supplement{{Name: "Omega-3", Reason: "gerekli"}},
		},
		{name: "empty object", input: `{}`},
		{name: "invalid", input: `[`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := recommend.ParseQuizResult([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Supplements)
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No matching products.", recommend.Format(nil))

	engine := recommend.NewEngine(catalog.Default(), nil)
	recs := engine.Recommend(context.Background(), recommend.QuizResult{
		Supplements: []recommend.Supplement{{Name: "Magnezyum", Reason: "Eksiklik var"}},
	})
	assert.Equal(t,
		"1. Magnezyum (priority 6): Eksiklik var\n   - Premium Magnezyum 400mg, 89.90 TRY /urun/premium-magnezyum-400mg",
		recommend.Format(recs))
}
