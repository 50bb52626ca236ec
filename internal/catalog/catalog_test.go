package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/longopass/internal/catalog"
)

func TestStaticFindProducts(t *testing.T) {
	t.Parallel()

	c := catalog.Default()

	testCases := []struct {
		name   string
		input  string
		wantID int64
	}{
		{name: "exact key", input: "magnezyum", wantID: 1},
		{name: "mixed case", input: "Magnezyum", wantID: 1},
		{name: "name contains key", input: "Magnezyum Bisglisinat", wantID: 1},
		{name: "english alias", input: "Magnesium", wantID: 1},
		{name: "key contains name", input: "omega", wantID: 3},
		{name: "vitamin d turkish", input: "D Vitamini", wantID: 2},
		{name: "vitamin d english", input: "Vitamin D3", wantID: 2},
		{name: "vitamin d alias", input: "vitamin d", wantID: 2},
		{name: "omega 3 alias", input: "Omega 3 balık yağı", wantID: 3},
		{name: "turkish capital i", input: "D VİTAMİNİ", wantID: 2},
		{name: "no match", input: "çinko", wantID: 0},
		{name: "empty", input: "", wantID: 0},
		{name: "whitespace", input: "   ", wantID: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			products, err := c.FindProducts(context.Background(), tc.input)
			require.NoError(t, err)
			if tc.wantID == 0 {
				assert.Empty(t, products)
				return
			}
			require.Len(t, products, 1)
			assert.Equal(t, tc.wantID, products[0].ID)
		})
	}
}

func TestStaticFirstEntryWins(t *testing.T) {
	t.Parallel()

	c := catalog.NewStatic([]catalog.Entry{
		{Keys: []string{"Vitamin"}, Products: []catalog.Product{{ID: 10}}},
		{Keys: []string{"vitamin c"}, Products: []catalog.Product{{ID: 20}}},
		{Keys: []string{"", "  "}, Products: []catalog.Product{{ID: 30}}},
	})

	products, err := c.FindProducts(context.Background(), "vitamin c")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(10), products[0].ID)

	products, err = c.FindProducts(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, products, "blank keys never match")
}

func TestStaticReturnsCopies(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	first, err := c.FindProducts(context.Background(), "omega")
	require.NoError(t, err)
	first[0].Name = "changed"

	second, err := c.FindProducts(context.Background(), "omega")
	require.NoError(t, err)
	assert.Equal(t, "Omega-3 Fish Oil Premium", second[0].Name)
}

type fakeSource struct {
	keys []string
	err  error
}

func (f *fakeSource) FindProductsByKey(_ context.Context, key string) ([]catalog.Product, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return []catalog.Product{{ID: 1, Name: key}}, nil
}

func TestSQLFindProducts(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	c := catalog.NewSQL(src)

	products, err := c.FindProducts(context.Background(), "  Magnezyum ")
	require.NoError(t, err)
	require.Len(t, products, 1)

	products, err = c.FindProducts(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, products)

	assert.Equal(t, []string{"magnezyum"}, src.keys, "blank names never reach storage")

	boom := errors.New("disk on fire")
	_, err = catalog.NewSQL(&fakeSource{err: boom}).FindProducts(context.Background(), "omega")
	assert.ErrorIs(t, err, boom)
}
