package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handleLookupStub struct {
	CommerceHub
	products []DestinationProduct
	err      error
}

func (s handleLookupStub) FindProductsByHandle(ctx context.Context, handle string) ([]DestinationProduct, error) {
	return s.products, s.err
}

func TestHandleAndSku(t *testing.T) {
	p := SourceProduct{ID: " 1234 "}
	v := SourceVariant{ID: "987"}

	assert.Equal(t, "1234", HandleFor(p))
	assert.Equal(t, "987", SkuFor(v))
}

func TestSelectByHandle(t *testing.T) {
	t.Run("not found when no candidate matches", func(t *testing.T) {
		p, err := SelectByHandle("10", []DestinationProduct{{ID: 1, Handle: "100"}})
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("single match", func(t *testing.T) {
		p, err := SelectByHandle("10", []DestinationProduct{{ID: 7, Handle: "10"}, {ID: 8, Handle: "11"}})
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.ID)
	})

	t.Run("multiple matches pick lowest id and flag ambiguity", func(t *testing.T) {
		p, err := SelectByHandle("10", []DestinationProduct{
			{ID: 30, Handle: "10"},
			{ID: 12, Handle: "10"},
			{ID: 20, Handle: "10"},
		})
		require.NotNil(t, p)
		assert.Equal(t, int64(12), p.ID)
		assert.ErrorIs(t, err, ErrAmbiguousMatch)
		assert.Contains(t, err.Error(), "[12,20,30]")
	})
}

func TestFindDestinationProduct(t *testing.T) {
	hub := handleLookupStub{products: []DestinationProduct{{ID: 5, Handle: "55"}}}

	p, err := FindDestinationProduct(context.Background(), hub, "55")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)

	_, err = FindDestinationProduct(context.Background(), handleLookupStub{err: ErrTransientNetwork}, "55")
	assert.ErrorIs(t, err, ErrTransientNetwork)
}

func TestBuildVariantSkuMap(t *testing.T) {
	p := &DestinationProduct{Variants: []DestinationVariant{
		{ID: 1, SKU: "a"},
		{ID: 2, SKU: ""},
		{ID: 3, SKU: "b"},
	}}

	m := BuildVariantSkuMap(p)
	assert.Len(t, m, 2)
	assert.Equal(t, int64(1), m["a"].ID)
	assert.Equal(t, int64(3), m["b"].ID)
	assert.Empty(t, BuildVariantSkuMap(nil))
}

func TestBuildImageAltSet(t *testing.T) {
	p := &DestinationProduct{Images: []DestinationImage{{Alt: "11"}, {Alt: ""}, {Alt: "12"}}}

	set := BuildImageAltSet(p)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "11")
	assert.Contains(t, set, "12")
	assert.Empty(t, BuildImageAltSet(nil))
}

func TestSourceVariant_Quantity(t *testing.T) {
	five, negative := 5, -2
	assert.Equal(t, UnlimitedStock, SourceVariant{}.Quantity())
	assert.Equal(t, 5, SourceVariant{Stock: &five}.Quantity())
	assert.Equal(t, 0, SourceVariant{Stock: &negative}.Quantity())
}
