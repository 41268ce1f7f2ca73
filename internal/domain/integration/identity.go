package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// HandleFor returns the Commerce Hub handle of a Storefront product.
// The handle is the source product id, which makes lookup-before-create idempotent.
func HandleFor(p SourceProduct) string {
	return strings.TrimSpace(p.ID)
}

// SkuFor returns the Commerce Hub SKU of a Storefront variant
func SkuFor(v SourceVariant) string {
	return strings.TrimSpace(v.ID)
}

// SelectByHandle picks the product for handle among candidates.
// Candidates whose handle differs are ignored. When more than one remains the
// lowest id wins and ErrAmbiguousMatch is returned alongside it.
func SelectByHandle(handle string, candidates []DestinationProduct) (*DestinationProduct, error) {
	matches := make([]DestinationProduct, 0, len(candidates))
	for _, c := range candidates {
		if c.Handle == handle {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: handle %s", ErrProductNotFound, handle)
	case 1:
		return &matches[0], nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = FormatID(m.ID)
	}
	return &matches[0], fmt.Errorf("%w: handle %s matches products [%s]",
		ErrAmbiguousMatch, handle, strings.Join(ids, ","))
}

// FindDestinationProduct looks a product up by handle.
// Returns ErrProductNotFound when absent. On ErrAmbiguousMatch the chosen product is
// still returned so callers can decide whether to proceed.
func FindDestinationProduct(ctx context.Context, hub CommerceHub, handle string) (*DestinationProduct, error) {
	candidates, err := hub.FindProductsByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return SelectByHandle(handle, candidates)
}

// BuildVariantSkuMap indexes a product's variants by SKU.
// Variants without a SKU are skipped.
func BuildVariantSkuMap(p *DestinationProduct) map[string]DestinationVariant {
	out := make(map[string]DestinationVariant)
	if p == nil {
		return out
	}
	for _, v := range p.Variants {
		if v.SKU == "" {
			continue
		}
		out[v.SKU] = v
	}
	return out
}

// BuildImageAltSet returns the alt values of the images already uploaded to p
func BuildImageAltSet(p *DestinationProduct) map[string]struct{} {
	out := make(map[string]struct{})
	if p == nil {
		return out
	}
	for _, img := range p.Images {
		if img.Alt == "" {
			continue
		}
		out[img.Alt] = struct{}{}
	}
	return out
}
