// Package registry enumerates the component variants a project declares.
package registry

import (
	"context"
	"fmt"
	"strings"
)

// Variant is one named rendering of a component.
type Variant struct {
	// Owner is the component that declares the variant.
	Owner string
	// Name is the variant name.
	Name string
	// Skip excludes the variant from visual testing without removing its
	// declaration (its baselines are kept).
	Skip bool
}

// String renders the variant as "owner/name".
func (v Variant) String() string {
	return v.Owner + "/" + v.Name
}

// Registry yields a project's variants and resolves their preview
// addresses. The gallery dev server implements this in production; tests
// substitute a static registry.
type Registry interface {
	// Variants returns all declared variants, skipped ones included.
	Variants(ctx context.Context) ([]Variant, error)
	// Address resolves the preview URL for a variant.
	Address(v Variant) string
}

// Static is a Registry backed by a fixed variant list and a base URL.
type Static struct {
	baseURL  string
	variants []Variant
}

// NewStatic creates a registry serving the given variants, with preview
// addresses under baseURL.
func NewStatic(baseURL string, variants []Variant) *Static {
	return &Static{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		variants: variants,
	}
}

// Variants returns the declared variants.
func (s *Static) Variants(_ context.Context) ([]Variant, error) {
	out := make([]Variant, len(s.variants))
	copy(out, s.variants)
	return out, nil
}

// Address builds the preview URL for a variant.
func (s *Static) Address(v Variant) string {
	return fmt.Sprintf("%s/preview/%s/%s", s.baseURL, v.Owner, v.Name)
}
