package snapshot

import (
	"fmt"
	"path"
	"strings"
)

// fileNameSeparator joins the identity parts in snapshot filenames.
const fileNameSeparator = "--"

// Identity is the deterministic key for one test target: the component that
// owns the variant, the variant name, and the viewport label. It locates
// all three images (baseline, current, diff) for that target.
type Identity struct {
	Owner         string `json:"owner"`
	Variant       string `json:"variant"`
	ViewportLabel string `json:"viewport"`
}

// NewIdentity builds an Identity for a variant at a viewport.
func NewIdentity(owner, variant string, viewport Viewport) Identity {
	return Identity{Owner: owner, Variant: variant, ViewportLabel: viewport.Label()}
}

// String renders the identity as "owner/variant@viewport".
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s@%s", id.Owner, id.Variant, id.ViewportLabel)
}

// FileName returns the image filename for this identity.
func (id Identity) FileName() string {
	return id.Owner + fileNameSeparator + id.Variant + fileNameSeparator + id.ViewportLabel + ".png"
}

// Match reports whether the identity matches a glob pattern. Patterns are
// tried against "owner/variant" and the full "owner/variant@viewport" form,
// so "*/default" narrows by variant and "Btn/*@mobile" by viewport.
func (id Identity) Match(pattern string) bool {
	if pattern == "" {
		return true
	}
	short := id.Owner + "/" + id.Variant
	if ok, err := path.Match(pattern, short); err == nil && ok {
		return true
	}
	ok, err := path.Match(pattern, id.String())
	return err == nil && ok
}

// ParseFileName recovers an Identity from a snapshot filename. It returns
// false for files that do not follow the owner--variant--viewport.png form.
func ParseFileName(name string) (Identity, bool) {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return Identity{}, false
	}

	parts := strings.Split(base, fileNameSeparator)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Identity{}, false
	}

	return Identity{Owner: parts[0], Variant: parts[1], ViewportLabel: parts[2]}, true
}
