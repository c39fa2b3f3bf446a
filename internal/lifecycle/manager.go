// Package lifecycle implements the user-invoked maintenance operations over
// a completed run: accepting changed baselines and pruning orphaned ones.
//
// Unlike the run loop, these operations propagate filesystem errors to the
// caller. They are explicit single-shot actions where silent partial
// failure is worse than a loud error.
package lifecycle

import (
	"fmt"

	"github.com/beholdci/behold/internal/log"
	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

// Manager mutates the baseline directory after a run.
type Manager struct {
	store  *snapshot.Store
	logger *log.Logger
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store *snapshot.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{store: store, logger: logger}
}

// Update unconditionally promotes the current image over the baseline for
// every result that has one, regardless of prior status. It is used to
// accept all changes after a reviewed run. Returns the number of baselines
// updated.
func (m *Manager) Update(results []snapshot.Result) (int, error) {
	updated := 0
	for _, r := range results {
		if !m.store.CurrentExists(r.Identity) {
			continue
		}
		if err := m.store.PromoteCurrent(r.Identity); err != nil {
			return updated, fmt.Errorf("update baseline: %w", err)
		}
		if err := m.store.RemoveDiff(r.Identity); err != nil {
			return updated, err
		}
		m.logger.Info("baseline updated", "identity", r.Identity.String())
		updated++
	}
	return updated, nil
}

// Approve promotes the baselines of failed results whose identity matches
// the glob pattern; an empty pattern approves all failures. Results with
// StatusError are never approved: capture itself failed, so there is no
// trustworthy current image to promote. Returns the number approved.
func (m *Manager) Approve(results []snapshot.Result, pattern string) (int, error) {
	approved := 0
	for _, r := range results {
		if r.Status != snapshot.StatusFailed {
			continue
		}
		if !r.Identity.Match(pattern) {
			continue
		}
		if !m.store.CurrentExists(r.Identity) {
			continue
		}
		if err := m.store.PromoteCurrent(r.Identity); err != nil {
			return approved, fmt.Errorf("approve baseline: %w", err)
		}
		if err := m.store.RemoveDiff(r.Identity); err != nil {
			return approved, err
		}
		m.logger.Info("baseline approved", "identity", r.Identity.String())
		approved++
	}
	return approved, nil
}

// CleanOrphans deletes baselines whose identity no longer corresponds to
// any declared (variant, viewport) combination. Skipped variants still
// count as declared, so their baselines survive. Returns the identities
// deleted.
func (m *Manager) CleanOrphans(variants []registry.Variant, viewports []snapshot.Viewport) ([]snapshot.Identity, error) {
	known := make(map[snapshot.Identity]struct{})
	for _, v := range variants {
		for _, vp := range viewports {
			known[snapshot.NewIdentity(v.Owner, v.Name, vp)] = struct{}{}
		}
	}

	baselines, err := m.store.ListBaselines()
	if err != nil {
		return nil, err
	}

	var deleted []snapshot.Identity
	for _, id := range baselines {
		if _, ok := known[id]; ok {
			continue
		}
		if err := m.store.RemoveBaseline(id); err != nil {
			return deleted, err
		}
		m.logger.Info("orphaned baseline removed", "identity", id.String())
		deleted = append(deleted, id)
	}

	return deleted, nil
}
