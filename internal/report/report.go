// Package report renders a run's results for external consumers: a JSON
// document for CI dashboards and an HTML page for humans. The JSON report
// doubles as the persisted run state consumed by approve and update.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/beholdci/behold/internal/snapshot"
)

// DefaultJSONName is the report filename written under the snapshot root.
const DefaultJSONName = "report.json"

// Report is the machine-readable outcome of one run.
type Report struct {
	Timestamp time.Time         `json:"timestamp"`
	Summary   snapshot.Summary  `json:"summary"`
	Results   []snapshot.Result `json:"results"`
}

// New builds a Report from a finished run.
func New(results []snapshot.Result, summary snapshot.Summary) *Report {
	if results == nil {
		results = []snapshot.Result{}
	}
	return &Report{
		Timestamp: time.Now().UTC(),
		Summary:   summary,
		Results:   results,
	}
}

// WriteJSON persists the report to path.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadJSON reads a previously written report from path.
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no run report at %s (run `behold run` first)", path)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}
