package snapshot

import "fmt"

// Viewport represents the rendering surface a variant is captured at.
type Viewport struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"device_scale_factor,omitempty"`
	Name              string  `json:"name,omitempty"`
}

// Label returns the viewport's identity label: its name when set, otherwise
// "{width}x{height}".
func (v Viewport) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Scale returns the device scale factor, defaulting to 1.
func (v Viewport) Scale() float64 {
	if v.DeviceScaleFactor < 1 {
		return 1
	}
	return v.DeviceScaleFactor
}

// Status classifies the outcome of a single capture.
type Status string

const (
	// StatusNew means no baseline existed; the capture became the baseline.
	StatusNew Status = "new"
	// StatusPassed means the capture matched the baseline within threshold.
	StatusPassed Status = "passed"
	// StatusFailed means the capture differed beyond the threshold.
	StatusFailed Status = "failed"
	// StatusError means capture or comparison itself failed; the result
	// carries no meaningful visual signal.
	StatusError Status = "error"
)

// Paths locates the three images belonging to one snapshot identity.
type Paths struct {
	Baseline string `json:"baseline"`
	Current  string `json:"current"`
	Diff     string `json:"diff"`
}

// Result is the immutable outcome of one (variant, viewport) capture.
type Result struct {
	Identity       Identity `json:"identity"`
	Viewport       Viewport `json:"viewport"`
	Status         Status   `json:"status"`
	DiffPercentage float64  `json:"diff_percentage"`
	DiffPixels     int      `json:"diff_pixels"`
	TotalPixels    int      `json:"total_pixels"`
	ErrorMessage   string   `json:"error,omitempty"`
	Paths          Paths    `json:"paths"`
}

// Summary aggregates a run's results. It is always derived from the result
// list, never mutated independently.
type Summary struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	New        int   `json:"new"`
	Skipped    int   `json:"skipped"`
	DurationMs int64 `json:"duration_ms"`
}

// Summarize derives a Summary from a result list.
func Summarize(results []Result, durationMs int64) Summary {
	s := Summary{Total: len(results), DurationMs: durationMs}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusNew:
			s.New++
		case StatusError:
			s.Skipped++
		}
	}
	return s
}
