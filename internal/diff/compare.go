// Package diff computes perceptual pixel differences between two screenshots.
//
// The per-pixel metric is a weighted distance in YIQ color space. Luma
// carries roughly five times the weight of chroma, so anti-aliasing-scale
// color shifts do not dominate the score the way a naive RGB Euclidean
// distance would.
package diff

import (
	"github.com/beholdci/behold/internal/imaging"
)

// PixelThreshold is the per-pixel cutoff: a pixel counts as different when
// its YIQ delta exceeds PixelThreshold * 255^2. This is internal to the
// comparator and distinct from the run-level percentage threshold.
const PixelThreshold = 0.1

// YIQ conversion coefficients. These are part of the comparison contract;
// changing them changes pass/fail behavior.
const (
	yR, yG, yB = 0.29889531, 0.58662247, 0.11448223
	iR, iG, iB = 0.59597799, -0.27417610, -0.32180189
	qR, qG, qB = 0.21147017, -0.52261711, 0.31114694
)

// Channel weights for the squared YIQ delta.
const (
	wY = 0.5053
	wI = 0.299
	wQ = 0.1957
)

// Result holds the outcome of comparing two equally-addressed images.
type Result struct {
	// DiffImage visualizes differing pixels in red over a dimmed grayscale
	// rendering of the current image.
	DiffImage *imaging.Buffer
	// DiffPixels is the count of pixels classified as different.
	DiffPixels int
	// TotalPixels is the pixel count of the compared area.
	TotalPixels int
	// DiffPercentage is 100 * DiffPixels / TotalPixels.
	DiffPercentage float64
}

// Compare computes the perceptual difference between baseline and current.
//
// A dimension mismatch is always a total mismatch: the diff image takes the
// larger of the two sizes per axis, every pixel is flagged, and the
// percentage is 100. Partial scoring of differently-sized captures would
// produce meaningless numbers.
func Compare(baseline, current *imaging.Buffer) Result {
	if baseline.Width() != current.Width() || baseline.Height() != current.Height() {
		return dimensionMismatch(baseline, current)
	}

	width, height := baseline.Width(), baseline.Height()
	out := imaging.NewBuffer(width, height)
	total := width * height
	differing := 0

	cutoff := PixelThreshold * 255 * 255

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			br, bg, bb, ba := baseline.Pixel(x, y)
			cr, cg, cb, ca := current.Pixel(x, y)

			r1, g1, b1 := blendWhite(br, bg, bb, ba)
			r2, g2, b2 := blendWhite(cr, cg, cb, ca)

			y1, i1, q1 := toYIQ(r1, g1, b1)
			y2, i2, q2 := toYIQ(r2, g2, b2)

			dy, di, dq := y1-y2, i1-i2, q1-q2
			delta := wY*dy*dy + wI*di*di + wQ*dq*dq

			if delta > cutoff {
				differing++
				out.SetPixel(x, y, 255, 0, 0, 255)
			} else {
				// Unchanged pixels render as half-transparent grayscale so
				// the diff stays readable as a silhouette.
				gray := uint8(y2)
				out.SetPixel(x, y, gray, gray, gray, 128)
			}
		}
	}

	return Result{
		DiffImage:      out,
		DiffPixels:     differing,
		TotalPixels:    total,
		DiffPercentage: percentage(differing, total),
	}
}

func dimensionMismatch(baseline, current *imaging.Buffer) Result {
	width := baseline.Width()
	if current.Width() > width {
		width = current.Width()
	}
	height := baseline.Height()
	if current.Height() > height {
		height = current.Height()
	}

	out := imaging.NewBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetPixel(x, y, 255, 0, 0, 255)
		}
	}

	total := width * height
	return Result{
		DiffImage:      out,
		DiffPixels:     total,
		TotalPixels:    total,
		DiffPercentage: 100,
	}
}

// blendWhite composites a pixel against a white background in proportion to
// its transparency. Screenshots are assumed to sit on a white canvas.
func blendWhite(r, g, b, a uint8) (float64, float64, float64) {
	if a == 255 {
		return float64(r), float64(g), float64(b)
	}
	alpha := float64(a) / 255
	return 255 + (float64(r)-255)*alpha,
		255 + (float64(g)-255)*alpha,
		255 + (float64(b)-255)*alpha
}

func toYIQ(r, g, b float64) (float64, float64, float64) {
	return yR*r + yG*g + yB*b,
		iR*r + iG*g + iB*b,
		qR*r + qG*g + qB*b
}

func percentage(differing, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(differing) / float64(total)
}
