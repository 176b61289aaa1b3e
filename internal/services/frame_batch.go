package services

import (
	"fmt"
	"math"
	"strings"
)

// BatchImage is one visual slot in a provider request: either a single
// sampled frame or a contact sheet tiling several consecutive frames.
type BatchImage struct {
	StartIndex int       // index of the first covered frame in the sampled sequence
	Timestamps []float64 // timestamps covered, in sampling order
	Sheet      bool      // true when frames are tiled into one sheet
}

// FrameBatch is the set of images sent in one provider request.
type FrameBatch struct {
	Images []BatchImage
}

// FrameCount returns the number of sampled frames the batch covers.
func (b FrameBatch) FrameCount() int {
	n := 0
	for _, img := range b.Images {
		n += len(img.Timestamps)
	}
	return n
}

// HasSheet reports whether any image in the batch is a contact sheet.
func (b FrameBatch) HasSheet() bool {
	for _, img := range b.Images {
		if img.Sheet {
			return true
		}
	}
	return false
}

// Timestamps returns all frame timestamps the batch covers, in order.
func (b FrameBatch) Timestamps() []float64 {
	out := make([]float64, 0, b.FrameCount())
	for _, img := range b.Images {
		out = append(out, img.Timestamps...)
	}
	return out
}

// PlanBatches packs sampled frame timestamps into provider requests.
// When everything fits under maxImages the frames go out as individual
// images in a single request. Otherwise consecutive frames are tiled
// into contact sheets of gridCols x gridCols cells, and the sheets are
// grouped maxImages per request.
func PlanBatches(timestamps []float64, maxImages, gridCols int) []FrameBatch {
	if len(timestamps) == 0 {
		return nil
	}
	if maxImages <= 0 {
		maxImages = 1
	}
	if gridCols <= 0 {
		gridCols = 4
	}

	if len(timestamps) <= maxImages {
		images := make([]BatchImage, len(timestamps))
		for i, ts := range timestamps {
			images[i] = BatchImage{StartIndex: i, Timestamps: []float64{ts}}
		}
		return []FrameBatch{{Images: images}}
	}

	cellsPerSheet := gridCols * gridCols
	var sheets []BatchImage
	for start := 0; start < len(timestamps); start += cellsPerSheet {
		end := start + cellsPerSheet
		if end > len(timestamps) {
			end = len(timestamps)
		}
		sheets = append(sheets, BatchImage{
			StartIndex: start,
			Timestamps: timestamps[start:end],
			Sheet:      true,
		})
	}

	var batches []FrameBatch
	for start := 0; start < len(sheets); start += maxImages {
		end := start + maxImages
		if end > len(sheets) {
			end = len(sheets)
		}
		batches = append(batches, FrameBatch{Images: sheets[start:end]})
	}
	return batches
}

// BatchManifest renders the image listing that accompanies a batch in
// the prompt, so the model can tie what it sees back to video time.
func BatchManifest(batch FrameBatch) string {
	var b strings.Builder
	for i, img := range batch.Images {
		if img.Sheet {
			b.WriteString(fmt.Sprintf("Image %d: contact sheet of %d frames at %s (read left to right, top to bottom)\n",
				i+1, len(img.Timestamps), formatTimestamps(img.Timestamps)))
		} else {
			b.WriteString(fmt.Sprintf("Image %d: frame at %.2fs\n", i+1, img.Timestamps[0]))
		}
	}
	return b.String()
}

func formatTimestamps(timestamps []float64) string {
	parts := make([]string, len(timestamps))
	for i, ts := range timestamps {
		parts[i] = fmt.Sprintf("%.2fs", ts)
	}
	return strings.Join(parts, ", ")
}

// SnapTimestamp maps a model-reported timestamp onto the nearest sampled
// frame time. Contact sheets lose per-pixel time resolution, so replies
// about them get snapped back to the frames that were actually shown.
// Ties resolve to the earlier frame.
func SnapTimestamp(ts float64, sampled []float64) float64 {
	if len(sampled) == 0 {
		return ts
	}
	best := sampled[0]
	bestDiff := math.Abs(ts - sampled[0])
	for _, s := range sampled[1:] {
		diff := math.Abs(ts - s)
		if diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}
	return best
}
