package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/huangang/adsentry/pkg/logger"
)

// ProbeInfo holds container and stream metadata for a video file.
type ProbeInfo struct {
	Duration   float64 // seconds
	Width      int
	Height     int
	FrameRate  float64
	VideoCodec string
	AudioCodec string
	HasAudio   bool
	SizeBytes  int64
	BitRate    int64
	Format     string
}

// Executor shells out to ffmpeg/ffprobe for all media operations.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

// NewExecutor resolves the ffmpeg and ffprobe binaries from PATH.
func NewExecutor() (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.Component("ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// Probe extracts metadata from a video file. It fails if the file has no
// decodable video stream, which is what intake validation relies on.
func (e *Executor) Probe(ctx context.Context, filePath string) (*ProbeInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", filePath, err)
	}

	return parseProbeOutput(output)
}

// parseProbeOutput maps ffprobe JSON to a ProbeInfo.
func parseProbeOutput(data []byte) (*ProbeInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ProbeInfo{Format: probe.Format.FormatName}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = dur
	}
	if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		info.SizeBytes = size
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.BitRate = br
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			if stream.RFrameRate != "" {
				info.FrameRate = parseFrameRate(stream.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("no video stream found")
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseFrameRate parses ffprobe rational frame rates (e.g. "30000/1001").
func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ExtractFrame seeks to timestamp and decodes exactly one frame as a JPEG.
// ffmpeg can exit 0 without writing anything when the seek lands past the
// last frame, so the output file is checked afterwards.
func (e *Executor) ExtractFrame(ctx context.Context, input, output string, timestamp float64) error {
	if input == "" || output == "" {
		return fmt.Errorf("input and output paths are required")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, frameArgs(input, output, timestamp)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		e.logger.Debug().
			Str("input", input).
			Float64("timestamp", timestamp).
			Str("output", strings.TrimSpace(string(out))).
			Msg("frame extraction failed")
		return fmt.Errorf("frame extraction at %.2fs failed: %w", timestamp, err)
	}

	if fi, err := os.Stat(output); err != nil || fi.Size() == 0 {
		return fmt.Errorf("frame extraction at %.2fs produced no image", timestamp)
	}
	return nil
}

func frameArgs(input, output string, timestamp float64) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.2f", timestamp),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		output,
	}
}

// DetectScenes returns the timestamps (seconds) where the scene filter
// scores a cut above threshold.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	args := []string{
		"-hide_banner",
		"-i", input,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold),
		"-f", "null", "-",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	scenes := parseSceneTimes(string(out))
	e.logger.Debug().Int("scenes", len(scenes)).Str("input", input).Msg("scene detection complete")
	return scenes, nil
}

// parseSceneTimes extracts pts_time values from showinfo filter output.
func parseSceneTimes(output string) []float64 {
	var times []float64
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "pts_time:")
		if idx == -1 {
			continue
		}
		fields := strings.Fields(line[idx+len("pts_time:"):])
		if len(fields) == 0 {
			continue
		}
		if ts, err := strconv.ParseFloat(fields[0], 64); err == nil {
			times = append(times, ts)
		}
	}
	return times
}

// sheetCellWidth is the per-cell scale width for contact sheets.
const sheetCellWidth = 480

// ComposeSheet tiles count frames from a numbered image sequence into a
// single cols x rows grid, for providers with tight per-request image
// limits. pattern is an ffmpeg image2 pattern like dir/frame_%03d.jpg and
// startNumber selects where in the sequence the sheet begins.
func (e *Executor) ComposeSheet(ctx context.Context, pattern string, startNumber, count, cols int, output string) error {
	if pattern == "" || output == "" {
		return fmt.Errorf("pattern and output paths are required")
	}
	if count < 1 || cols < 1 {
		return fmt.Errorf("invalid sheet layout: count=%d cols=%d", count, cols)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	rows := (count + cols - 1) / cols
	cmd := exec.CommandContext(ctx, e.ffmpegPath, sheetArgs(pattern, startNumber, count, cols, rows, output)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		e.logger.Debug().
			Str("pattern", pattern).
			Str("output", strings.TrimSpace(string(out))).
			Msg("contact sheet generation failed")
		return fmt.Errorf("contact sheet generation failed: %w", err)
	}

	if fi, err := os.Stat(output); err != nil || fi.Size() == 0 {
		return fmt.Errorf("contact sheet generation produced no image")
	}
	return nil
}

func sheetArgs(pattern string, startNumber, count, cols, rows int, output string) []string {
	// select limits input to this sheet's frames so tile never pulls
	// frames that belong to the next sheet; tile pads a short final row.
	vf := fmt.Sprintf("select='lt(n,%d)',scale=%d:-1,tile=%dx%d", count, sheetCellWidth, cols, rows)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-start_number", fmt.Sprintf("%d", startNumber),
		"-i", pattern,
		"-vf", vf,
		"-frames:v", "1",
		"-q:v", "3",
		"-update", "1",
		output,
	}
}
