package media

import (
	"math"
	"strings"
	"testing"
)

const sampleProbeJSON = `{
    "streams": [
        {
            "codec_name": "h264",
            "codec_type": "video",
            "width": 1920,
            "height": 1080,
            "r_frame_rate": "30000/1001"
        },
        {
            "codec_name": "aac",
            "codec_type": "audio",
            "r_frame_rate": "0/0"
        }
    ],
    "format": {
        "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
        "duration": "120.500000",
        "size": "10485760",
        "bit_rate": "696254"
    }
}`

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	if info.Duration != 120.5 {
		t.Errorf("duration = %v, want 120.5", info.Duration)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.VideoCodec != "h264" {
		t.Errorf("video codec = %q, want h264", info.VideoCodec)
	}
	if !info.HasAudio || info.AudioCodec != "aac" {
		t.Errorf("audio = %v/%q, want true/aac", info.HasAudio, info.AudioCodec)
	}
	if info.SizeBytes != 10485760 {
		t.Errorf("size = %d, want 10485760", info.SizeBytes)
	}
	if math.Abs(info.FrameRate-29.97) > 0.01 {
		t.Errorf("frame rate = %v, want ~29.97", info.FrameRate)
	}
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	audioOnly := `{
        "streams": [{"codec_name": "mp3", "codec_type": "audio"}],
        "format": {"duration": "60.0"}
    }`
	if _, err := parseProbeOutput([]byte(audioOnly)); err == nil {
		t.Error("expected error for file without video stream")
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("expected error for malformed probe output")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"30/1", 30},
		{"25/1", 25},
		{"30000/1001", 29.97},
		{"0/0", 0},
		{"bad", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseFrameRate(tt.input)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("parseFrameRate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSceneTimes(t *testing.T) {
	output := `[Parsed_showinfo_1 @ 0x7f8] n:   0 pts:  90090 pts_time:3.003   duration_time:0.033367
[Parsed_showinfo_1 @ 0x7f8] n:   1 pts: 270270 pts_time:9.009   duration_time:0.033367
frame=    2 fps=0.0 q=-0.0 size=N/A
[Parsed_showinfo_1 @ 0x7f8] n:   2 pts: 540540 pts_time:18.018  duration_time:0.033367`

	times := parseSceneTimes(output)
	if len(times) != 3 {
		t.Fatalf("expected 3 scene times, got %d: %v", len(times), times)
	}

	want := []float64{3.003, 9.009, 18.018}
	for i, w := range want {
		if math.Abs(times[i]-w) > 0.0001 {
			t.Errorf("scene %d = %v, want %v", i, times[i], w)
		}
	}
}

func TestParseSceneTimesEmpty(t *testing.T) {
	if times := parseSceneTimes("frame=0 fps=0.0\nnothing here"); len(times) != 0 {
		t.Errorf("expected no scene times, got %v", times)
	}
}

func TestFrameArgs(t *testing.T) {
	args := frameArgs("in.mp4", "out.jpg", 12.3456)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-ss 12.35") {
		t.Errorf("expected seek rounded to hundredths, got %q", joined)
	}
	if !strings.Contains(joined, "-frames:v 1") {
		t.Errorf("expected single frame output, got %q", joined)
	}
	if args[len(args)-1] != "out.jpg" {
		t.Errorf("expected output path last, got %q", args[len(args)-1])
	}
}

func TestSheetArgs(t *testing.T) {
	args := sheetArgs("frames/sample_%03d.jpg", 16, 10, 4, 3, "sheet.jpg")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-start_number 16") {
		t.Errorf("expected sequence offset 16, got %q", joined)
	}
	if !strings.Contains(joined, "select='lt(n,10)'") {
		t.Errorf("expected input limited to 10 frames, got %q", joined)
	}
	if !strings.Contains(joined, "tile=4x3") {
		t.Errorf("expected 4x3 tile filter, got %q", joined)
	}
}
