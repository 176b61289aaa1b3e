package media

// UniformTimestamps returns capture points spaced interval seconds apart
// across [0, duration), capped at maxFrames. When the cap bites, the
// interval is widened so the points still cover the full duration instead
// of truncating the tail.
func UniformTimestamps(duration, interval float64, maxFrames int) []float64 {
	if duration <= 0 || interval <= 0 || maxFrames < 1 {
		return nil
	}

	n := int(duration/interval) + 1
	if n > maxFrames {
		n = maxFrames
		interval = duration / float64(n)
	}

	ts := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := float64(i) * interval
		if t >= duration {
			break
		}
		ts = append(ts, t)
	}
	return ts
}

// SelectScenes thins a scene-change list down to at most maxFrames
// timestamps, keeping the spread even across the whole list. An empty
// result means the caller should fall back to uniform sampling.
func SelectScenes(scenes []float64, maxFrames int) []float64 {
	if maxFrames < 1 || len(scenes) == 0 {
		return nil
	}
	if len(scenes) <= maxFrames {
		out := make([]float64, len(scenes))
		copy(out, scenes)
		return out
	}
	if maxFrames == 1 {
		return []float64{scenes[0]}
	}

	out := make([]float64, maxFrames)
	step := float64(len(scenes)-1) / float64(maxFrames-1)
	for i := range out {
		out[i] = scenes[int(float64(i)*step+0.5)]
	}
	return out
}

// ClampTimestamp forces ts into [0, duration]. Out-of-range values reported
// by the reviewer are clamped to the nearest boundary, never discarded.
func ClampTimestamp(ts, duration float64) float64 {
	if ts < 0 {
		return 0
	}
	if duration >= 0 && ts > duration {
		return duration
	}
	return ts
}
