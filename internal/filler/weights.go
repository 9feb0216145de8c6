package filler

import "math"

// Clip lottery weights. Both functions compress their input into a small
// integer so that recency and duration contribute on comparable scales:
// a clip unseen for longer scores higher, and longer clips score slightly
// higher so a gap is covered by fewer splices.

// durationWeight maps a clip duration in milliseconds to its lottery weight
// component. Durations are measured in minutes and dampened logarithmically
// past three minutes.
func durationWeight(durationMs int64) int64 {
	x := float64(durationMs) / 60000
	if x >= 3 {
		x = 3 + math.Log(x)
	}
	y := math.Ceil(1000 * x)
	return int64(math.Ceil((10000*y+10000)/1e6)) + 1
}

// recencyWeight maps time-since-last-play in milliseconds to its lottery
// weight component. Growth is quadratic in the (scaled) age so long-unseen
// clips pull ahead quickly.
func recencyWeight(sinceMs int64) int64 {
	t := math.Ceil(float64(sinceMs)/600) + 1
	return int64(math.Ceil(t*t/1e6)) + 1
}

// clipWeight is the combined lottery weight of a clip.
func clipWeight(sinceMs, durationMs int64) int64 {
	if sinceMs > maxRecencyMs {
		sinceMs = maxRecencyMs
	}
	return recencyWeight(sinceMs) + durationWeight(durationMs)
}
