package encoder

import (
	"fmt"
	"strconv"
	"strings"
)

// parseResolution parses a "1920x1080" style resolution string.
func parseResolution(s string) (w, h int, err error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoResolution, s)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoResolution, s)
	}
	return w, h, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// fitResolution scales a source's pixel-aspect-corrected dimensions to fit
// within (wantW, wantH) preserving aspect ratio. The display aspect is
// iw*sarNum : ih*sarDen reduced by gcd; the result is rounded down to even
// dimensions so every encoder accepts it.
func fitResolution(iw, ih, sarNum, sarDen, wantW, wantH int) (cw, ch int) {
	if iw <= 0 || ih <= 0 {
		return wantW, wantH
	}
	if sarNum <= 0 || sarDen <= 0 {
		sarNum, sarDen = 1, 1
	}

	p := iw * sarNum
	q := ih * sarDen
	g := gcd(p, q)
	p /= g
	q /= g

	if wantW*q <= wantH*p {
		cw = wantW
		ch = wantW * q / p
	} else {
		ch = wantH
		cw = wantH * p / q
	}

	cw -= cw % 2
	ch -= ch % 2
	return cw, ch
}
