package split

// SlidingWindow splits text into ordered, overlapping windows of at most
// cfg.WindowSize runes. Split points are chosen by scanning cfg.Separators
// in priority order and taking the rightmost occurrence of the first
// separator found inside the window bound; the empty-string separator (and
// a list with no match at all) permits a hard cut at the bound. Consecutive
// windows share exactly cfg.WindowOverlap runes of the original text,
// except the final window which may be shorter than the others. Windows
// below cfg.MinChunkSize are dropped unless only one window was produced.
//
// The function is pure: output depends only on text and cfg, and positions
// are measured in runes so multi-byte text never splits mid-codepoint.
func SlidingWindow(text string, cfg Config) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var windows []string
	start := 0
	for {
		if n-start <= cfg.WindowSize {
			windows = append(windows, string(runes[start:]))
			break
		}
		cut := windowCut(runes, start, start+cfg.WindowSize, cfg)
		windows = append(windows, string(runes[start:cut]))
		next := cut - cfg.WindowOverlap
		if next <= start {
			// A cut inside the overlap region would stall the scan; skip
			// the overlap to keep moving forward.
			next = cut
		}
		start = next
	}

	return dropSmall(windows, cfg.MinChunkSize)
}

// windowCut picks the split position in (start, bound]. Separators are
// tried in priority order; within one separator the rightmost occurrence
// wins, maximizing window fill.
func windowCut(runes []rune, start, bound int, cfg Config) int {
	for _, sep := range cfg.Separators {
		if sep == "" {
			return bound
		}
		if cut := lastSeparatorCut(runes, []rune(sep), start, bound, cfg.KeepSeparator); cut > 0 {
			return cut
		}
	}
	return bound
}

// lastSeparatorCut returns the rightmost cut position for an occurrence of
// sep fully contained in [start, bound], or 0 when no occurrence yields a
// valid cut. With keepSeparator the cut lands after the separator, keeping
// it at the end of the left window; otherwise the cut lands before it and
// the separator text leads into the next window.
func lastSeparatorCut(runes, sep []rune, start, bound int, keepSeparator bool) int {
	for p := bound - len(sep); p >= start; p-- {
		if !runesHaveAt(runes, sep, p) {
			continue
		}
		cut := p
		if keepSeparator {
			cut = p + len(sep)
		}
		if cut > start {
			return cut
		}
		// Occurrences further left cut even earlier; give up on this
		// separator.
		return 0
	}
	return 0
}

func runesHaveAt(runes, sep []rune, p int) bool {
	for i := range sep {
		if runes[p+i] != sep[i] {
			return false
		}
	}
	return true
}

// dropSmall filters windows shorter than min runes. A sole window is always
// kept, and the first window survives as a fallback so non-empty input
// never produces zero output.
func dropSmall(windows []string, min int) []string {
	if min <= 0 || len(windows) <= 1 {
		return windows
	}
	kept := make([]string, 0, len(windows))
	for _, w := range windows {
		if len([]rune(w)) >= min {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return windows[:1]
	}
	return kept
}
