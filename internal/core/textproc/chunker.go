package textproc

import (
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 200

	// How far around the ideal boundary we look for a sentence end.
	boundaryLookbehind = 200
	boundaryLookahead  = 100
)

// Chunk is one segment of a longer text. Offsets count runes into the
// normalized text, not bytes of the raw input.
type Chunk struct {
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
}

// Split normalizes text and cuts it into overlapping segments of at
// most maxChunkSize runes, preferring to cut at sentence boundaries
// near the size target. Working in runes keeps every cut on a
// character boundary, so multi-byte scripts never come out as broken
// UTF-8. A text that fits in one chunk is returned whole. The cursor
// always moves forward, so splitting terminates even on pathological
// input.
func Split(text string, maxChunkSize, overlap int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = DefaultOverlap
	}

	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= maxChunkSize {
		return []Chunk{{Text: string(runes), Index: 0, StartOffset: 0, EndOffset: n}}
	}

	var chunks []Chunk
	idx := 0
	start := 0
	for start < n {
		end := start + maxChunkSize
		if end >= n {
			end = n
		} else if cut := sentenceCut(runes, end); cut > start {
			end = cut
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, Chunk{Text: piece, Index: idx, StartOffset: start, EndOffset: end})
			idx++
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			// Overlap would stall the cursor; jump to the cut point.
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceCut looks for a sentence terminator followed by a space or
// newline within [target-200, target+100] and returns the cut position
// just after the punctuation closest to the target, or -1 if none is
// found. Terminators are '.', '!', '?', and the Ethiopic full stop
// '።' used in Amharic.
func sentenceCut(runes []rune, target int) int {
	lo := target - boundaryLookbehind
	if lo < 0 {
		lo = 0
	}
	hi := target + boundaryLookahead
	if hi > len(runes)-1 {
		hi = len(runes) - 1
	}

	best, bestDist := -1, len(runes)+1
	for i := lo; i < hi; i++ {
		switch runes[i] {
		case '.', '!', '?', '።':
		default:
			continue
		}
		if next := runes[i+1]; next != ' ' && next != '\n' {
			continue
		}
		cut := i + 1
		dist := cut - target
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = cut
		}
	}
	return best
}
