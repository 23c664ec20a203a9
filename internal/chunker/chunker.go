// Package chunker splits extracted text into bounded retrievable
// spans.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the target chunk length in characters.
const DefaultMaxChunkSize = 200

// Chunker splits text into chunks of at most MaxChunkSize characters,
// preferring sentence and word boundaries over hard cuts.
type Chunker struct {
	maxChunkSize int
}

// New creates a chunker. maxChunkSize <= 0 selects the default.
func New(maxChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &Chunker{maxChunkSize: maxChunkSize}
}

// Split breaks text into chunks. Whitespace-only input yields no
// chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.maxChunkSize
		if end >= len(text) {
			end = len(text)
		} else if bp := c.findBreakPoint(text, start, end); bp > start {
			end = bp
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}

// findBreakPoint looks backwards from maxEnd for a sentence ending,
// then a word boundary. Returns maxEnd when the span has neither.
func (c *Chunker) findBreakPoint(text string, start, maxEnd int) int {
	searchStart := maxEnd - c.maxChunkSize/2
	if searchStart < start {
		searchStart = start
	}
	window := text[searchStart:maxEnd]

	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	best := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(window, ender); idx != -1 {
			if end := idx + len(ender); end > best {
				best = end
			}
		}
	}
	if best > 0 {
		return searchStart + best
	}

	if idx := strings.LastIndexAny(window, " \n\t"); idx != -1 {
		return searchStart + idx + 1
	}

	// Hard cut. Back up so a multi-byte rune is never split across
	// chunks; spaceless scripts hit this path on every chunk.
	for maxEnd > start && !utf8.RuneStart(text[maxEnd]) {
		maxEnd--
	}
	if maxEnd == start {
		_, size := utf8.DecodeRuneInString(text[start:])
		return start + size
	}
	return maxEnd
}
