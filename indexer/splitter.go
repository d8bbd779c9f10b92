package indexer

import "strings"

// Splitter divides a document into overlapping chunks so each indexed unit
// stays within the embedding model's useful context, preferring to break on
// paragraph and sentence boundaries before falling back to raw characters.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// DefaultSplitter matches the ingestion parameters the knowledge base was
// originally built with.
func DefaultSplitter() Splitter {
	return Splitter{ChunkSize: 800, Overlap: 100}
}

var separators = []string{"\n\n", "\n", " "}

// Split divides text into chunks of at most ChunkSize characters, with
// Overlap characters carried over between consecutive chunks.
func (s Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := min(start+s.ChunkSize, len(text))

		// Prefer the latest natural boundary in the window.
		if end < len(text) {
			if cut := s.lastBoundary(text[start:end]); cut > s.Overlap {
				end = start + cut
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
		start = max(end-s.Overlap, start+1)
	}
	return chunks
}

// lastBoundary returns the index just past the last separator occurrence in
// window, or 0 when none is found.
func (s Splitter) lastBoundary(window string) int {
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return 0
}
