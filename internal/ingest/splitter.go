package ingest

import "fmt"

// Splitter cuts text into overlapping fixed-size segments. Sizes are in
// runes, not bytes, so multi-byte text never splits mid-character.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter. size must be positive and overlap
// must be smaller than size, otherwise the window would never advance.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the overlapping chunks of text. Consecutive chunks
// share the trailing overlap runes of the previous chunk; every rune of
// the input appears in at least one chunk. Empty input yields no
// chunks.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
