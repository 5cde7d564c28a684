package ingest

import (
	"strings"
	"testing"
)

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "typical", size: 1000, overlap: 200},
		{name: "no overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: true},
		{name: "overlap exceeds size", size: 10, overlap: 20, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSplitter(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	s, err := NewSplitter(10, 3)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("empty input", func(t *testing.T) {
		if got := s.Split(""); got != nil {
			t.Errorf("Split(\"\") = %v, want nil", got)
		}
	})

	t.Run("short input is one chunk", func(t *testing.T) {
		got := s.Split("short")
		if len(got) != 1 || got[0] != "short" {
			t.Errorf("Split(short) = %v", got)
		}
	})

	t.Run("exact size is one chunk", func(t *testing.T) {
		in := strings.Repeat("a", 10)
		got := s.Split(in)
		if len(got) != 1 || got[0] != in {
			t.Errorf("Split() = %v, want one full chunk", got)
		}
	})

	t.Run("chunks overlap", func(t *testing.T) {
		got := s.Split("abcdefghijklmnopqrstuvwxyz")
		if len(got) < 2 {
			t.Fatalf("Split() = %v, want multiple chunks", got)
		}
		for i := 1; i < len(got); i++ {
			prev, cur := []rune(got[i-1]), []rune(got[i])
			tail := string(prev[len(prev)-3:])
			head := string(cur[:min(3, len(cur))])
			if tail != head {
				t.Errorf("chunk %d head %q does not match previous tail %q", i, head, tail)
			}
		}
	})
}

// TestSplit_RoundTrip verifies no rune is lost at chunk boundaries:
// dropping each chunk's leading overlap reconstructs the original.
func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		strings.Repeat("abcdefg ", 40),
		"héllo wörld " + strings.Repeat("日本語テキスト", 20),
		strings.Repeat("x", 95),
		"exactly-ten",
	}

	const size, overlap = 10, 3
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatal(err)
	}

	for _, input := range inputs {
		chunks := s.Split(input)

		var rebuilt []rune
		for i, chunk := range chunks {
			runes := []rune(chunk)
			if i > 0 {
				runes = runes[overlap:]
			}
			rebuilt = append(rebuilt, runes...)
		}
		if got := string(rebuilt); got != input {
			t.Errorf("round trip lost data:\n got %q\nwant %q", got, input)
		}
	}
}

func TestSplit_MultiByteSafety(t *testing.T) {
	s, err := NewSplitter(4, 1)
	if err != nil {
		t.Fatal(err)
	}

	for _, chunk := range s.Split(strings.Repeat("日本語", 10)) {
		if !strings.ContainsRune("日本語", []rune(chunk)[0]) {
			t.Errorf("chunk %q starts mid-character", chunk)
		}
		for _, r := range chunk {
			if r == '�' {
				t.Errorf("chunk %q contains a replacement character", chunk)
			}
		}
	}
}
