package domain

import "testing"

// TestNewSelectionDerivesOutputPath checks extension replacement rules.
func TestNewSelectionDerivesOutputPath(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"/videos/movie.mp4", "/videos/movie.mp3"},
		{"/videos/clip.mkv", "/videos/clip.mp3"},
		{"/videos/noext", "/videos/noext.mp3"},
		{"C:\\clips\\take.two.webm", "C:\\clips\\take.two.mp3"},
	}

	for _, tc := range cases {
		got := NewSelection(tc.input)
		if got.InputPath != tc.input {
			t.Fatalf("input path = %q, want %q", got.InputPath, tc.input)
		}
		if got.OutputPath != tc.want {
			t.Fatalf("output path for %q = %q, want %q", tc.input, got.OutputPath, tc.want)
		}
	}
}

// TestSelectionValid checks empty and whitespace-only inputs are rejected.
func TestSelectionValid(t *testing.T) {
	if (Selection{}).Valid() {
		t.Fatal("zero selection should be invalid")
	}
	if (Selection{InputPath: "   "}).Valid() {
		t.Fatal("whitespace selection should be invalid")
	}
	if !NewSelection("/a/b.mp4").Valid() {
		t.Fatal("expected valid selection")
	}
}
