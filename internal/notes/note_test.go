package notes

import "testing"

func TestNextName(t *testing.T) {
	if got := NextName(nil); got != "Voice Note 1" {
		t.Errorf("Expected 'Voice Note 1', got %q", got)
	}
	if got := NextName([]VoiceNote{newNote(1), newNote(2)}); got != "Voice Note 3" {
		t.Errorf("Expected 'Voice Note 3', got %q", got)
	}
}

func TestFilter(t *testing.T) {
	list := []VoiceNote{
		{ID: "3", Name: "Morning Reflection"},
		{ID: "2", Name: "groceries"},
		{ID: "1", Name: "Evening reflection"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"3", "2", "1"}},
		{"   ", []string{}},
		{"reflection ", []string{}},
		{"ning ", []string{"3", "1"}},
		{"REFLECT", []string{"3", "1"}},
		{"gro", []string{"2"}},
		{"nothing", []string{}},
	}

	for _, tt := range tests {
		got := ids(Filter(list, tt.query))
		if len(got) != len(tt.want) {
			t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
				break
			}
		}
	}
}

func TestFormatMillis(t *testing.T) {
	tests := map[int64]string{
		-5:      "0:00",
		0:       "0:00",
		3000:    "0:03",
		59_600:  "1:00",
		61_000:  "1:01",
		600_000: "10:00",
	}
	for in, want := range tests {
		if got := FormatMillis(in); got != want {
			t.Errorf("FormatMillis(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCountLabel(t *testing.T) {
	if got := CountLabel(1); got != "1 recording" {
		t.Errorf("Expected singular label, got %q", got)
	}
	if got := CountLabel(0); got != "0 recordings" {
		t.Errorf("Expected plural label, got %q", got)
	}
}
