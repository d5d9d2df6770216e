package file

import "testing"

func TestAccepted(t *testing.T) {
	cases := []struct {
		name      string
		mediaType string
		want      bool
	}{
		{"photo.png", "image/png", true},
		{"photo.JPG", "", true},
		{"scan.jpeg", "", true},
		{"song.mp3", "audio/mpeg", true},
		{"clip.weird", "audio/x-custom", true},
		{"notes.txt", "text/plain", false},
		{"report.pdf", "application/pdf", false},
		{"anim.gif", "image/gif", false},
	}

	for _, tc := range cases {
		if got := Accepted(tc.name, tc.mediaType); got != tc.want {
			t.Errorf("Accepted(%q, %q) = %v, want %v", tc.name, tc.mediaType, got, tc.want)
		}
	}
}

func TestCategory(t *testing.T) {
	if got := Category("photo.png"); got != "image" {
		t.Errorf("Category(photo.png) = %q, want image", got)
	}
	if got := Category("song.mp3"); got != "audio" {
		t.Errorf("Category(song.mp3) = %q, want audio", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
	}

	for _, tc := range cases {
		if got := FormatSize(tc.bytes); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}
