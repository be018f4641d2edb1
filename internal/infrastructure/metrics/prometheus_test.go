package metrics

import "testing"

func TestSizeBucket(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "<1MB"},
		{512 * 1024, "<1MB"},
		{1 << 20, "1-5MB"},
		{4 << 20, "1-5MB"},
		{5 << 20, "5-10MB"},
		{9 << 20, "5-10MB"},
		{10 << 20, ">10MB"},
		{500 << 20, ">10MB"},
	}

	for _, tt := range tests {
		if got := SizeBucket(tt.bytes); got != tt.want {
			t.Errorf("SizeBucket(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
