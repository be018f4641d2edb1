package model

import (
	"encoding/json"
	"testing"
)

func TestHashURL_Deterministic(t *testing.T) {
	a := HashURL("https://example.com/a.png")
	b := HashURL("https://example.com/a.png")
	if a != b {
		t.Errorf("same URL hashed differently: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashURL("https://example.com/b.png") {
		t.Error("different URLs produced the same hash")
	}
}

func TestHashURL_KnownValue(t *testing.T) {
	// SHA-256 of the raw URL bytes, lowercase hex.
	got := HashURL("https://example.com/a.png")
	want := "494a30704d4f32ac0b81739d18a66d3638d440cbc6f5669f6af66f840edee5ab"
	if got != want {
		t.Errorf("HashURL = %q, want %q", got, want)
	}
}

func TestParseImageFormat(t *testing.T) {
	testCases := []struct {
		in      string
		want    ImageFormat
		wantErr bool
	}{
		{"", ImageFormatUASTC, false},
		{"UASTC", ImageFormatUASTC, false},
		{"ASTC", ImageFormatASTC, false},
		{"ASTC_HIGH", ImageFormatASTCHigh, false},
		{"astc", 0, true},
		{"WEBP", 0, true},
	}
	for _, tc := range testCases {
		got, err := ParseImageFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseImageFormat(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseImageFormat(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseImageFormat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseVideoFormat(t *testing.T) {
	testCases := []struct {
		in      string
		want    VideoFormat
		wantErr bool
	}{
		{"", VideoFormatMP4, false},
		{"MP4", VideoFormatMP4, false},
		{"OGV", VideoFormatOGV, false},
		{"mp4", 0, true},
		{"WEBM", 0, true},
	}
	for _, tc := range testCases {
		got, err := ParseVideoFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseVideoFormat(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVideoFormat(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseVideoFormat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatStringRoundTrip(t *testing.T) {
	for _, f := range []ImageFormat{ImageFormatUASTC, ImageFormatASTC, ImageFormatASTCHigh} {
		parsed, err := ParseImageFormat(f.String())
		if err != nil || parsed != f {
			t.Errorf("ImageFormat %v did not round-trip: parsed=%v err=%v", f, parsed, err)
		}
	}
	for _, f := range []VideoFormat{VideoFormatMP4, VideoFormatOGV} {
		parsed, err := ParseVideoFormat(f.String())
		if err != nil || parsed != f {
			t.Errorf("VideoFormat %v did not round-trip: parsed=%v err=%v", f, parsed, err)
		}
	}
}

func TestMediaClassTag(t *testing.T) {
	if got := MediaClassStaticImage.Tag(); got != "Image" {
		t.Errorf("StaticImage tag = %q, want Image", got)
	}
	if got := MediaClassMotionImage.Tag(); got != "Video" {
		t.Errorf("MotionImage tag = %q, want Video", got)
	}
	if got := MediaClassMotionVideo.Tag(); got != "Video" {
		t.Errorf("MotionVideo tag = %q, want Video", got)
	}
	if got := MediaClassOther.Tag(); got != "" {
		t.Errorf("Other tag = %q, want empty", got)
	}
}

func TestConversionJob_WireFormat(t *testing.T) {
	job := ConversionJob{
		Hash:        "abc",
		URL:         "https://example.com/a.png",
		ImageFormat: ImageFormatASTCHigh,
		VideoFormat: VideoFormatOGV,
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Formats travel as integers; the field names are part of the wire
	// contract with existing queue consumers.
	want := `{"Hash":"abc","URL":"https://example.com/a.png","ImageFormat":2,"VideoFormat":1}`
	if string(data) != want {
		t.Errorf("wire form = %s, want %s", data, want)
	}

	var decoded ConversionJob
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != job {
		t.Errorf("round-trip = %+v, want %+v", decoded, job)
	}
}
