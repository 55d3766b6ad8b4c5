package utils

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	first := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	second := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00}
	streamData = append(streamData, first...)
	streamData = append(streamData, 0x42)
	streamData = append(streamData, second...)
	streamData = append(streamData, 0x00, 0x00)

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], first) {
		t.Errorf("Expected %X, got %X", first, got[0])
	}
	if !bytes.Equal(got[1], second) {
		t.Errorf("Expected %X, got %X", second, got[1])
	}
}

func TestSplitJpegTruncatedFrame(t *testing.T) {
	// A frame cut off mid-stream must not be emitted
	stream := []byte{0xFF, 0xD8, 0x01, 0x02}

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(SplitJpeg)

	if scanner.Scan() {
		t.Errorf("Expected no token, got %X", scanner.Bytes())
	}
}

func TestNewFFmpegCmd(t *testing.T) {
	cmd := NewFFmpegCmd("/dev/video0", "-f", "v4l2")

	want := []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0",
		"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "2", "-"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("Expected args %v, got %v", want, cmd.Args)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], cmd.Args[i])
		}
	}
	if cmd.Stderr == nil || cmd.Cmd.Stderr != cmd.Stderr {
		t.Error("Stderr buffer not attached")
	}
}

func TestModelFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, []byte("fake weights"), 0644); err != nil {
		t.Fatal(err)
	}

	id, err := ModelFingerprint(path)
	if err != nil || id == "" {
		t.Errorf("Failed to fingerprint model: %v", err)
	}

	// Verify Determinism
	id2, _ := ModelFingerprint(path)
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte(" retrained"))
	f.Close()

	id3, _ := ModelFingerprint(path)
	if id == id3 {
		t.Error("Hash did not change after file modification")
	}
}

func TestModelFingerprintMissingFile(t *testing.T) {
	_, err := ModelFingerprint(filepath.Join(t.TempDir(), "nope.tflite"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}
