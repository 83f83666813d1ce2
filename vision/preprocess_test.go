package vision

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPreprocessImageLayout(t *testing.T) {
	t.Parallel()

	const size = 8
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	data := PreprocessImage(img, size)

	if len(data) != 3*size*size {
		t.Fatalf("expected %d values, got %d", 3*size*size, len(data))
	}

	plane := size * size
	for i := 0; i < plane; i++ {
		if data[i] < 0.99 {
			t.Fatalf("red plane value %f at %d, want ~1.0", data[i], i)
		}
		if data[plane+i] > 0.01 || data[2*plane+i] > 0.01 {
			t.Fatalf("green/blue planes should be ~0 for a pure red image")
		}
	}
}

func TestPreprocessImageResizes(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 31, 17))
	data := PreprocessImage(img, 16)
	if len(data) != 3*16*16 {
		t.Fatalf("expected resize to 16x16 (%d values), got %d", 3*16*16, len(data))
	}

	for i, value := range data {
		if value < 0 || value > 1 {
			t.Fatalf("value %f at %d outside [0,1]", value, i)
		}
	}
}

func TestPreprocessFile(t *testing.T) {
	t.Parallel()

	path := writeTestPNG(t, 12, 12)
	data, err := PreprocessFile(path, 6)
	if err != nil {
		t.Fatalf("PreprocessFile returned error: %v", err)
	}
	if len(data) != 3*6*6 {
		t.Fatalf("expected %d values, got %d", 3*6*6, len(data))
	}
}

func TestPreprocessFileRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := PreprocessFile(path, 6); err == nil {
		t.Fatal("expected decode error for non-image data")
	}
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
	return path
}
