package lint

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func writeJPEG(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return path
}

func TestCheckAssetIcon(t *testing.T) {
	report, err := CheckAsset("icon", writePNG(t, "icon.png", 512, 512))
	if err != nil {
		t.Fatalf("CheckAsset: %v", err)
	}
	if !report.OK {
		t.Fatalf("OK = false, issues = %v", report.Issues)
	}
	if report.Width != 512 || report.Height != 512 {
		t.Fatalf("dimensions = %dx%d, want 512x512", report.Width, report.Height)
	}
	if report.MIME != "image/png" {
		t.Fatalf("MIME = %q, want image/png", report.MIME)
	}
}

func TestCheckAssetIconWrongSize(t *testing.T) {
	report, err := CheckAsset("icon", writePNG(t, "icon.png", 500, 500))
	if err != nil {
		t.Fatalf("CheckAsset: %v", err)
	}
	if report.OK || len(report.Issues) != 1 {
		t.Fatalf("OK = %v, issues = %v", report.OK, report.Issues)
	}
}

func TestCheckAssetIconRejectsJPEG(t *testing.T) {
	report, err := CheckAsset("icon", writeJPEG(t, "icon.jpg", 512, 512))
	if err != nil {
		t.Fatalf("CheckAsset: %v", err)
	}
	if report.OK {
		t.Fatal("OK = true for JPEG icon")
	}
	if !strings.Contains(report.Issues[0], "PNG") {
		t.Fatalf("issues = %v, want PNG requirement", report.Issues)
	}
}

func TestCheckAssetFeatureGraphic(t *testing.T) {
	report, err := CheckAsset("featureGraphic", writeJPEG(t, "feature.jpg", 1024, 500))
	if err != nil {
		t.Fatalf("CheckAsset: %v", err)
	}
	if !report.OK {
		t.Fatalf("OK = false, issues = %v", report.Issues)
	}

	report, err = CheckAsset("featureGraphic", writePNG(t, "feature.png", 1024, 501))
	if err != nil {
		t.Fatalf("CheckAsset: %v", err)
	}
	if report.OK {
		t.Fatal("OK = true for 1024x501 feature graphic")
	}
}

func TestCheckAssetScreenshot(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		ok   bool
	}{
		{"portrait phone", 1080, 1920, true},
		{"landscape tablet", 1920, 1080, true},
		{"too narrow", 300, 600, false},
		{"too long", 2000, 4000, false},
		{"bad aspect", 500, 1500, false},
		{"square minimum", 320, 320, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := CheckAsset("phoneScreenshots", writePNG(t, "shot.png", tt.w, tt.h))
			if err != nil {
				t.Fatalf("CheckAsset: %v", err)
			}
			if report.OK != tt.ok {
				t.Fatalf("OK = %v, want %v (issues %v)", report.OK, tt.ok, report.Issues)
			}
		})
	}
}

func TestCheckAssetMissingFile(t *testing.T) {
	if _, err := CheckAsset("icon", filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
