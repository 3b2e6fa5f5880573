package lint

import (
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"
)

// AssetReport describes one local image checked against store specs.
type AssetReport struct {
	FilePath  string   `json:"file_path"`
	ImageType string   `json:"image_type"`
	MIME      string   `json:"mime"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	OK        bool     `json:"ok"`
	Issues    []string `json:"issues"`
}

// Canonical asset requirements from the console's published specs.
const (
	iconSize        = 512
	featureWidth    = 1024
	featureHeight   = 500
	screenshotMin   = 320
	screenshotMax   = 3840
	screenshotRatio = 2.0
)

// CheckAsset validates a local asset file for the given image type. The file
// must exist; a missing file is an error, not an issue.
func CheckAsset(imageType, filePath string) (*AssetReport, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(filePath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	report := &AssetReport{
		FilePath:  filePath,
		ImageType: imageType,
		MIME:      mimeType,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}

	switch imageType {
	case "icon":
		if mimeType != "image/png" {
			report.Issues = append(report.Issues, fmt.Sprintf("icon must be PNG (got %s)", mimeType))
		}
		if cfg.Width != iconSize || cfg.Height != iconSize {
			report.Issues = append(report.Issues,
				fmt.Sprintf("icon must be exactly %dx%d (got %dx%d)", iconSize, iconSize, cfg.Width, cfg.Height))
		}
	case "featureGraphic":
		if mimeType != "image/png" && mimeType != "image/jpeg" {
			report.Issues = append(report.Issues, fmt.Sprintf("feature graphic must be JPEG or PNG (got %s)", mimeType))
		}
		if cfg.Width != featureWidth || cfg.Height != featureHeight {
			report.Issues = append(report.Issues,
				fmt.Sprintf("feature graphic must be exactly %dx%d (got %dx%d)", featureWidth, featureHeight, cfg.Width, cfg.Height))
		}
	default:
		// Screenshot types share the same base constraints.
		if mimeType != "image/png" && mimeType != "image/jpeg" {
			report.Issues = append(report.Issues, fmt.Sprintf("screenshot must be JPEG or PNG (got %s)", mimeType))
		}
		long, short := cfg.Width, cfg.Height
		if short > long {
			long, short = short, long
		}
		if short < screenshotMin {
			report.Issues = append(report.Issues, fmt.Sprintf("shortest side must be >= %dpx (got %dpx)", screenshotMin, short))
		}
		if long > screenshotMax {
			report.Issues = append(report.Issues, fmt.Sprintf("longest side must be <= %dpx (got %dpx)", screenshotMax, long))
		}
		if float64(long) > float64(short)*screenshotRatio {
			report.Issues = append(report.Issues,
				fmt.Sprintf("longest side cannot exceed %.1fx shortest side (got %d/%d)", screenshotRatio, long, short))
		}
	}

	report.OK = len(report.Issues) == 0
	return report, nil
}
