// Package localization reports locale coverage for a package and clones a
// localized listing into another locale, optionally mirroring its images.
package localization

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"storelab/internal/publisher"
)

// CoverageReport lists the locales a package has listings for.
type CoverageReport struct {
	PackageName     string   `json:"package_name"`
	DefaultLanguage string   `json:"default_language,omitempty"`
	Locales         []string `json:"locales"`
	Count           int      `json:"count"`
	Missing         []string `json:"missing,omitempty"`
	Extra           []string `json:"extra,omitempty"`
}

// Coverage returns the sorted locales present for a package, plus the app's
// default language. When targets is non-empty the report also carries
// missing (wanted, absent) and extra (present, unwanted) locales.
func Coverage(ctx context.Context, editor publisher.Editor, packageName string, targets []string) (*CoverageReport, error) {
	listings, err := editor.ListListings(ctx, packageName)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	details, err := editor.GetDetails(ctx, packageName)
	if err != nil {
		return nil, fmt.Errorf("get app details: %w", err)
	}

	present := make(map[string]bool, len(listings))
	report := &CoverageReport{PackageName: packageName, DefaultLanguage: details.DefaultLanguage}
	for _, l := range listings {
		present[l.Language] = true
		report.Locales = append(report.Locales, l.Language)
	}
	sort.Strings(report.Locales)
	report.Count = len(report.Locales)

	if len(targets) > 0 {
		wanted := make(map[string]bool, len(targets))
		for _, t := range targets {
			wanted[t] = true
			if !present[t] {
				report.Missing = append(report.Missing, t)
			}
		}
		for _, locale := range report.Locales {
			if !wanted[locale] {
				report.Extra = append(report.Extra, locale)
			}
		}
		sort.Strings(report.Missing)
		sort.Strings(report.Extra)
	}
	return report, nil
}

// CloneResult summarizes one listing clone.
type CloneResult struct {
	PackageName    string         `json:"package_name"`
	Source         string         `json:"source"`
	Destination    string         `json:"destination"`
	TextCopied     bool           `json:"text_copied"`
	MirroredImages map[string]int `json:"mirrored_images,omitempty"`
}

// Cloner copies listings between locales. Image mirroring downloads each
// source image over HTTP and re-uploads it, so the download client keeps a
// short fixed timeout.
type Cloner struct {
	Editor publisher.Editor
	HTTP   *http.Client
}

// NewCloner returns a Cloner over the given editor.
func NewCloner(editor publisher.Editor) *Cloner {
	return &Cloner{
		Editor: editor,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

// CloneListing copies the source locale's text and video onto the destination
// locale via a full listing update. When imageTypes is non-empty each named
// type is mirrored: destination images deleted, then every source image
// downloaded and re-uploaded in order. Sequential, no retries; a failed
// mirror leaves the text clone in place.
func (c *Cloner) CloneListing(ctx context.Context, packageName, source, destination string, imageTypes []string) (*CloneResult, error) {
	if source == destination {
		return nil, fmt.Errorf("source and destination locales are both %q", source)
	}

	src, err := c.Editor.GetListing(ctx, packageName, source)
	if err != nil {
		return nil, fmt.Errorf("get source listing: %w", err)
	}

	clone := src
	clone.Language = destination
	if _, err := c.Editor.UpdateListing(ctx, packageName, destination, clone, true); err != nil {
		return nil, fmt.Errorf("update destination listing: %w", err)
	}

	result := &CloneResult{
		PackageName: packageName,
		Source:      source,
		Destination: destination,
		TextCopied:  true,
	}

	for _, imageType := range imageTypes {
		n, err := c.mirrorImages(ctx, packageName, source, destination, imageType)
		if err != nil {
			return result, fmt.Errorf("mirror %s: %w", imageType, err)
		}
		if result.MirroredImages == nil {
			result.MirroredImages = make(map[string]int)
		}
		result.MirroredImages[imageType] = n
	}
	return result, nil
}

func (c *Cloner) mirrorImages(ctx context.Context, packageName, source, destination, imageType string) (int, error) {
	images, err := c.Editor.ListImages(ctx, packageName, source, imageType)
	if err != nil {
		return 0, fmt.Errorf("list source images: %w", err)
	}
	if err := c.Editor.DeleteAllImages(ctx, packageName, destination, imageType, true); err != nil {
		return 0, fmt.Errorf("clear destination: %w", err)
	}

	uploaded := 0
	for _, img := range images {
		path, mimeType, err := c.download(ctx, img.URL)
		if err != nil {
			return uploaded, fmt.Errorf("download %s: %w", img.ID, err)
		}
		_, upErr := c.Editor.UploadImage(ctx, packageName, destination, imageType, path, mimeType, true)
		_ = os.Remove(path)
		if upErr != nil {
			return uploaded, fmt.Errorf("upload %s: %w", img.ID, upErr)
		}
		uploaded++
	}
	return uploaded, nil
}

// download fetches an image URL into a temp file and reports its media type.
// The caller removes the file.
func (c *Cloner) download(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.CreateTemp("", "storelab-clone-*")
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return f.Name(), mimeType, nil
}

func (c *Cloner) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
