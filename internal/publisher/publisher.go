// Package publisher is the narrow interface to the remote store-listing
// service. Every mutating call opens a fresh edit, performs one operation,
// and commits it; read calls leave their edit to expire server-side.
package publisher

import (
	"context"
	"fmt"
)

// Listing is one localized store listing.
type Listing struct {
	Language         string `json:"language"`
	Title            string `json:"title,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	FullDescription  string `json:"fullDescription,omitempty"`
	Video            string `json:"video,omitempty"`
}

// ListingPatch carries the fields to change; nil fields are left untouched.
type ListingPatch struct {
	Title            *string
	ShortDescription *string
	FullDescription  *string
	Video            *string
}

// Empty reports whether the patch would change nothing.
func (p ListingPatch) Empty() bool {
	return p.Title == nil && p.ShortDescription == nil && p.FullDescription == nil && p.Video == nil
}

// Image describes one uploaded listing image.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
	SHA string `json:"sha256,omitempty"`
}

// Details holds app-level metadata (default language and support contacts).
type Details struct {
	DefaultLanguage string `json:"defaultLanguage,omitempty"`
	ContactEmail    string `json:"contactEmail,omitempty"`
	ContactPhone    string `json:"contactPhone,omitempty"`
	ContactWebsite  string `json:"contactWebsite,omitempty"`
}

// DetailsPatch carries the detail fields to change; nil fields are untouched.
type DetailsPatch struct {
	DefaultLanguage *string
	ContactEmail    *string
	ContactPhone    *string
	ContactWebsite  *string
}

// Editor is the content-API surface the orchestrator consumes. Failures are
// reported as *APIError and are never retried here.
type Editor interface {
	ListListings(ctx context.Context, packageName string) ([]Listing, error)
	GetListing(ctx context.Context, packageName, language string) (Listing, error)
	PatchListing(ctx context.Context, packageName, language string, patch ListingPatch, notForReview bool) (Listing, error)
	UpdateListing(ctx context.Context, packageName, language string, listing Listing, notForReview bool) (Listing, error)
	ListImages(ctx context.Context, packageName, language, imageType string) ([]Image, error)
	DeleteAllImages(ctx context.Context, packageName, language, imageType string, notForReview bool) error
	UploadImage(ctx context.Context, packageName, language, imageType, filePath, mimeType string, notForReview bool) (Image, error)
	GetDetails(ctx context.Context, packageName string) (Details, error)
	UpdateDetails(ctx context.Context, packageName string, patch DetailsPatch, notForReview bool) (Details, error)
}

// APIError wraps a collaborator failure with enough context to retry the
// call manually.
type APIError struct {
	Op          string
	PackageName string
	Language    string
	ImageType   string
	Err         error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s failed for %s", e.Op, e.PackageName)
	if e.Language != "" {
		msg += " [" + e.Language
		if e.ImageType != "" {
			msg += "/" + e.ImageType
		}
		msg += "]"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
