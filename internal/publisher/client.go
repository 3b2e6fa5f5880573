package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultBaseURL   = "https://androidpublisher.googleapis.com/androidpublisher/v3"
	defaultUploadURL = "https://androidpublisher.googleapis.com/upload/androidpublisher/v3"
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token, used in tests and
// with externally refreshed credentials.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client is the REST implementation of Editor against the publisher edits
// API. Calls block with no retry or backoff.
type Client struct {
	HTTPClient *http.Client
	Tokens     TokenSource
	BaseURL    string
	UploadURL  string
}

var _ Editor = (*Client)(nil)

// NewClient returns a Client using http.DefaultClient.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Tokens:     tokens,
		BaseURL:    defaultBaseURL,
		UploadURL:  defaultUploadURL,
	}
}

type editResponse struct {
	ID string `json:"id"`
}

type listingsResponse struct {
	Listings []Listing `json:"listings"`
}

type imagesResponse struct {
	Images []Image `json:"images"`
}

type imageUploadResponse struct {
	Image Image `json:"image"`
}

// ListListings returns all localized listings attached to a fresh edit.
func (c *Client) ListListings(ctx context.Context, packageName string) ([]Listing, error) {
	const op = "list listings"
	editID, err := c.beginEdit(ctx, packageName)
	if err != nil {
		return nil, &APIError{Op: op, PackageName: packageName, Err: err}
	}
	var resp listingsResponse
	if err := c.call(ctx, http.MethodGet, c.editPath(packageName, editID, "listings"), nil, nil, &resp); err != nil {
		return nil, &APIError{Op: op, PackageName: packageName, Err: err}
	}
	return resp.Listings, nil
}

// GetListing returns one localized listing.
func (c *Client) GetListing(ctx context.Context, packageName, language string) (Listing, error) {
	const op = "get listing"
	editID, err := c.beginEdit(ctx, packageName)
	if err != nil {
		return Listing{}, &APIError{Op: op, PackageName: packageName, Language: language, Err: err}
	}
	var listing Listing
	if err := c.call(ctx, http.MethodGet, c.editPath(packageName, editID, "listings", language), nil, nil, &listing); err != nil {
		return Listing{}, &APIError{Op: op, PackageName: packageName, Language: language, Err: err}
	}
	return listing, nil
}

// PatchListing updates only the non-nil patch fields and commits the edit.
func (c *Client) PatchListing(ctx context.Context, packageName, language string, patch ListingPatch, notForReview bool) (Listing, error) {
	const op = "patch listing"
	body := map[string]string{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.ShortDescription != nil {
		body["shortDescription"] = *patch.ShortDescription
	}
	if patch.FullDescription != nil {
		body["fullDescription"] = *patch.FullDescription
	}
	if patch.Video != nil {
		body["video"] = *patch.Video
	}

	var listing Listing
	err := c.withCommit(ctx, packageName, notForReview, func(editID string) error {
		return c.call(ctx, http.MethodPatch, c.editPath(packageName, editID, "listings", language), nil, body, &listing)
	})
	if err != nil {
		return Listing{}, &APIError{Op: op, PackageName: packageName, Language: language, Err: err}
	}
	return listing, nil
}

// UpdateListing creates or replaces a localized listing and commits the edit.
func (c *Client) UpdateListing(ctx context.Context, packageName, language string, listing Listing, notForReview bool) (Listing, error) {
	const op = "update listing"
	var updated Listing
	err := c.withCommit(ctx, packageName, notForReview, func(editID string) error {
		return c.call(ctx, http.MethodPut, c.editPath(packageName, editID, "listings", language), nil, listing, &updated)
	})
	if err != nil {
		return Listing{}, &APIError{Op: op, PackageName: packageName, Language: language, Err: err}
	}
	return updated, nil
}

// ListImages lists images of one type for a language.
func (c *Client) ListImages(ctx context.Context, packageName, language, imageType string) ([]Image, error) {
	const op = "list images"
	editID, err := c.beginEdit(ctx, packageName)
	if err != nil {
		return nil, &APIError{Op: op, PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	var resp imagesResponse
	if err := c.call(ctx, http.MethodGet, c.editPath(packageName, editID, "listings", language, imageType), nil, nil, &resp); err != nil {
		return nil, &APIError{Op: op, PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	return resp.Images, nil
}

// DeleteAllImages removes every image of one type for a language and commits.
func (c *Client) DeleteAllImages(ctx context.Context, packageName, language, imageType string, notForReview bool) error {
	const op = "delete images"
	err := c.withCommit(ctx, packageName, notForReview, func(editID string) error {
		return c.call(ctx, http.MethodDelete, c.editPath(packageName, editID, "listings", language, imageType), nil, nil, nil)
	})
	if err != nil {
		return &APIError{Op: op, PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	return nil
}

// UploadImage uploads one local file and commits. The MIME type is guessed
// from the filename when not supplied.
func (c *Client) UploadImage(ctx context.Context, packageName, language, imageType, filePath, mimeType string, notForReview bool) (Image, error) {
	const op = "upload image"
	fail := func(err error) (Image, error) {
		return Image{}, &APIError{Op: op, PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fail(fmt.Errorf("read %s: %w", filePath, err))
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(filePath))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
	}

	var resp imageUploadResponse
	err = c.withCommit(ctx, packageName, notForReview, func(editID string) error {
		uploadPath := c.UploadURL + "/applications/" + url.PathEscape(packageName) +
			"/edits/" + url.PathEscape(editID) +
			"/listings/" + url.PathEscape(language) + "/" + url.PathEscape(imageType)
		return c.do(ctx, http.MethodPost, uploadPath, url.Values{"uploadType": {"media"}}, mimeType, bytes.NewReader(data), &resp)
	})
	if err != nil {
		return fail(err)
	}
	return resp.Image, nil
}

// GetDetails fetches app details on a fresh edit.
func (c *Client) GetDetails(ctx context.Context, packageName string) (Details, error) {
	const op = "get details"
	editID, err := c.beginEdit(ctx, packageName)
	if err != nil {
		return Details{}, &APIError{Op: op, PackageName: packageName, Err: err}
	}
	var details Details
	if err := c.call(ctx, http.MethodGet, c.editPath(packageName, editID, "details"), nil, nil, &details); err != nil {
		return Details{}, &APIError{Op: op, PackageName: packageName, Err: err}
	}
	return details, nil
}

// UpdateDetails sends only the non-nil patch fields and commits the edit.
func (c *Client) UpdateDetails(ctx context.Context, packageName string, patch DetailsPatch, notForReview bool) (Details, error) {
	const op = "update details"
	body := map[string]string{}
	if patch.DefaultLanguage != nil {
		body["defaultLanguage"] = *patch.DefaultLanguage
	}
	if patch.ContactEmail != nil {
		body["contactEmail"] = *patch.ContactEmail
	}
	if patch.ContactPhone != nil {
		body["contactPhone"] = *patch.ContactPhone
	}
	if patch.ContactWebsite != nil {
		body["contactWebsite"] = *patch.ContactWebsite
	}

	var details Details
	err := c.withCommit(ctx, packageName, notForReview, func(editID string) error {
		return c.call(ctx, http.MethodPut, c.editPath(packageName, editID, "details"), nil, body, &details)
	})
	if err != nil {
		return Details{}, &APIError{Op: op, PackageName: packageName, Err: err}
	}
	return details, nil
}

func (c *Client) beginEdit(ctx context.Context, packageName string) (string, error) {
	var edit editResponse
	path := c.BaseURL + "/applications/" + url.PathEscape(packageName) + "/edits"
	if err := c.do(ctx, http.MethodPost, path, nil, "application/json", strings.NewReader("{}"), &edit); err != nil {
		return "", fmt.Errorf("begin edit: %w", err)
	}
	if edit.ID == "" {
		return "", fmt.Errorf("begin edit: empty edit id")
	}
	return edit.ID, nil
}

func (c *Client) commitEdit(ctx context.Context, packageName, editID string, notForReview bool) error {
	path := c.BaseURL + "/applications/" + url.PathEscape(packageName) +
		"/edits/" + url.PathEscape(editID) + ":commit"
	query := url.Values{}
	if notForReview {
		query.Set("changesNotSentForReview", "true")
	}
	if err := c.do(ctx, http.MethodPost, path, query, "application/json", nil, nil); err != nil {
		return fmt.Errorf("commit edit: %w", err)
	}
	return nil
}

// withCommit brackets a mutating operation in a begin/commit edit pair.
func (c *Client) withCommit(ctx context.Context, packageName string, notForReview bool, fn func(editID string) error) error {
	editID, err := c.beginEdit(ctx, packageName)
	if err != nil {
		return err
	}
	if err := fn(editID); err != nil {
		return err
	}
	return c.commitEdit(ctx, packageName, editID, notForReview)
}

func (c *Client) editPath(packageName, editID string, parts ...string) string {
	path := c.BaseURL + "/applications/" + url.PathEscape(packageName) + "/edits/" + url.PathEscape(editID)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

// call issues a JSON request; body may be nil for bodiless methods.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, query, "application/json", reader, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
