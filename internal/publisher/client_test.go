package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakePublisher serves just enough of the edits API to exercise the client.
type fakePublisher struct {
	t        *testing.T
	requests []string
	listing  Listing
}

func (f *fakePublisher) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/edits"):
			_ = json.NewEncoder(w).Encode(editResponse{ID: "edit-1"})
		case strings.Contains(r.URL.Path, ":commit"):
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPatch:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if title, ok := body["title"]; ok {
				f.listing.Title = title
			}
			if _, ok := body["shortDescription"]; ok {
				f.t.Error("patch sent shortDescription for a nil field")
			}
			_ = json.NewEncoder(w).Encode(f.listing)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/details"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["contactEmail"]; ok {
				f.t.Error("details update sent contactEmail for a nil field")
			}
			_ = json.NewEncoder(w).Encode(Details{DefaultLanguage: body["defaultLanguage"]})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/listings"):
			_ = json.NewEncoder(w).Encode(listingsResponse{Listings: []Listing{f.listing}})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Query().Get("uploadType") == "media":
			_ = json.NewEncoder(w).Encode(imageUploadResponse{Image: Image{ID: "img-9"}})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(StaticToken("tok"))
	c.HTTPClient = srv.Client()
	c.BaseURL = srv.URL + "/androidpublisher/v3"
	c.UploadURL = srv.URL + "/upload/androidpublisher/v3"
	return c
}

func TestPatchListingBracketsEdit(t *testing.T) {
	fake := &fakePublisher{t: t, listing: Listing{Language: "en-US", Title: "Old"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv)
	title := "New Title"
	got, err := client.PatchListing(context.Background(), "com.example.app", "en-US", ListingPatch{Title: &title}, true)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if got.Title != "New Title" {
		t.Fatalf("title = %q, want %q", got.Title, "New Title")
	}

	if len(fake.requests) != 3 {
		t.Fatalf("requests = %v, want begin/patch/commit", fake.requests)
	}
	if !strings.Contains(fake.requests[2], "changesNotSentForReview=true") {
		t.Fatalf("commit missing review flag: %s", fake.requests[2])
	}
}

func TestUpdateDetailsSendsOnlySetFields(t *testing.T) {
	fake := &fakePublisher{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv)
	lang := "en-US"
	details, err := client.UpdateDetails(context.Background(), "com.example.app", DetailsPatch{DefaultLanguage: &lang}, true)
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if details.DefaultLanguage != "en-US" {
		t.Fatalf("default language = %q, want en-US", details.DefaultLanguage)
	}
	if len(fake.requests) != 3 {
		t.Fatalf("requests = %v, want begin/put/commit", fake.requests)
	}
}

func TestListListingsSkipsCommit(t *testing.T) {
	fake := &fakePublisher{t: t, listing: Listing{Language: "en-US"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv)
	listings, err := client.ListListings(context.Background(), "com.example.app")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 1 || listings[0].Language != "en-US" {
		t.Fatalf("listings = %+v", listings)
	}
	for _, req := range fake.requests {
		if strings.Contains(req, ":commit") {
			t.Fatalf("read-only call committed an edit: %v", fake.requests)
		}
	}
}

func TestUploadImageSendsFileBody(t *testing.T) {
	fake := &fakePublisher{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(srv)
	img, err := client.UploadImage(context.Background(), "com.example.app", "en-US", "phoneScreenshots", path, "", false)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if img.ID != "img-9" {
		t.Fatalf("image id = %q, want img-9", img.ID)
	}
}

func TestUploadImageMissingFileFailsFast(t *testing.T) {
	fake := &fakePublisher{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.UploadImage(context.Background(), "com.example.app", "en-US", "icon", "/no/such/file.png", "", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.ImageType != "icon" || apiErr.Language != "en-US" {
		t.Fatalf("error missing context: %+v", apiErr)
	}
	if len(fake.requests) != 0 {
		t.Fatalf("missing local file still hit the API: %v", fake.requests)
	}
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.GetListing(context.Background(), "com.example.app", "de-DE")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "de-DE") {
		t.Fatalf("error lacks status or language context: %v", err)
	}
}
