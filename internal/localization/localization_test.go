package localization

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storelab/internal/publisher"
)

func TestCoverage(t *testing.T) {
	mock := publisher.NewMock()
	mock.SeedListing(publisher.Listing{Language: "en-US", Title: "App"})
	mock.SeedListing(publisher.Listing{Language: "de-DE", Title: "App"})
	mock.SeedListing(publisher.Listing{Language: "fr-FR", Title: "App"})
	mock.AppInfo = publisher.Details{DefaultLanguage: "en-US"}

	report, err := Coverage(context.Background(), mock, "com.example.app", nil)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if report.DefaultLanguage != "en-US" {
		t.Fatalf("DefaultLanguage = %q, want en-US", report.DefaultLanguage)
	}
	if diff := cmp.Diff([]string{"de-DE", "en-US", "fr-FR"}, report.Locales); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
	if report.Count != 3 || report.Missing != nil || report.Extra != nil {
		t.Fatalf("report = %+v, want count 3 and no target deltas", report)
	}
}

func TestCoverageAgainstTargets(t *testing.T) {
	mock := publisher.NewMock()
	mock.SeedListing(publisher.Listing{Language: "en-US"})
	mock.SeedListing(publisher.Listing{Language: "ja-JP"})

	report, err := Coverage(context.Background(), mock, "com.example.app", []string{"en-US", "de-DE", "es-ES"})
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if diff := cmp.Diff([]string{"de-DE", "es-ES"}, report.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ja-JP"}, report.Extra); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneListingTextOnly(t *testing.T) {
	mock := publisher.NewMock()
	mock.SeedListing(publisher.Listing{
		Language:         "en-US",
		Title:            "Weather Radar",
		ShortDescription: "Forecasts and alerts",
		FullDescription:  "Hourly forecasts, radar maps and alerts.",
		Video:            "https://video.example/intro",
	})

	cloner := NewCloner(mock)
	result, err := cloner.CloneListing(context.Background(), "com.example.app", "en-US", "en-GB", nil)
	if err != nil {
		t.Fatalf("CloneListing: %v", err)
	}
	if !result.TextCopied || result.MirroredImages != nil {
		t.Fatalf("result = %+v, want text copied and no images mirrored", result)
	}

	got := mock.Listings["en-GB"]
	want := publisher.Listing{
		Language:         "en-GB",
		Title:            "Weather Radar",
		ShortDescription: "Forecasts and alerts",
		FullDescription:  "Hourly forecasts, radar maps and alerts.",
		Video:            "https://video.example/intro",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("destination listing mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneListingMirrorsImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	defer srv.Close()

	mock := publisher.NewMock()
	mock.SeedListing(publisher.Listing{Language: "en-US", Title: "App"})
	mock.SeedImages("en-US", "phoneScreenshots", []publisher.Image{
		{ID: "a", URL: srv.URL + "/a"},
		{ID: "b", URL: srv.URL + "/b"},
	})
	mock.SeedImages("de-DE", "phoneScreenshots", []publisher.Image{{ID: "stale", URL: srv.URL + "/old"}})

	cloner := NewCloner(mock)
	result, err := cloner.CloneListing(context.Background(), "com.example.app", "en-US", "de-DE", []string{"phoneScreenshots"})
	if err != nil {
		t.Fatalf("CloneListing: %v", err)
	}
	if got := result.MirroredImages["phoneScreenshots"]; got != 2 {
		t.Fatalf("mirrored = %d, want 2", got)
	}
	if got := len(mock.Images["de-DE"]["phoneScreenshots"]); got != 2 {
		t.Fatalf("destination images = %d, want 2", got)
	}

	var ops []string
	for _, c := range mock.Calls {
		ops = append(ops, c.Op)
	}
	want := []string{"get_listing", "update_listing", "list_images", "delete_all_images", "upload_image", "upload_image"}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneListingDownloadFailureKeepsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	mock := publisher.NewMock()
	mock.SeedListing(publisher.Listing{Language: "en-US", Title: "App"})
	mock.SeedImages("en-US", "icon", []publisher.Image{{ID: "a", URL: srv.URL + "/a"}})

	cloner := NewCloner(mock)
	result, err := cloner.CloneListing(context.Background(), "com.example.app", "en-US", "fr-FR", []string{"icon"})
	if err == nil {
		t.Fatal("expected download error")
	}
	if result == nil || !result.TextCopied {
		t.Fatalf("result = %+v, want text clone preserved", result)
	}
	if mock.Listings["fr-FR"].Title != "App" {
		t.Fatal("destination text clone missing after failed mirror")
	}
}

func TestCloneListingRejectsSameLocale(t *testing.T) {
	cloner := NewCloner(publisher.NewMock())
	if _, err := cloner.CloneListing(context.Background(), "com.example.app", "en-US", "en-US", nil); err == nil {
		t.Fatal("expected error for identical locales")
	}
}
