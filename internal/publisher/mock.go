package publisher

import (
	"context"
	"fmt"
	"sync"
)

// Call records one Editor invocation on the mock, in order.
type Call struct {
	Op        string
	Language  string
	ImageType string
	FilePath  string
}

// Mock is an in-memory Editor for tests. Listings and images are held per
// language; FailOn makes a named op fail once to exercise partial failures.
type Mock struct {
	mu       sync.Mutex
	Listings map[string]Listing            // language -> listing
	Images   map[string]map[string][]Image // language -> imageType -> images
	AppInfo  Details

	Calls  []Call
	FailOn map[string]error // op name -> error returned on next matching call

	uploadSeq int
}

var _ Editor = (*Mock)(nil)

// NewMock returns an empty Mock.
func NewMock() *Mock {
	return &Mock{
		Listings: make(map[string]Listing),
		Images:   make(map[string]map[string][]Image),
		FailOn:   make(map[string]error),
	}
}

// SeedListing installs a listing for a language.
func (m *Mock) SeedListing(l Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listings[l.Language] = l
}

// SeedImages installs images for a language and type.
func (m *Mock) SeedImages(language, imageType string, images []Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Images[language] == nil {
		m.Images[language] = make(map[string][]Image)
	}
	m.Images[language][imageType] = images
}

func (m *Mock) record(op, language, imageType, filePath string) error {
	m.Calls = append(m.Calls, Call{Op: op, Language: language, ImageType: imageType, FilePath: filePath})
	if err, ok := m.FailOn[op]; ok && err != nil {
		delete(m.FailOn, op)
		return err
	}
	return nil
}

func (m *Mock) ListListings(_ context.Context, packageName string) ([]Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("list_listings", "", "", ""); err != nil {
		return nil, &APIError{Op: "list listings", PackageName: packageName, Err: err}
	}
	var out []Listing
	for _, l := range m.Listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *Mock) GetListing(_ context.Context, packageName, language string) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("get_listing", language, "", ""); err != nil {
		return Listing{}, &APIError{Op: "get listing", PackageName: packageName, Language: language, Err: err}
	}
	l, ok := m.Listings[language]
	if !ok {
		return Listing{}, &APIError{Op: "get listing", PackageName: packageName, Language: language, Err: fmt.Errorf("no listing")}
	}
	return l, nil
}

func (m *Mock) PatchListing(_ context.Context, packageName, language string, patch ListingPatch, _ bool) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("patch_listing", language, "", ""); err != nil {
		return Listing{}, &APIError{Op: "patch listing", PackageName: packageName, Language: language, Err: err}
	}
	l := m.Listings[language]
	l.Language = language
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.ShortDescription != nil {
		l.ShortDescription = *patch.ShortDescription
	}
	if patch.FullDescription != nil {
		l.FullDescription = *patch.FullDescription
	}
	if patch.Video != nil {
		l.Video = *patch.Video
	}
	m.Listings[language] = l
	return l, nil
}

func (m *Mock) UpdateListing(_ context.Context, packageName, language string, listing Listing, _ bool) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("update_listing", language, "", ""); err != nil {
		return Listing{}, &APIError{Op: "update listing", PackageName: packageName, Language: language, Err: err}
	}
	listing.Language = language
	m.Listings[language] = listing
	return listing, nil
}

func (m *Mock) ListImages(_ context.Context, packageName, language, imageType string) ([]Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("list_images", language, imageType, ""); err != nil {
		return nil, &APIError{Op: "list images", PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	return m.Images[language][imageType], nil
}

func (m *Mock) DeleteAllImages(_ context.Context, packageName, language, imageType string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("delete_all_images", language, imageType, ""); err != nil {
		return &APIError{Op: "delete images", PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	if m.Images[language] != nil {
		delete(m.Images[language], imageType)
	}
	return nil
}

func (m *Mock) UploadImage(_ context.Context, packageName, language, imageType, filePath, _ string, _ bool) (Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("upload_image", language, imageType, filePath); err != nil {
		return Image{}, &APIError{Op: "upload image", PackageName: packageName, Language: language, ImageType: imageType, Err: err}
	}
	m.uploadSeq++
	img := Image{ID: fmt.Sprintf("img-%d", m.uploadSeq), URL: "mock://" + filePath}
	if m.Images[language] == nil {
		m.Images[language] = make(map[string][]Image)
	}
	m.Images[language][imageType] = append(m.Images[language][imageType], img)
	return img, nil
}

func (m *Mock) GetDetails(_ context.Context, packageName string) (Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("get_details", "", "", ""); err != nil {
		return Details{}, &APIError{Op: "get details", PackageName: packageName, Err: err}
	}
	return m.AppInfo, nil
}

func (m *Mock) UpdateDetails(_ context.Context, packageName string, patch DetailsPatch, _ bool) (Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("update_details", "", "", ""); err != nil {
		return Details{}, &APIError{Op: "update details", PackageName: packageName, Err: err}
	}
	if patch.DefaultLanguage != nil {
		m.AppInfo.DefaultLanguage = *patch.DefaultLanguage
	}
	if patch.ContactEmail != nil {
		m.AppInfo.ContactEmail = *patch.ContactEmail
	}
	if patch.ContactPhone != nil {
		m.AppInfo.ContactPhone = *patch.ContactPhone
	}
	if patch.ContactWebsite != nil {
		m.AppInfo.ContactWebsite = *patch.ContactWebsite
	}
	return m.AppInfo, nil
}
