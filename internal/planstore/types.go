package planstore

import "time"

// Status is the lifecycle state of an experiment plan.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusApplied Status = "applied"
	// StatusArchived is reserved; no operation currently produces it.
	StatusArchived Status = "archived"
)

// ExperimentType describes what kind of content a plan varies.
type ExperimentType string

const (
	TypeText     ExperimentType = "text"
	TypeGraphics ExperimentType = "graphics"
	TypeMixed    ExperimentType = "mixed"
)

// Asset references one externally-owned local image file for a variant.
type Asset struct {
	ImageType string `json:"image_type"`
	FilePath  string `json:"file_path"`
}

// Variant is one candidate content set within a plan. Only non-empty
// text/video fields are applied on promotion.
type Variant struct {
	VariantID        string  `json:"variant_id"`
	Label            string  `json:"label"`
	Title            *string `json:"title,omitempty"`
	ShortDescription *string `json:"short_description,omitempty"`
	FullDescription  *string `json:"full_description,omitempty"`
	Video            *string `json:"video,omitempty"`
	Assets           []Asset `json:"assets,omitempty"`
}

// VariantCount is one variant's observed traffic, as supplied by the caller.
type VariantCount struct {
	VariantID   string `json:"variant_id"`
	Visitors    int    `json:"visitors"`
	Conversions int    `json:"conversions"`
}

// BayesResult is the output of one significance computation.
type BayesResult struct {
	Winner            string              `json:"winner"`
	WinnerProbability float64             `json:"winner_probability"`
	Probabilities     map[string]float64  `json:"probabilities"`
	MeanRates         map[string]float64  `json:"mean_rates"`
	RelativeLift      map[string]*float64 `json:"relative_lift_vs_baseline"`
}

// Results snapshots the most recent significance computation for a plan.
// It is overwritten, not appended, by each new computation.
type Results struct {
	Metrics        []VariantCount `json:"metrics"`
	Bayes          BayesResult    `json:"bayes"`
	Recommendation string         `json:"recommendation"`
	EvaluatedAt    time.Time      `json:"evaluated_at"`
}

// Promotion records completed promotion steps so a retried apply can skip
// work that already reached the live listing.
type Promotion struct {
	VariantID      string    `json:"variant_id"`
	TextPatched    bool      `json:"text_patched"`
	DeletedTypes   []string  `json:"deleted_types,omitempty"`
	CompletedTypes []string  `json:"completed_types,omitempty"`
	UploadedFiles  []string  `json:"uploaded_files,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// TypeDeleted reports whether the delete-all for an image type already ran.
func (p *Promotion) TypeDeleted(imageType string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.DeletedTypes {
		if t == imageType {
			return true
		}
	}
	return false
}

// TypeDone reports whether every asset of the given image type was uploaded.
func (p *Promotion) TypeDone(imageType string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.CompletedTypes {
		if t == imageType {
			return true
		}
	}
	return false
}

// FileUploaded reports whether the given file already reached the listing.
func (p *Promotion) FileUploaded(path string) bool {
	if p == nil {
		return false
	}
	for _, f := range p.UploadedFiles {
		if f == path {
			return true
		}
	}
	return false
}

// Plan is a locally persisted experiment definition for one package+locale.
type Plan struct {
	PlanID            string         `json:"plan_id"`
	PackageName       string         `json:"package_name"`
	Language          string         `json:"language"`
	Name              string         `json:"name"`
	Hypothesis        string         `json:"hypothesis,omitempty"`
	Metric            string         `json:"metric"`
	TrafficProportion float64        `json:"traffic_proportion"`
	Type              ExperimentType `json:"type"`
	Variants          []Variant      `json:"variants"`
	Status            Status         `json:"status"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	LastResults       *Results       `json:"last_results,omitempty"`
	Promotion         *Promotion     `json:"promotion,omitempty"`
}

// FindVariant returns the variant with the given id, if present.
func (p *Plan) FindVariant(variantID string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.VariantID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}
