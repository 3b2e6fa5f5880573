// Package plandef loads experiment plan definitions from YAML files.
package plandef

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"storelab/internal/orchestrator"
	"storelab/internal/planstore"
)

type rawDefinition struct {
	PackageName       string       `yaml:"package_name"`
	Language          string       `yaml:"language"`
	Name              string       `yaml:"name"`
	Hypothesis        string       `yaml:"hypothesis"`
	Metric            string       `yaml:"metric"`
	TrafficProportion float64      `yaml:"traffic_proportion"`
	Type              string       `yaml:"type"`
	Notes             string       `yaml:"notes"`
	Variants          []rawVariant `yaml:"variants"`
}

type rawVariant struct {
	Label            string     `yaml:"label"`
	Title            *string    `yaml:"title"`
	ShortDescription *string    `yaml:"short_description"`
	FullDescription  *string    `yaml:"full_description"`
	Video            *string    `yaml:"video"`
	Assets           []rawAsset `yaml:"assets"`
}

type rawAsset struct {
	ImageType string `yaml:"image_type"`
	FilePath  string `yaml:"file_path"`
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// LoadFile reads and validates one plan definition file.
func LoadFile(path string) (orchestrator.CreatePlanInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.CreatePlanInput{}, fmt.Errorf("read plan definition: %w", err)
	}
	return Parse(data, path)
}

// Parse unmarshals and validates a YAML plan definition.
func Parse(data []byte, source string) (orchestrator.CreatePlanInput, error) {
	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return orchestrator.CreatePlanInput{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validate(raw, source)
}

var experimentTypes = map[string]planstore.ExperimentType{
	"text":     planstore.TypeText,
	"graphics": planstore.TypeGraphics,
	"mixed":    planstore.TypeMixed,
}

func validate(raw rawDefinition, source string) (orchestrator.CreatePlanInput, error) {
	var errs ValidationErrors
	fail := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{File: source, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(raw.PackageName) == "" {
		fail("package_name", "is required")
	}
	if strings.TrimSpace(raw.Language) == "" {
		fail("language", "is required")
	}
	if strings.TrimSpace(raw.Name) == "" {
		fail("name", "is required")
	}

	expType, ok := experimentTypes[raw.Type]
	if !ok {
		fail("type", "must be one of text, graphics, mixed (got %q)", raw.Type)
	}

	if len(raw.Variants) == 0 {
		fail("variants", "must contain at least one variant")
	}

	input := orchestrator.CreatePlanInput{
		PackageName:       raw.PackageName,
		Language:          raw.Language,
		Name:              raw.Name,
		Hypothesis:        raw.Hypothesis,
		Metric:            raw.Metric,
		TrafficProportion: raw.TrafficProportion,
		Type:              expType,
		Notes:             raw.Notes,
	}

	for idx, v := range raw.Variants {
		path := fmt.Sprintf("variants[%d]", idx)
		if strings.TrimSpace(v.Label) == "" {
			fail(path+".label", "is required")
		}
		variant := orchestrator.VariantInput{
			Label:            v.Label,
			Title:            v.Title,
			ShortDescription: v.ShortDescription,
			FullDescription:  v.FullDescription,
			Video:            v.Video,
		}
		for aIdx, a := range v.Assets {
			aPath := fmt.Sprintf("%s.assets[%d]", path, aIdx)
			if strings.TrimSpace(a.ImageType) == "" {
				fail(aPath+".image_type", "is required")
			}
			if strings.TrimSpace(a.FilePath) == "" {
				fail(aPath+".file_path", "is required")
			}
			variant.Assets = append(variant.Assets, planstore.Asset{
				ImageType: a.ImageType,
				FilePath:  a.FilePath,
			})
		}
		input.Variants = append(input.Variants, variant)
	}

	if len(errs) > 0 {
		return orchestrator.CreatePlanInput{}, errs
	}
	return input, nil
}
