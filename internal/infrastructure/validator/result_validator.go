package validator

import (
	"encoding/base64"
	"fmt"
	"strings"

	"text2model/internal/domain/entity"
)

// Note is a non-fatal finding about a generation result.
type Note struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AnalysisResult struct {
	Passed bool
	Notes  []Note
}

func (r *AnalysisResult) add(field, format string, args ...any) {
	r.Passed = false
	r.Notes = append(r.Notes, Note{Field: field, Message: fmt.Sprintf(format, args...)})
}

var KnownModelFormats = []string{"glb", "gltf", "obj", "fbx", "usdz", "ply", "stl"}

var DescriptiveElements = []string{"color", "texture", "shape", "detail"}

const (
	minPromptLen = 50
	maxPromptLen = 2000
)

// ImagePayload extracts the base64 image from a text-to-image result. Raw
// bytes are encoded; a missing or empty image is entity.ErrImageGeneration.
func ImagePayload(result map[string]any) (string, error) {
	if len(result) == 0 {
		return "", entity.ErrImageGeneration
	}
	switch v := result["image"].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", entity.ErrImageGeneration
		}
		return v, nil
	case []byte:
		if len(v) == 0 {
			return "", entity.ErrImageGeneration
		}
		return base64.StdEncoding.EncodeToString(v), nil
	default:
		return "", entity.ErrImageGeneration
	}
}

// ValidateModelResult rejects an empty image-to-3D result.
func ValidateModelResult(result map[string]any) error {
	if len(result) == 0 {
		return entity.ErrModelGeneration
	}
	return nil
}

// AnalyzeModel inspects a model result that already passed ValidateModelResult.
// Findings are informational and never fail a run.
func AnalyzeModel(result map[string]any) *AnalysisResult {
	res := &AnalysisResult{Passed: true}

	format, _ := result["format"].(string)
	switch {
	case format == "":
		res.add("format", "model format is not reported")
	case !isKnownFormat(format):
		res.add("format", "unrecognized model format %q", format)
	}

	model, ok := result["model"]
	if !ok {
		res.add("model", "model payload is missing")
	} else if s, isStr := model.(string); isStr && strings.TrimSpace(s) == "" {
		res.add("model", "model payload is empty")
	}

	return res
}

// AnalyzePrompt checks an enhanced prompt for the qualities the image service
// responds well to.
func AnalyzePrompt(text string) *AnalysisResult {
	res := &AnalysisResult{Passed: true}

	if n := len(text); n < minPromptLen {
		res.add("prompt", "too short: %d chars", n)
	} else if n > maxPromptLen {
		res.add("prompt", "too long: %d chars", n)
	}

	lower := strings.ToLower(text)
	var missing []string
	for _, el := range DescriptiveElements {
		if !strings.Contains(lower, el) {
			missing = append(missing, el)
		}
	}
	if len(missing) > 0 {
		res.add("prompt", "missing descriptive elements: %s", strings.Join(missing, ", "))
	}

	return res
}

func isKnownFormat(format string) bool {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	for _, f := range KnownModelFormats {
		if f == format {
			return true
		}
	}
	return false
}
