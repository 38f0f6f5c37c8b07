package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/image-cropper/pkg/types"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// FallbackTag marks results built by Fallback rather than read from a reply
const FallbackTag = "fallback"

// Fallback is the centred result used when a model reply cannot be read
func Fallback(label, description string, tags ...string) *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary: types.Primary{
			Label:      label,
			Confidence: 0.1,
			Box:        types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Tags:        append(tags, FallbackTag),
	}
}

// IsFallback reports whether result was produced by Fallback
func IsFallback(result *types.AnalysisResult) bool {
	for _, t := range result.Tags {
		if t == FallbackTag {
			return true
		}
	}
	return false
}

// ParseAnalysisResult reads the model's JSON reply. Replies that are not
// JSON degrade to a centred fallback instead of an error.
func ParseAnalysisResult(raw string) *types.AnalysisResult {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return Fallback("unclear image", "Model returned non-JSON response", "unclear", "non-json")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Fallback("parse error", "Failed to parse model response", "parse-error")
	}

	// an empty object carries no position
	if result.Primary.Label == "" && result.Primary.Confidence == 0 {
		if result.Primary.Cx == 0 && result.Primary.Cy == 0 {
			result.Primary.Cx = 0.5
			result.Primary.Cy = 0.5
		}
		if result.Primary.Box.W == 0 && result.Primary.Box.H == 0 {
			result.Primary.Box = types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
		}
	}

	return &result
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
