// Package hiring counts hires for a job across normalized and legacy application rows.
package hiring

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/hr-portal/internal/types"
)

// Extractor pulls a job identifier out of a legacy payload. It returns ""
// when the payload does not carry one at its path.
type Extractor struct {
	Path    string
	Extract func(payload map[string]any) string
}

// PayloadExtractors are tried in order; the first non-empty result wins.
var PayloadExtractors = []Extractor{
	pathExtractor("meta", "job_id"),
	pathExtractor("meta", "jobId"),
	pathExtractor("job_id"),
	pathExtractor("jobId"),
}

func pathExtractor(keys ...string) Extractor {
	return Extractor{
		Path: strings.Join(keys, "."),
		Extract: func(payload map[string]any) string {
			var cur any = payload
			for _, key := range keys {
				m, ok := cur.(map[string]any)
				if !ok {
					return ""
				}
				cur = m[key]
			}
			return scalarText(cur)
		},
	}
}

// ExtractJobID returns the job identifier embedded in payload, or "".
func ExtractJobID(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	for _, e := range PayloadExtractors {
		if id := e.Extract(payload); id != "" {
			return id
		}
	}
	return ""
}

// scalarText renders strings and numbers; anything else is treated as absent.
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return types.FormatNumber(t)
	case json.Number:
		return t.String()
	case int:
		return types.FormatNumber(float64(t))
	case int64:
		return types.FormatNumber(float64(t))
	default:
		return ""
	}
}
