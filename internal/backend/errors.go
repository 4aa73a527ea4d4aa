package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxErrorBody is the number of characters of a failed response kept for diagnostics.
const MaxErrorBody = 800

// HTTPError is returned for any non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string // first MaxErrorBody characters, HTML flattened to text
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend HTTP %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("backend HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Message extracts the human-readable message from a JSON error body,
// falling back to the raw body and finally the status text.
func (e *HTTPError) Message() string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil {
		for _, key := range []string{"msg", "message", "error_description", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if e.Body != "" {
		return e.Body
	}
	return e.Status
}

// newHTTPError builds an HTTPError from a failed response body.
func newHTTPError(statusCode int, status, contentType string, body []byte) *HTTPError {
	text := string(body)
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		if flat, err := flattenHTML(text); err == nil {
			text = flat
		}
	}
	// the status line from net/http repeats the code
	status = strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", statusCode)))
	return &HTTPError{
		StatusCode: statusCode,
		Status:     status,
		Body:       truncate(text, MaxErrorBody),
	}
}

// flattenHTML reduces an HTML error page (gateway errors, proxies) to its visible text.
func flattenHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
