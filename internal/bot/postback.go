package bot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/garyellow/line-replybot/internal/errors"
)

// ParsePostbackData decodes postback data in URL-encoded key/value form,
// e.g. "action=buy&itemid=123". Data longer than maxSize is rejected.
func ParsePostbackData(data string, maxSize int) (url.Values, error) {
	if maxSize > 0 && len(data) > maxSize {
		return nil, apperrors.NewPostbackDataError(data, fmt.Errorf("data is %d bytes, limit is %d", len(data), maxSize))
	}
	values, err := url.ParseQuery(data)
	if err != nil {
		return nil, apperrors.NewPostbackDataError(data, err)
	}
	return values, nil
}

// FormatPostbackDiagnostic renders parsed postback pairs as the diagnostic
// reply text. Keys with one value render as a string, repeated keys as a list.
func FormatPostbackDiagnostic(values url.Values) string {
	pairs := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			pairs[key] = vals[0]
		} else {
			pairs[key] = vals
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pairs); err != nil {
		return "Got postback: {}"
	}
	return "Got postback: " + strings.TrimSuffix(buf.String(), "\n")
}
