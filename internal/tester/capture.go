package tester

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxTextBody bounds how many characters of a non-JSON response body are kept
const maxTextBody = 1000

// captureBody decodes JSON bodies and keeps a bounded prefix of anything else
func captureBody(data []byte, contentType string) any {
	if len(data) == 0 {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/json") {
		var decoded any
		if err := json.Unmarshal(data, &decoded); err == nil {
			return decoded
		}
	}
	return truncate(string(data), maxTextBody)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// flattenHeaders joins repeated header values with ", "
func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
