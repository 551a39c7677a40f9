package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Results page or API URL: .../results/<id>, .../analysis/<id>, ...?id=<id>
	analysisURLPattern = regexp.MustCompile(`/(?:results|analysis)/([A-Za-z0-9_-]+)|[?&]id=([A-Za-z0-9_-]+)`)
	analysisIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ParseAnalysisRef extracts an analysis ID from a results URL or a bare ID
func ParseAnalysisRef(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	if strings.Contains(input, "://") {
		if m := analysisURLPattern.FindStringSubmatch(input); m != nil {
			if m[1] != "" {
				return m[1], nil
			}
			return m[2], nil
		}
		return "", fmt.Errorf("no analysis ID in URL: %s", input)
	}

	if analysisIDPattern.MatchString(input) {
		return input, nil
	}
	return "", fmt.Errorf("invalid analysis URL or ID: %s", input)
}
