package cli

import (
	"bufio"
	"os"
	"strings"

	"github.com/devbush/poser/internal/domain"
)

// ParseInputFile reads a file containing results URLs or analysis IDs, one
// per line. Blank lines and lines starting with # are ignored, as are lines
// that hold no analysis reference.
func ParseInputFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := domain.ParseAnalysisRef(line)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// CollectInputs combines CLI arguments and file input, deduplicating.
// Args are processed first, then file entries.
// Returns the unique analysis IDs in order of first appearance.
func CollectInputs(args []string, filePath string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	for _, arg := range args {
		id, err := domain.ParseAnalysisRef(arg)
		if err != nil {
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if filePath != "" {
		fileIDs, err := ParseInputFile(filePath)
		if err != nil {
			return nil, err
		}
		for _, id := range fileIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}
