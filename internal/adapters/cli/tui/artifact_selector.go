package tui

import "github.com/devbush/poser/internal/domain"

// RunArtifactSelector lets the user pick which outputs to download and
// returns the selected artifact keys. A nil result means cancelled.
func RunArtifactSelector(artifacts []domain.Artifact) ([]string, error) {
	title := "Which outputs do you want to download?"
	if len(artifacts) == 1 {
		title = "Download this output?"
	}

	options := make([]CheckboxOption, len(artifacts))
	for i, a := range artifacts {
		options[i] = CheckboxOption{
			Label:   a.Filename,
			Hint:    a.Kind,
			Value:   a.Key,
			Checked: true,
		}
	}

	return RunCheckbox(title, options)
}
