package script

import (
	"fmt"
	"sort"

	"intake-script-engine/internal/models"

	"gopkg.in/yaml.v3"
)

// Export flattens the script into a name-sorted question array, the form
// used when handing a script to the backend or downloading it.
func Export(scr models.Script) []models.Question {
	questions := make([]models.Question, 0, len(scr))
	for _, q := range scr {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Name < questions[j].Name
	})
	return questions
}

// Import rebuilds the script map from a question array. Duplicate names are
// rejected because the name is the map key.
func Import(questions []models.Question) (models.Script, error) {
	scr := make(models.Script, len(questions))
	for _, q := range questions {
		if q.Name == "" {
			return nil, fmt.Errorf("question without a name")
		}
		if _, exists := scr[q.Name]; exists {
			return nil, fmt.Errorf("duplicate question name %q", q.Name)
		}
		scr[q.Name] = q
	}
	return scr, nil
}

// ExportYAML renders the exported question array as YAML for download.
func ExportYAML(scr models.Script) ([]byte, error) {
	return yaml.Marshal(Export(scr))
}

// ImportYAML parses a YAML question array, the same document shape
// ExportYAML produces.
func ImportYAML(data []byte) (models.Script, error) {
	var questions []models.Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return Import(questions)
}
