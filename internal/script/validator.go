package script

import (
	"encoding/json"
	"fmt"
	"sort"

	"intake-script-engine/internal/models"
)

// Validate checks whether adding or updating candidate keeps the script
// well-formed. The candidate is the raw key/value form produced by the
// editor, so unknown keys and wrongly typed values are still observable.
// Errors are accumulated and returned together; an empty result means the
// candidate is acceptable.
//
// Structural problems (missing mandatory fields, disallowed keys) stop the
// validation before any field-level check runs, so a malformed candidate
// does not produce a cascade of confusing follow-up errors.
func Validate(candidate map[string]any, scr models.Script) []string {
	var errs []string

	for _, field := range MandatoryFields {
		if isFalsy(candidate[field]) {
			errs = append(errs, fmt.Sprintf("Field %q is required.", field))
		}
	}

	for _, key := range sortedKeys(candidate) {
		if !allowedKey(key) {
			errs = append(errs, fmt.Sprintf("Field %q is not allowed.", key))
		}
	}

	if len(errs) > 0 {
		return errs
	}

	known := knownNames(scr, candidate)

	for _, key := range sortedKeys(candidate) {
		value := candidate[key]

		switch key {
		case "name":
			if _, ok := value.(string); !ok {
				errs = append(errs, `Field "name" must be a string.`)
			}
		case "prompt":
			if _, ok := value.(string); !ok {
				errs = append(errs, `Field "prompt" must be a string.`)
			}
		case "help":
			if _, ok := value.(string); !ok {
				errs = append(errs, `Field "help" must be a string.`)
			}
		case "start":
			errs = append(errs, validateStart(value, candidate, scr)...)
		case "type":
			errs = append(errs, validateType(value, candidate)...)
		case "options":
			errs = append(errs, validateOptions(value)...)
		case "details":
			errs = append(errs, validateDetails(value, known)...)
		case "then":
			errs = append(errs, validateThen(value, known)...)
		}
	}

	return errs
}

// CanAddQuestion reports whether the candidate may be committed, along with
// the accumulated validation errors.
func CanAddQuestion(candidate map[string]any, scr models.Script) (bool, []string) {
	errs := Validate(candidate, scr)
	return len(errs) == 0, errs
}

func validateStart(value any, candidate map[string]any, scr models.Script) []string {
	start, ok := value.(bool)
	if !ok {
		return []string{`Field "start" must be a boolean.`}
	}
	if !start {
		return nil
	}

	// Exclude a question with the candidate's own name so that an
	// update-in-place of the current start question re-validates cleanly.
	name, _ := candidate["name"].(string)
	for _, q := range scr {
		if q.Start && q.Name != name {
			return []string{"Cannot have two start questions."}
		}
	}
	return nil
}

func validateType(value any, candidate map[string]any) []string {
	raw, ok := value.(string)
	if !ok || !FieldType(raw).Valid() {
		return []string{`Field "type" must be one of the allowed field types.`}
	}

	switch FieldType(raw) {
	case FieldMultipleChoice, FieldSingleChoice:
		options, ok := candidate["options"].([]any)
		if !ok || len(options) == 0 {
			return []string{`Field "options" is required for choice questions.`}
		}
	}
	return nil
}

func validateOptions(value any) []string {
	options, ok := value.([]any)
	if !ok {
		return []string{"Each option must have a hint and text field."}
	}

	for _, raw := range options {
		option, ok := raw.(map[string]any)
		if !ok {
			return []string{"Each option must have a hint and text field."}
		}
		if text, ok := option["text"].(string); !ok || text == "" {
			return []string{"Each option must have a hint and text field."}
		}
		if hint, present := option["hint"]; present {
			if _, ok := hint.(string); !ok {
				return []string{"Each option must have a hint and text field."}
			}
		}
	}
	return nil
}

func validateDetails(value any, known map[string]bool) []string {
	entries, ok := value.([]any)
	if !ok {
		return []string{`Field "details" must be a list.`}
	}

	var errs []string
	for _, entry := range entries {
		errs = append(errs, validateConditionalThen(entry, "detail", known)...)
	}
	return errs
}

func validateThen(value any, known map[string]bool) []string {
	switch v := value.(type) {
	case string:
		if !known[v] {
			return []string{`The "then" field must reference an existing question.`}
		}
		return nil
	case []any:
		var errs []string
		for _, entry := range v {
			errs = append(errs, validateConditionalThen(entry, "then", known)...)
		}
		return errs
	default:
		return []string{"The 'then' field must be a string or list."}
	}
}

// validateConditionalThen checks one guarded edge, shared by then-as-list
// and details entries. tag names the owning field in error messages.
func validateConditionalThen(entry any, tag string, known map[string]bool) []string {
	record, ok := entry.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("Each %q entry must reference an existing question.", tag)}
	}

	var errs []string

	target, ok := record["then"].(string)
	if !ok || !known[target] {
		errs = append(errs, fmt.Sprintf("Each %q entry must reference an existing question.", tag))
	}

	raw, present := record["when"]
	if !present || raw == nil {
		return errs
	}

	when, ok := raw.(map[string]any)
	if !ok {
		errs = append(errs, `The "when" clause must include a variable, condition and value.`)
		return errs
	}

	variable, _ := when["variable"].(string)
	condition, _ := when["condition"].(string)
	value, _ := when["value"].(string)

	if variable == "" || condition == "" || value == "" {
		errs = append(errs, `The "when" clause must include a variable, condition and value.`)
	}
	if variable != "" && !known[variable] {
		errs = append(errs, `The "when" variable must reference an existing question.`)
	}
	if condition != "" && !Condition(condition).Valid() {
		errs = append(errs, `The "when" condition must be one of the allowed conditions.`)
	}
	return errs
}

// ValidateTransition checks a follows-style edge before it is attached to
// the script. The next question may be new, but the question it follows and
// the condition variable must already exist.
func ValidateTransition(t models.Transition, scr models.Script) []string {
	var errs []string

	if _, ok := scr[t.Previous]; !ok {
		errs = append(errs, `The "previous" field must reference an existing question.`)
	}
	if t.Next != "" && t.Next == t.Previous {
		errs = append(errs, "A question cannot follow itself.")
	}

	hasAny := t.Condition != "" || t.Variable != "" || t.Value != ""
	hasAll := t.Condition != "" && t.Variable != "" && t.Value != ""
	if hasAny && !hasAll {
		errs = append(errs, "The condition, variable and value fields must be provided together.")
	}
	if t.Variable != "" {
		if _, ok := scr[t.Variable]; !ok {
			errs = append(errs, `The "variable" field must reference an existing question.`)
		}
	}
	if t.Condition != "" && !Condition(t.Condition).Valid() {
		errs = append(errs, `The "condition" field must be one of the allowed conditions.`)
	}
	return errs
}

// DecodeQuestion converts a validated candidate into its typed form.
func DecodeQuestion(candidate map[string]any) (models.Question, error) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return models.Question{}, err
	}

	var question models.Question
	if err := json.Unmarshal(data, &question); err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func knownNames(scr models.Script, candidate map[string]any) map[string]bool {
	known := make(map[string]bool, len(scr)+1)
	for name := range scr {
		known[name] = true
	}
	// The candidate itself may be new; a question may reference itself.
	if name, ok := candidate["name"].(string); ok && name != "" {
		known[name] = true
	}
	return known
}

func sortedKeys(candidate map[string]any) []string {
	keys := make([]string, 0, len(candidate))
	for key := range candidate {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	}
	return false
}
