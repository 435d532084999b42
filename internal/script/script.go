package script

import (
	"sort"

	"intake-script-engine/internal/models"
	"intake-script-engine/pkg/fault"

	"github.com/google/uuid"
)

// CreateQuestion inserts a bare question stub under a fresh unique name and
// returns it. The stub is not a displayable question yet; it only reserves
// the key until the editor fills it in.
func CreateQuestion(scr models.Script) models.Question {
	name := uuid.New().String()
	for {
		if _, exists := scr[name]; !exists {
			break
		}
		name = uuid.New().String()
	}

	question := models.Question{Name: name}
	scr[name] = question
	return question
}

// UpdateQuestion validates the candidate against the script without the
// entry at prevName, then commits it under its (possibly new) name. On a
// rename, every reference to the old name elsewhere in the script is
// rewritten. prevName must name an existing question; updates never create
// one. A non-empty error list means the script was left untouched.
func UpdateQuestion(scr models.Script, prevName string, candidate map[string]any) (models.Question, []string, error) {
	if _, exists := scr[prevName]; !exists {
		return models.Question{}, nil, fault.ErrNotFound
	}

	rest := make(models.Script, len(scr))
	for name, q := range scr {
		if name != prevName {
			rest[name] = q
		}
	}

	ok, errs := CanAddQuestion(candidate, rest)
	if !ok {
		return models.Question{}, errs, nil
	}

	question, err := DecodeQuestion(candidate)
	if err != nil {
		return models.Question{}, nil, err
	}

	if prevName != question.Name {
		delete(scr, prevName)
		renameReferences(scr, prevName, question.Name)
	}
	scr[question.Name] = question
	return question, nil, nil
}

// RemoveQuestion deletes the entry and cascade-clears every reference to it
// from the rest of the script, so no dangling then targets or when variables
// survive a deletion.
func RemoveQuestion(scr models.Script, name string) bool {
	if _, ok := scr[name]; !ok {
		return false
	}
	delete(scr, name)
	clearReferences(scr, name)
	return true
}

// SetFirstQuestion marks the named question as the script's entry point and
// unsets any other start question in the same operation.
func SetFirstQuestion(scr models.Script, name string) error {
	target, ok := scr[name]
	if !ok {
		return fault.ErrNotFound
	}

	for n, q := range scr {
		if q.Start && n != name {
			q.Start = false
			scr[n] = q
		}
	}
	target.Start = true
	scr[name] = target
	return nil
}

// AddTransition attaches a validated follows-style edge to the script by
// rewriting the previous question's then rule. Conditional edges are placed
// before any unconditional fallback so evaluation order stays meaningful.
func AddTransition(scr models.Script, t models.Transition) (models.Transition, []string) {
	if errs := ValidateTransition(t, scr); len(errs) > 0 {
		return models.Transition{}, errs
	}

	branch := models.ConditionalThen{Then: t.Next}
	if t.Condition != "" {
		branch.When = &models.WhenClause{
			Variable:  t.Variable,
			Condition: t.Condition,
			Value:     t.Value,
		}
	}

	prev := scr[t.Previous]
	if prev.Then == nil {
		prev.Then = &models.Then{}
	}
	if prev.Then.Next != "" {
		// An existing single reference becomes the unconditional fallback.
		prev.Then.Branches = []models.ConditionalThen{{Then: prev.Then.Next}}
		prev.Then.Next = ""
	}

	if branch.When != nil {
		inserted := false
		for i, existing := range prev.Then.Branches {
			if existing.When == nil {
				branches := append([]models.ConditionalThen{}, prev.Then.Branches[:i]...)
				branches = append(branches, branch)
				branches = append(branches, prev.Then.Branches[i:]...)
				prev.Then.Branches = branches
				inserted = true
				break
			}
		}
		if !inserted {
			prev.Then.Branches = append(prev.Then.Branches, branch)
		}
	} else {
		prev.Then.Branches = append(prev.Then.Branches, branch)
	}

	scr[t.Previous] = prev

	t.ID = uuid.New().String()
	return t, nil
}

// ParentTransitions derives the incoming edges of a question: every
// transition whose next is the given name. It is a read-only projection of
// the then links, not a separate source of truth.
func ParentTransitions(scr models.Script, name string) []models.Transition {
	var parents []models.Transition

	for _, from := range Names(scr) {
		q := scr[from]
		if q.Then == nil {
			continue
		}
		if q.Then.Next == name {
			parents = append(parents, models.Transition{Previous: from, Next: name})
			continue
		}
		for _, branch := range q.Then.Branches {
			if branch.Then != name {
				continue
			}
			t := models.Transition{Previous: from, Next: name}
			if branch.When != nil {
				t.Variable = branch.When.Variable
				t.Condition = branch.When.Condition
				t.Value = branch.When.Value
			}
			parents = append(parents, t)
		}
	}
	return parents
}

// Names returns the question names in sorted order.
func Names(scr models.Script) []string {
	names := make([]string, 0, len(scr))
	for name := range scr {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renameReferences(scr models.Script, from, to string) {
	rewrite := func(name string) string {
		if name == from {
			return to
		}
		return name
	}

	for name, q := range scr {
		if q.Then != nil {
			q.Then.Next = rewrite(q.Then.Next)
			for i := range q.Then.Branches {
				q.Then.Branches[i].Then = rewrite(q.Then.Branches[i].Then)
				if q.Then.Branches[i].When != nil {
					q.Then.Branches[i].When.Variable = rewrite(q.Then.Branches[i].When.Variable)
				}
			}
		}
		for i := range q.Details {
			q.Details[i].Then = rewrite(q.Details[i].Then)
			if q.Details[i].When != nil {
				q.Details[i].When.Variable = rewrite(q.Details[i].When.Variable)
			}
		}
		scr[name] = q
	}
}

func clearReferences(scr models.Script, removed string) {
	references := func(branch models.ConditionalThen) bool {
		if branch.Then == removed {
			return true
		}
		return branch.When != nil && branch.When.Variable == removed
	}

	for name, q := range scr {
		if q.Then != nil {
			if q.Then.Next == removed {
				q.Then = nil
			} else if len(q.Then.Branches) > 0 {
				var kept []models.ConditionalThen
				for _, branch := range q.Then.Branches {
					if !references(branch) {
						kept = append(kept, branch)
					}
				}
				if len(kept) == 0 {
					q.Then = nil
				} else {
					q.Then.Branches = kept
				}
			}
		}

		if len(q.Details) > 0 {
			var kept []models.ConditionalThen
			for _, detail := range q.Details {
				if !references(detail) {
					kept = append(kept, detail)
				}
			}
			q.Details = kept
		}

		scr[name] = q
	}
}
