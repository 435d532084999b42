package runtime

import (
	"errors"
	"fmt"

	"intake-script-engine/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNoStartQuestion = errors.New("script has no start question")
	ErrEmptyAnswer     = errors.New("answer must not be empty")
	ErrCompleted       = errors.New("questionnaire already completed")
	ErrNoPreviousStep  = errors.New("no previous step")

	// ErrBrokenScript marks a script the validator should have rejected:
	// a then target that resolves nowhere, or a cycle reachable from the
	// start question. It is surfaced to the author as a misconfigured
	// questionnaire, not treated as a crash.
	ErrBrokenScript = errors.New("questionnaire is misconfigured")
)

// Run walks a validated script from its start question to completion, one
// answer at a time.
type Run struct {
	ID        string
	Script    models.Script
	Current   string
	Answers   []models.AnswerRecord
	Completed bool
}

// Start finds the unique start question and opens a run on a snapshot of
// the script, so later edits in the authoring session do not affect a walk
// already in progress.
func Start(scr models.Script) (*Run, error) {
	start := ""
	// Linear scan; scripts are human-authored and small.
	for name, q := range scr {
		if q.Start {
			start = name
			break
		}
	}
	if start == "" {
		return nil, ErrNoStartQuestion
	}

	return &Run{
		ID:      uuid.New().String(),
		Script:  scr.Clone(),
		Current: start,
	}, nil
}

// snapshot returns a detached copy safe to read outside the manager's lock.
// The script map is never written after Start, so it is shared.
func (r *Run) snapshot() *Run {
	cp := *r
	cp.Answers = append([]models.AnswerRecord(nil), r.Answers...)
	return &cp
}

// CurrentQuestion returns the question awaiting an answer.
func (r *Run) CurrentQuestion() (models.Question, bool) {
	if r.Completed || r.Current == "" {
		return models.Question{}, false
	}
	q, ok := r.Script[r.Current]
	return q, ok
}

// Answer records the value for the current question and advances the run.
// The next question is the then rule's single reference, or the first
// branch whose when clause is satisfied by the answer history including the
// value just given. No resolvable next question completes the run.
//
// Evaluation failures leave the run unchanged, so a broken branch can be
// fixed and the same step retried.
func (r *Run) Answer(value string) error {
	if r.Completed {
		return ErrCompleted
	}
	if value == "" {
		return ErrEmptyAnswer
	}

	current, ok := r.Script[r.Current]
	if !ok {
		return fmt.Errorf("%w: question %q does not exist", ErrBrokenScript, r.Current)
	}
	if len(r.Answers) >= len(r.Script) {
		// More answers than questions means the walk revisited a node.
		return fmt.Errorf("%w: cycle reached from question %q", ErrBrokenScript, r.Current)
	}

	history := make(map[string]string, len(r.Answers)+1)
	for _, a := range r.Answers {
		history[a.Question] = a.Value
	}
	history[r.Current] = value

	next, err := nextQuestion(current, history)
	if err != nil {
		return err
	}
	if next != "" {
		if _, ok := r.Script[next]; !ok {
			return fmt.Errorf("%w: no such question %q", ErrBrokenScript, next)
		}
	}

	r.Answers = append(r.Answers, models.AnswerRecord{Question: r.Current, Value: value})
	if next == "" {
		r.Current = ""
		r.Completed = true
		return nil
	}
	r.Current = next
	return nil
}

// Back re-selects the previously answered step. It is pure navigation by
// index: the step's answer is dropped from the history and nothing else is
// re-validated.
func (r *Run) Back() error {
	if len(r.Answers) == 0 {
		return ErrNoPreviousStep
	}

	last := r.Answers[len(r.Answers)-1]
	r.Answers = r.Answers[:len(r.Answers)-1]
	r.Current = last.Question
	r.Completed = false
	return nil
}
