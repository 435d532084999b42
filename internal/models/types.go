package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is the full set of questions forming one questionnaire, keyed by
// question name.
type Script map[string]Question

type Question struct {
	Name    string            `json:"name" yaml:"name"`
	Start   bool              `json:"start,omitempty" yaml:"start,omitempty"`
	Prompt  string            `json:"prompt" yaml:"prompt"`
	Options []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Help    string            `json:"help,omitempty" yaml:"help,omitempty"`
	Details []ConditionalThen `json:"details,omitempty" yaml:"details,omitempty"`
	Then    *Then             `json:"then,omitempty" yaml:"then,omitempty"`
	Type    string            `json:"type" yaml:"type"`
}

type Option struct {
	Text string `json:"text" yaml:"text"`
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Then is the transition rule of a question: either a single unconditional
// next-question reference, or an ordered list of guarded branches evaluated
// first-match-wins. On the wire it is a plain string or a list.
type Then struct {
	Next     string
	Branches []ConditionalThen
}

type ConditionalThen struct {
	Then string      `json:"then" yaml:"then"`
	When *WhenClause `json:"when,omitempty" yaml:"when,omitempty"`
}

// WhenClause guards a branch on a previously recorded answer. The three
// fields are all-or-nothing.
type WhenClause struct {
	Variable  string `json:"variable" yaml:"variable"`
	Condition string `json:"condition" yaml:"condition"`
	Value     string `json:"value" yaml:"value"`
}

func (t Then) MarshalJSON() ([]byte, error) {
	if t.Next != "" {
		return json.Marshal(t.Next)
	}
	return json.Marshal(t.Branches)
}

func (t *Then) UnmarshalJSON(data []byte) error {
	var next string
	if err := json.Unmarshal(data, &next); err == nil {
		t.Next = next
		t.Branches = nil
		return nil
	}

	var branches []ConditionalThen
	if err := json.Unmarshal(data, &branches); err != nil {
		return fmt.Errorf("then must be a string or a list")
	}
	t.Next = ""
	t.Branches = branches
	return nil
}

func (t Then) MarshalYAML() (interface{}, error) {
	if t.Next != "" {
		return t.Next, nil
	}
	return t.Branches, nil
}

func (t *Then) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Branches = nil
		return node.Decode(&t.Next)
	}

	var branches []ConditionalThen
	if err := node.Decode(&branches); err != nil {
		return fmt.Errorf("then must be a string or a list")
	}
	t.Next = ""
	t.Branches = branches
	return nil
}

// Clone returns a deep copy of the script. Sessions hand copies to their
// readers, so an edit in flight can never be observed through one.
func (s Script) Clone() Script {
	cp := make(Script, len(s))
	for name, q := range s {
		cp[name] = q.Clone()
	}
	return cp
}

// Clone returns a deep copy of the question, including its then rule.
func (q Question) Clone() Question {
	if q.Options != nil {
		q.Options = append([]Option(nil), q.Options...)
	}
	q.Details = cloneConditionals(q.Details)
	if q.Then != nil {
		then := Then{Next: q.Then.Next, Branches: cloneConditionals(q.Then.Branches)}
		q.Then = &then
	}
	return q
}

func cloneConditionals(entries []ConditionalThen) []ConditionalThen {
	if entries == nil {
		return nil
	}
	cp := make([]ConditionalThen, len(entries))
	for i, entry := range entries {
		if entry.When != nil {
			when := *entry.When
			entry.When = &when
		}
		cp[i] = entry
	}
	return cp
}

// Transition is the follows-style directed edge used by the alternate editor
// flow: "next follows previous, when variable <condition> value". The
// condition fields are all-or-nothing.
type Transition struct {
	ID        string `json:"id,omitempty"`
	Previous  string `json:"previous"`
	Next      string `json:"next"`
	Condition string `json:"condition,omitempty"`
	Variable  string `json:"variable,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Session is one script-editing session. The script inside is owned
// exclusively by the session.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Script    Script    `json:"script"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type CreateScriptRequest struct {
	Name      string     `json:"name,omitempty"`
	Questions []Question `json:"questions,omitempty"`
}

type ScriptResponse struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	Script    Script `json:"script"`
}

type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type QuestionResponse struct {
	Valid    bool      `json:"valid"`
	Errors   []string  `json:"errors,omitempty"`
	Question *Question `json:"question,omitempty"`
}

type GraphResponse struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

type StartRunRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

// AnswerRecord is one entry of a run's ordered answer history.
type AnswerRecord struct {
	Question string `json:"question"`
	Value    string `json:"value"`
}

type RunResponse struct {
	RunID     string         `json:"run_id"`
	Current   *Question      `json:"current,omitempty"`
	Completed bool           `json:"completed"`
	Answers   []AnswerRecord `json:"answers"`
}
