package runtime

import (
	"errors"
	"fmt"

	"intake-script-engine/internal/models"
	"intake-script-engine/internal/script"

	"github.com/expr-lang/expr"
)

// nextQuestion resolves the name of the question that follows q given the
// answer history. Branches are evaluated in list order; a branch without a
// when clause is an unconditional fallback. An empty result is terminal.
func nextQuestion(q models.Question, answers map[string]string) (string, error) {
	if q.Then == nil {
		return "", nil
	}
	if q.Then.Next != "" {
		return q.Then.Next, nil
	}

	for _, branch := range q.Then.Branches {
		if branch.When == nil {
			return branch.Then, nil
		}
		match, err := evaluateWhen(*branch.When, answers)
		if err != nil {
			return "", err
		}
		if match {
			return branch.Then, nil
		}
	}
	return "", nil
}

// evaluateWhen compiles the clause into an expression over the referenced
// answer and runs it. is / is not compare strings; is greater than / is
// less than compare numerically and fail on non-numeric input.
func evaluateWhen(when models.WhenClause, answers map[string]string) (bool, error) {
	source, err := whenExpression(when)
	if err != nil {
		return false, err
	}

	env := map[string]any{
		"answer": answers[when.Variable],
		"value":  when.Value,
	}

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	result, ok := output.(bool)
	if !ok {
		return false, errors.New("condition did not evaluate to a boolean")
	}
	return result, nil
}

func whenExpression(when models.WhenClause) (string, error) {
	switch script.Condition(when.Condition) {
	case script.ConditionIs:
		return "answer == value", nil
	case script.ConditionIsNot:
		return "answer != value", nil
	case script.ConditionGreaterThan:
		return "float(answer) > float(value)", nil
	case script.ConditionLessThan:
		return "float(answer) < float(value)", nil
	default:
		return "", fmt.Errorf("unknown condition %q", when.Condition)
	}
}
