package script

// FieldType is the kind of input a question collects.
type FieldType string

const (
	FieldText           FieldType = "text"
	FieldEmail          FieldType = "email"
	FieldMultipleChoice FieldType = "multiple choice"
	FieldSingleChoice   FieldType = "single choice"
	FieldBoolean        FieldType = "boolean"
	FieldDate           FieldType = "date"
	FieldInfo           FieldType = "info"
	FieldNumber         FieldType = "number"
)

func (f FieldType) Valid() bool {
	switch f {
	case FieldText, FieldEmail, FieldMultipleChoice, FieldSingleChoice,
		FieldBoolean, FieldDate, FieldInfo, FieldNumber:
		return true
	}
	return false
}

// Condition is the operator of a when clause. The greater/less operators
// apply to integer-valued answers only; that contract is not enforced at
// validation time.
type Condition string

const (
	ConditionIs          Condition = "is"
	ConditionIsNot       Condition = "is not"
	ConditionGreaterThan Condition = "is greater than"
	ConditionLessThan    Condition = "is less than"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionIs, ConditionIsNot, ConditionGreaterThan, ConditionLessThan:
		return true
	}
	return false
}

// FieldKeys is the whitelist of permissible keys on a question record.
var FieldKeys = []string{"name", "start", "prompt", "options", "help", "details", "then", "type"}

// MandatoryFields must be present and non-empty on every question.
var MandatoryFields = []string{"name", "prompt", "type"}

func allowedKey(key string) bool {
	for _, k := range FieldKeys {
		if k == key {
			return true
		}
	}
	return false
}
