package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/dukex/lineforge/pkg/models"
)

const absentValue = "undefined"

// outcome is the result of applying one operator. When pass is false,
// expected describes the condition for the failure message and misuse, when
// set, replaces the default message entirely.
type outcome struct {
	pass     bool
	expected string
	misuse   string
}

func apply(cond models.Condition, actual any, present bool) outcome {
	expected := normalize(cond.Value)

	switch cond.Operator {
	case models.OperatorEquals:
		return outcome{
			pass:     present && reflect.DeepEqual(actual, expected),
			expected: "must equal " + render(expected, true),
		}
	case models.OperatorIn:
		options, ok := expected.([]any)
		if !ok {
			return outcome{
				misuse: fmt.Sprintf("%s: operator \"in\" requires an array comparison value, but the rule provides %s",
					cond.Field, render(expected, true)),
			}
		}

		member := false

		if present {
			for _, option := range options {
				if reflect.DeepEqual(actual, option) {
					member = true

					break
				}
			}
		}

		return outcome{pass: member, expected: "must be one of " + render(options, true)}
	case models.OperatorNotEmpty:
		return outcome{pass: present && !isEmpty(actual), expected: "must not be empty"}
	case models.OperatorGreaterThan, models.OperatorLessThan:
		return compare(cond, expected, actual, present)
	default:
		return outcome{misuse: fmt.Sprintf("%s: unsupported operator %q", cond.Field, cond.Operator)}
	}
}

func compare(cond models.Condition, expected, actual any, present bool) outcome {
	limit, limitOK := expected.(float64)
	value, valueOK := actual.(float64)

	if !limitOK {
		return outcome{
			misuse: fmt.Sprintf("%s: operator %q requires a numeric comparison value, but the rule provides %s",
				cond.Field, cond.Operator, render(expected, true)),
		}
	}

	word := "greater than"
	if cond.Operator == models.OperatorLessThan {
		word = "less than"
	}

	if !valueOK {
		return outcome{
			misuse: fmt.Sprintf("%s must be a number %s %s, but got %s",
				cond.Field, word, render(limit, true), render(actual, present)),
		}
	}

	pass := value > limit
	if cond.Operator == models.OperatorLessThan {
		pass = value < limit
	}

	return outcome{pass: pass, expected: fmt.Sprintf("must be %s %s", word, render(limit, true))}
}

func isEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	default:
		return false
	}
}

// render prints a value as JSON so strings are quoted and arrays read
// ["A","B"] in failure messages.
func render(v any, present bool) string {
	if !present {
		return absentValue
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}
