package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidationResult carries the outcome of validating one submission against a
// form schema. Valid is true iff Errors is empty; Answers then holds the
// normalized (coerced, trimmed) values keyed by field id. Fields that were
// absent and not required do not appear in Answers.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Errors  []string       `json:"errors,omitempty"`
	Answers map[string]any `json:"answers,omitempty"`
}

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{0,14}$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// ValidateAnswers checks a raw submission against the form's field list and
// coerces each present value into its normalized shape. Fields are processed
// in declaration order and every violation is reported, so a client can fix a
// whole submission in one round trip. Raw keys that match no field are
// ignored. An empty field list always validates (draft forms accept nothing
// and produce an empty answer set).
func ValidateAnswers(fields []FieldDescriptor, raw map[string]any) ValidationResult {
	errs := []string{}
	answers := map[string]any{}

	for _, f := range fields {
		if !f.Kind.IsInput() {
			continue
		}
		v, present := raw[f.ID]
		if !present || isEmptyValue(v) {
			if f.Required {
				errs = append(errs, f.Label+" is required")
			}
			continue
		}
		out, fieldErrs := checkField(f, v)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		answers[f.ID] = out
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true, Errors: errs, Answers: answers}
}

// isEmptyValue treats nil and the empty string as "not answered". Zero
// numbers and empty arrays are real answers and validated as such.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// checkField dispatches to the kind-specific check-and-coerce rule. Unknown
// kinds pass the value through unchanged rather than failing the submission.
func checkField(f FieldDescriptor, v any) (any, []string) {
	switch f.Kind {
	case KindShortText, KindLongText:
		return checkText(f, v)
	case KindEmail:
		return checkEmail(f, v)
	case KindPhone:
		return checkPhone(f, v)
	case KindNumber:
		return checkNumber(f, v)
	case KindDate:
		return checkDate(f, v)
	case KindTime:
		return checkTime(f, v)
	case KindRating:
		return checkRating(f, v)
	case KindChoice, KindDropdown:
		return checkChoice(f, v)
	case KindMulti:
		return checkMultiChoice(f, v)
	case KindYesNo:
		return checkYesNo(f, v)
	case KindFile, KindImage:
		return checkFileRef(f, v)
	default:
		return v, nil
	}
}

func checkText(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if c := f.Constraints; c != nil {
		if c.MinLength != nil && n < *c.MinLength {
			return nil, []string{fmt.Sprintf("%s must be at least %d characters", f.Label, *c.MinLength)}
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			return nil, []string{fmt.Sprintf("%s must be at most %d characters", f.Label, *c.MaxLength)}
		}
	}
	return s, nil
}

func checkEmail(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	if !emailRe.MatchString(s) {
		return nil, []string{f.Label + " must be a valid email address"}
	}
	return strings.ToLower(s), nil
}

func checkPhone(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	if !phoneRe.MatchString(phoneStripper.Replace(s)) {
		return nil, []string{f.Label + " must be a valid phone number"}
	}
	// The display form (with spaces, dashes, parentheses) is what gets stored.
	return s, nil
}

func checkNumber(f FieldDescriptor, v any) (any, []string) {
	n, ok := toNumber(v)
	if !ok {
		return nil, []string{f.Label + " must be a number"}
	}
	if c := f.Constraints; c != nil {
		if c.Min != nil && n < *c.Min {
			return nil, []string{fmt.Sprintf("%s must be at least %v", f.Label, *c.Min)}
		}
		if c.Max != nil && n > *c.Max {
			return nil, []string{fmt.Sprintf("%s must be at most %v", f.Label, *c.Max)}
		}
	}
	return n, nil
}

func checkDate(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	if !dateRe.MatchString(s) {
		return nil, []string{f.Label + " must be a date in YYYY-MM-DD format"}
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil, []string{f.Label + " must be a valid date"}
	}
	return s, nil
}

func checkTime(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	if !timeRe.MatchString(s) {
		return nil, []string{f.Label + " must be a time in HH:MM format"}
	}
	return s, nil
}

func checkRating(f FieldDescriptor, v any) (any, []string) {
	n, ok := toNumber(v)
	if !ok || n != math.Trunc(n) || n < 1 || n > 5 {
		return nil, []string{f.Label + " must be a rating between 1 and 5"}
	}
	return n, nil
}

func checkChoice(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	for _, opt := range f.Options {
		if s == opt {
			return s, nil
		}
	}
	return nil, []string{f.Label + " must be one of the listed options"}
}

func checkMultiChoice(f FieldDescriptor, v any) (any, []string) {
	arr, ok := v.([]any)
	if !ok {
		if ss, okS := v.([]string); okS {
			arr = make([]any, len(ss))
			for i, s := range ss {
				arr[i] = s
			}
		} else {
			return nil, []string{f.Label + " must be a list of selections"}
		}
	}
	allowed := make(map[string]bool, len(f.Options))
	for _, opt := range f.Options {
		allowed[opt] = true
	}
	var invalid []string
	for _, el := range arr {
		s, okS := el.(string)
		if !okS || !allowed[s] {
			invalid = append(invalid, valueText(el))
		}
	}
	if len(invalid) > 0 {
		return nil, []string{fmt.Sprintf("%s has invalid selections: %s", f.Label, strings.Join(invalid, ", "))}
	}
	return arr, nil
}

func checkYesNo(f FieldDescriptor, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{f.Label + " must be text"}
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower != "yes" && lower != "no" {
		return nil, []string{f.Label + " must be yes or no"}
	}
	return lower, nil
}

// checkFileRef accepts either a plain path/URL string or an uploaded-file
// object; the object form is rebuilt with its known attributes defaulted.
func checkFileRef(f FieldDescriptor, v any) (any, []string) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]any:
		out := map[string]any{"name": "", "size": float64(0), "type": "", "path": ""}
		if s, ok := t["name"].(string); ok {
			out["name"] = s
		}
		if n, ok := toNumber(t["size"]); ok {
			out["size"] = n
		}
		if s, ok := t["type"].(string); ok {
			out["type"] = s
		}
		if s, ok := t["path"].(string); ok {
			out["path"] = s
		} else if s, ok := t["url"].(string); ok {
			out["path"] = s
		}
		return out, nil
	default:
		return nil, []string{f.Label + " must be a file reference"}
	}
}

// toNumber coerces the numeric shapes a JSON payload can carry, plus numeric
// strings, into a float64.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
