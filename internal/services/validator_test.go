package services

import (
	"reflect"
	"strings"
	"testing"
)

func reqField(id string, kind FieldKind, label string) FieldDescriptor {
	return FieldDescriptor{ID: id, Kind: kind, Label: label, Required: true}
}

func TestValidateEmptySchemaAlwaysSucceeds(t *testing.T) {
	raws := []map[string]any{
		nil,
		{},
		{"junk": "value", "more": []any{1, 2, 3}},
	}
	for _, raw := range raws {
		res := ValidateAnswers(nil, raw)
		if !res.Valid {
			t.Fatalf("empty schema rejected %v: %v", raw, res.Errors)
		}
		if len(res.Answers) != 0 {
			t.Fatalf("empty schema produced answers: %v", res.Answers)
		}
	}
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	fields := []FieldDescriptor{
		reqField("name", KindShortText, "Your name"),
		reqField("rating", KindRating, "Rating"),
		reqField("fb", KindLongText, "Feedback"),
	}
	res := ValidateAnswers(fields, map[string]any{
		"rating": 9,
		"fb":     "it was fine",
	})
	if res.Valid {
		t.Fatal("expected validation failure")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", res.Errors)
	}
	if res.Errors[0] != "Your name is required" {
		t.Fatalf("first error = %q", res.Errors[0])
	}
	if !strings.Contains(res.Errors[1], "Rating") {
		t.Fatalf("second error = %q, want rating violation", res.Errors[1])
	}
}

func TestValidateOptionalMissingSkipped(t *testing.T) {
	fields := []FieldDescriptor{
		{ID: "nick", Kind: KindShortText, Label: "Nickname"},
		reqField("fb", KindLongText, "Feedback"),
	}
	res := ValidateAnswers(fields, map[string]any{"fb": " thanks a lot ", "nick": ""})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if _, ok := res.Answers["nick"]; ok {
		t.Fatal("empty optional field should not appear in answers")
	}
	if res.Answers["fb"] != "thanks a lot" {
		t.Fatalf("fb = %q, want trimmed", res.Answers["fb"])
	}
}

func TestValidateEmail(t *testing.T) {
	fields := []FieldDescriptor{reqField("e", KindEmail, "Email")}

	res := ValidateAnswers(fields, map[string]any{"e": "  USER@Example.COM "})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Answers["e"] != "user@example.com" {
		t.Fatalf("email = %q, want user@example.com", res.Answers["e"])
	}

	for _, bad := range []string{"not-an-email", "a@b", "a b@c.com", "user@domain"} {
		if res := ValidateAnswers(fields, map[string]any{"e": bad}); res.Valid {
			t.Fatalf("email %q accepted", bad)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	fields := []FieldDescriptor{reqField("p", KindPhone, "Phone")}

	res := ValidateAnswers(fields, map[string]any{"p": " +1 (555) 123-4567 "})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	// The display form is kept, not the stripped digits.
	if res.Answers["p"] != "+1 (555) 123-4567" {
		t.Fatalf("phone = %q", res.Answers["p"])
	}

	for _, bad := range []string{"hello", "0123456", "+12345678901234567890"} {
		if res := ValidateAnswers(fields, map[string]any{"p": bad}); res.Valid {
			t.Fatalf("phone %q accepted", bad)
		}
	}
}

func TestValidateNumber(t *testing.T) {
	minVal, maxVal := 1.0, 10.0
	fields := []FieldDescriptor{{
		ID: "n", Kind: KindNumber, Label: "Count", Required: true,
		Constraints: &FieldConstraints{Min: &minVal, Max: &maxVal},
	}}

	res := ValidateAnswers(fields, map[string]any{"n": "7"})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Answers["n"] != float64(7) {
		t.Fatalf("n = %v (%T), want float64(7)", res.Answers["n"], res.Answers["n"])
	}

	for _, bad := range []any{"abc", 0.5, 11, "NaN"} {
		if res := ValidateAnswers(fields, map[string]any{"n": bad}); res.Valid {
			t.Fatalf("number %v accepted", bad)
		}
	}
}

func TestValidateDateAndTime(t *testing.T) {
	fields := []FieldDescriptor{
		reqField("d", KindDate, "Visit date"),
		reqField("t", KindTime, "Visit time"),
	}
	res := ValidateAnswers(fields, map[string]any{"d": "2024-02-29", "t": "09:30"})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Answers["d"] != "2024-02-29" || res.Answers["t"] != "09:30" {
		t.Fatalf("answers = %v", res.Answers)
	}

	bad := []map[string]any{
		{"d": "2023-02-29", "t": "09:30"},
		{"d": "02/29/2024", "t": "09:30"},
		{"d": "2024-02-29", "t": "24:00"},
		{"d": "2024-02-29", "t": "9:30"},
	}
	for _, raw := range bad {
		if res := ValidateAnswers(fields, raw); res.Valid {
			t.Fatalf("accepted %v", raw)
		}
	}
}

func TestValidateRating(t *testing.T) {
	fields := []FieldDescriptor{reqField("r", KindRating, "Rating")}

	res := ValidateAnswers(fields, map[string]any{"r": 3})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Answers["r"] != float64(3) {
		t.Fatalf("rating = %v (%T), want float64(3)", res.Answers["r"], res.Answers["r"])
	}

	for _, bad := range []any{0, 6, 2.5, "lots"} {
		if res := ValidateAnswers(fields, map[string]any{"r": bad}); res.Valid {
			t.Fatalf("rating %v accepted", bad)
		}
	}
}

func TestValidateChoices(t *testing.T) {
	fields := []FieldDescriptor{
		{ID: "c", Kind: KindChoice, Label: "Branch", Required: true, Options: []string{"north", "south"}},
		{ID: "m", Kind: KindMulti, Label: "Topics", Required: true, Options: []string{"price", "service", "quality"}},
	}

	res := ValidateAnswers(fields, map[string]any{
		"c": "north",
		"m": []any{"price", "quality"},
	})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if !reflect.DeepEqual(res.Answers["m"], []any{"price", "quality"}) {
		t.Fatalf("multi = %v", res.Answers["m"])
	}

	res = ValidateAnswers(fields, map[string]any{
		"c": "east",
		"m": []any{"price", "speed", "vibes"},
	})
	if res.Valid {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", res.Errors)
	}
	// One aggregate error names every invalid selection.
	if !strings.Contains(res.Errors[1], "speed") || !strings.Contains(res.Errors[1], "vibes") {
		t.Fatalf("multi error = %q", res.Errors[1])
	}
}

func TestValidateYesNo(t *testing.T) {
	fields := []FieldDescriptor{reqField("y", KindYesNo, "Recommend us")}
	res := ValidateAnswers(fields, map[string]any{"y": "YES"})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Answers["y"] != "yes" {
		t.Fatalf("yes_no = %q", res.Answers["y"])
	}
	if res := ValidateAnswers(fields, map[string]any{"y": "maybe"}); res.Valid {
		t.Fatal("accepted maybe")
	}
}

func TestValidateFileRef(t *testing.T) {
	fields := []FieldDescriptor{reqField("f", KindFile, "Receipt")}

	res := ValidateAnswers(fields, map[string]any{"f": "uploads/receipt.pdf"})
	if !res.Valid || res.Answers["f"] != "uploads/receipt.pdf" {
		t.Fatalf("string file ref: %v %v", res.Errors, res.Answers)
	}

	res = ValidateAnswers(fields, map[string]any{"f": map[string]any{"name": "r.pdf", "size": float64(1234)}})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	got, ok := res.Answers["f"].(map[string]any)
	if !ok {
		t.Fatalf("file ref type = %T", res.Answers["f"])
	}
	if got["name"] != "r.pdf" || got["size"] != float64(1234) || got["type"] != "" || got["path"] != "" {
		t.Fatalf("file ref = %v", got)
	}

	if res := ValidateAnswers(fields, map[string]any{"f": 42}); res.Valid {
		t.Fatal("numeric file ref accepted")
	}
}

func TestValidateUnknownKindPassesThrough(t *testing.T) {
	fields := []FieldDescriptor{{ID: "x", Kind: "hologram", Label: "Future thing", Required: true}}
	res := ValidateAnswers(fields, map[string]any{"x": map[string]any{"spin": true}})
	if !res.Valid {
		t.Fatalf("unknown kind rejected: %v", res.Errors)
	}
	if !reflect.DeepEqual(res.Answers["x"], map[string]any{"spin": true}) {
		t.Fatalf("x = %v", res.Answers["x"])
	}
}

func TestValidateDisplayKindsAndExtraKeys(t *testing.T) {
	fields := []FieldDescriptor{
		{ID: "s1", Kind: KindSectionTitle, Label: "About you"},
		{ID: "d1", Kind: KindDivider},
		reqField("fb", KindLongText, "Feedback"),
	}
	res := ValidateAnswers(fields, map[string]any{
		"fb":       "all good",
		"s1":       "should be ignored",
		"stowaway": "ignored too",
	})
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("answers = %v, want only fb", res.Answers)
	}
}

func TestValidateTextLengthConstraints(t *testing.T) {
	minLen, maxLen := 5, 10
	fields := []FieldDescriptor{{
		ID: "t", Kind: KindShortText, Label: "Title", Required: true,
		Constraints: &FieldConstraints{MinLength: &minLen, MaxLength: &maxLen},
	}}
	if res := ValidateAnswers(fields, map[string]any{"t": "hey"}); res.Valid {
		t.Fatal("below min length accepted")
	}
	if res := ValidateAnswers(fields, map[string]any{"t": "way too long for this"}); res.Valid {
		t.Fatal("above max length accepted")
	}
	// Length is measured after trimming.
	if res := ValidateAnswers(fields, map[string]any{"t": "  just right  "}); !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}
