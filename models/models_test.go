package models

import "testing"

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		name    string
		teacher bool
		parent  bool
		want    ValidationStatus
	}{
		{"neither flag", false, false, ValidationPending},
		{"teacher only", true, false, ValidationByTeacher},
		{"parent only", false, true, ValidationByParent},
		{"both flags", true, true, ValidationFull},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusOf(tc.teacher, tc.parent); got != tc.want {
				t.Errorf("StatusOf(%v, %v) = %q, want %q", tc.teacher, tc.parent, got, tc.want)
			}
		})
	}
}

func TestStatusIsReversible(t *testing.T) {
	// un-validating after full validation must drop back to the single-flag
	// status, not stay locked
	if got := StatusOf(false, true); got != ValidationByParent {
		t.Errorf("after teacher un-validates expected %q, got %q", ValidationByParent, got)
	}
	if got := StatusOf(true, false); got != ValidationByTeacher {
		t.Errorf("after parent un-validates expected %q, got %q", ValidationByTeacher, got)
	}
	if got := StatusOf(false, false); got != ValidationPending {
		t.Errorf("after both un-validate expected %q, got %q", ValidationPending, got)
	}
}

func TestJSONIsNull(t *testing.T) {
	if !JSON(nil).IsNull() {
		t.Error("nil JSON should be null")
	}
	if !JSON("null").IsNull() {
		t.Error("literal null should be null")
	}
	if JSON(`{"a":1}`).IsNull() {
		t.Error("object should not be null")
	}
}
