package controllers

import (
	"testing"

	"g7kaih_go/models"
)

func TestParseFilePartName(t *testing.T) {
	testCases := []struct {
		name         string
		part         string
		wantCategory uint
		wantKey      string
		wantOK       bool
	}{
		{"valid part", "file:7:bukti_foto", 7, "bukti_foto", true},
		{"key with colon keeps the rest", "file:7:a:b", 7, "a:b", true},
		{"missing prefix", "upload:7:key", 0, "", false},
		{"non numeric category", "file:abc:key", 0, "", false},
		{"empty key", "file:7:", 0, "", false},
		{"plain field name", "values", 0, "", false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			category, key, ok := parseFilePartName(tc.part)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if category != tc.wantCategory || key != tc.wantKey {
				t.Errorf("expected (%d, %q), got (%d, %q)", tc.wantCategory, tc.wantKey, category, key)
			}
		})
	}
}

func TestCanViewActivity(t *testing.T) {
	student := uint(10)
	other := uint(11)
	activity := &models.Aktivitas{UserID: student}

	testCases := []struct {
		name    string
		profile models.UserProfile
		want    bool
	}{
		{"owner student", models.UserProfile{BaseModel: models.BaseModel{ID: student}, Role: "siswa"}, true},
		{"other student", models.UserProfile{BaseModel: models.BaseModel{ID: other}, Role: "siswa"}, false},
		{"admin", models.UserProfile{Role: "admin"}, true},
		{"guru", models.UserProfile{Role: "guru"}, true},
		{"guru wali", models.UserProfile{Role: "guruwali"}, true},
		{"linked parent", models.UserProfile{Role: "orangtua", ParentOfUserID: &student}, true},
		{"unlinked parent", models.UserProfile{Role: "orangtua", ParentOfUserID: &other}, false},
		{"parent without link", models.UserProfile{Role: "orangtua"}, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := canViewActivity(&tc.profile, activity); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMatchesValidationFilterInReports(t *testing.T) {
	fv := func(teacher, parent bool) models.AktivitasFieldValue {
		return models.AktivitasFieldValue{ValidatedByTeacher: teacher, ValidatedByParent: parent}
	}

	testCases := []struct {
		name   string
		filter string
		value  models.AktivitasFieldValue
		want   bool
	}{
		{"pending matches unvalidated", "pending", fv(false, false), true},
		{"pending rejects teacher validated", "pending", fv(true, false), false},
		{"teacher filter", "teacher", fv(true, false), true},
		{"parent filter", "parent", fv(false, true), true},
		{"both requires both", "both", fv(true, false), false},
		{"both matches full", "both", fv(true, true), true},
		{"no filter matches all", "", fv(false, false), true},
		{"unknown filter matches all", "whatever", fv(true, true), true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := matchesValidationFilter(tc.filter, tc.value); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
