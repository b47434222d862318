package http

import (
	"math"
	"net/http/httptest"
	"testing"
)

func TestPageParams(t *testing.T) {
	cases := map[string]struct {
		query string
		page  int
		limit int
	}{
		"defaults":       {"", 1, 10},
		"explicit":       {"?page=3&limit=25", 3, 25},
		"zero":           {"?page=0&limit=0", 1, 10},
		"negative":       {"?page=-2&limit=-5", 1, 10},
		"non-numeric":    {"?page=abc&limit=xyz", 1, 10},
		"partial":        {"?limit=5", 1, 5},
		"mixed-validity": {"?page=2&limit=oops", 2, 10},
	}
	for name, tc := range cases {
		r := httptest.NewRequest("GET", "/submissions"+tc.query, nil)
		page, limit := pageParams(r)
		if page != tc.page || limit != tc.limit {
			t.Fatalf("%s: expected page=%d limit=%d, got page=%d limit=%d", name, tc.page, tc.limit, page, limit)
		}
	}
}

func TestListOffset(t *testing.T) {
	if got := listOffset(1, 10); got != 0 {
		t.Fatalf("expected offset 0 for first page, got %d", got)
	}
	if got := listOffset(3, 10); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	// Oversized page values must never overflow into a negative offset.
	if got := listOffset(math.MaxInt, math.MaxInt); got < 0 {
		t.Fatalf("expected non-negative offset, got %d", got)
	}
	if got := listOffset(1<<62+1, 3); got < 0 {
		t.Fatalf("expected non-negative offset, got %d", got)
	}
}

func TestBearerToken(t *testing.T) {
	if got := bearerToken(""); got != "" {
		t.Fatalf("expected empty token for empty header, got %q", got)
	}
	if got := bearerToken("Basic abc"); got != "" {
		t.Fatalf("expected empty token for non-bearer scheme, got %q", got)
	}
	if got := bearerToken("Bearer"); got != "" {
		t.Fatalf("expected empty token for bare scheme, got %q", got)
	}
	if got := bearerToken("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := bearerToken("bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("expected case-insensitive scheme, got %q", got)
	}
}

func TestValidateSubmission(t *testing.T) {
	valid := createSubmissionRequest{
		Name:      "Alice",
		Country:   "US",
		Company:   "Acme",
		Questions: []string{"Q1", "Q2"},
	}
	if errCode := validateSubmission(&valid); errCode != "" {
		t.Fatalf("expected valid payload, got %s", errCode)
	}

	missing := createSubmissionRequest{Name: " ", Country: "US", Company: "Acme", Questions: []string{"Q1"}}
	if errCode := validateSubmission(&missing); errCode != "missing_fields" {
		t.Fatalf("expected missing_fields, got %s", errCode)
	}

	noQuestions := createSubmissionRequest{Name: "Alice", Country: "US", Company: "Acme"}
	if errCode := validateSubmission(&noQuestions); errCode != "missing_questions" {
		t.Fatalf("expected missing_questions, got %s", errCode)
	}

	blankQuestion := createSubmissionRequest{Name: "Alice", Country: "US", Company: "Acme", Questions: []string{"Q1", "  "}}
	if errCode := validateSubmission(&blankQuestion); errCode != "empty_question" {
		t.Fatalf("expected empty_question, got %s", errCode)
	}
}

func TestValidateSubmissionTrims(t *testing.T) {
	req := createSubmissionRequest{
		Name:      " Alice ",
		Country:   "US",
		Company:   "Acme",
		Questions: []string{" Q1 "},
	}
	if errCode := validateSubmission(&req); errCode != "" {
		t.Fatalf("expected valid payload, got %s", errCode)
	}
	if req.Name != "Alice" {
		t.Fatalf("expected trimmed name, got %q", req.Name)
	}
	if req.Questions[0] != "Q1" {
		t.Fatalf("expected trimmed question, got %q", req.Questions[0])
	}
}
