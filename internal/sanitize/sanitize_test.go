package sanitize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
)

func TestIDRejectsDisallowedCharacters(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain", "team_123", true},
		{"uuid style", "a1b2c3d4-e5f6", true},
		{"empty", "", false},
		{"path traversal", "../etc/passwd", false},
		{"whitespace", "team 1", false},
		{"sql quote", "x';DROP TABLE teams;--", false},
		{"too long", strings.Repeat("a", 256), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ID(tc.input)
			if tc.ok {
				if err != nil {
					t.Fatalf("ID(%q) returned error: %v", tc.input, err)
				}
				if got != tc.input {
					t.Fatalf("ID(%q) = %q, want input unchanged", tc.input, got)
				}
				return
			}
			if err == nil {
				t.Fatalf("ID(%q) accepted, want rejection", tc.input)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ID(%q) error %T, want *ValidationError", tc.input, err)
			}
		})
	}
}

func TestPlainTextStripsMarkup(t *testing.T) {
	got, err := PlainText("  <script>alert(1)</script>Hello <b>world</b>  ", 100)
	if err != nil {
		t.Fatalf("PlainText returned error: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("PlainText = %q, want %q", got, "Hello world")
	}
}

func TestPlainTextEnforcesRuneLimit(t *testing.T) {
	if _, err := PlainText(strings.Repeat("x", 11), 10); err == nil {
		t.Fatal("expected length rejection")
	}
	// Multibyte runes count as one character each.
	if _, err := PlainText(strings.Repeat("ø", 10), 10); err != nil {
		t.Fatalf("10 multibyte runes rejected: %v", err)
	}
}

func TestRichTextKeepsAllowedTags(t *testing.T) {
	in := `<p>Hi <strong>there</strong><img src="x" onerror="alert(1)"></p>`
	got := RichText(in)
	if got != "<p>Hi <strong>there</strong></p>" {
		t.Fatalf("RichText = %q", got)
	}
}

func TestColor(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"#ABC", "#abc", true},
		{"#a1B2c3", "#a1b2c3", true},
		{"red", "", false},
		{"ABC123", "", false},
		{"#ab", "", false},
		{"#gggggg", "", false},
	}
	for _, tc := range cases {
		got, err := Color(tc.input)
		if tc.ok != (err == nil) {
			t.Fatalf("Color(%q) err = %v, want ok=%v", tc.input, err, tc.ok)
		}
		if err == nil && got != tc.want {
			t.Fatalf("Color(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestISODate(t *testing.T) {
	if got, err := ISODate(""); err != nil || got != nil {
		t.Fatalf("empty date: got %v, %v; want nil, nil", got, err)
	}
	got, err := ISODate("2026-03-15")
	if err != nil {
		t.Fatalf("calendar date rejected: %v", err)
	}
	if got.Format("2006-01-02") != "2026-03-15" {
		t.Fatalf("parsed date = %v", got)
	}
	if _, err := ISODate("2026-03-15T10:00:00Z"); err != nil {
		t.Fatalf("RFC3339 date rejected: %v", err)
	}
	if _, err := ISODate("15/03/2026"); err == nil {
		t.Fatal("expected rejection of non-ISO date")
	}
}

func TestTimestampRequiresRFC3339(t *testing.T) {
	if _, err := Timestamp("2026-03-15"); err == nil {
		t.Fatal("bare date accepted as timestamp")
	}
	want := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	got, err := Timestamp("2026-03-15T10:30:00Z")
	if err != nil {
		t.Fatalf("Timestamp returned error: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", got, want)
	}
}

func TestEmail(t *testing.T) {
	if got, err := Email("Dev@Example.COM"); err != nil || got != "dev@example.com" {
		t.Fatalf("Email = %q, %v", got, err)
	}
	for _, bad := range []string{"not-an-email", "Name <dev@example.com>", ""} {
		if _, err := Email(bad); err == nil {
			t.Fatalf("Email(%q) accepted", bad)
		}
	}
}

func TestTeamRecordRejectsOnAnyFailure(t *testing.T) {
	now := time.Now()
	if _, err := TeamRecord(upstream.Team{ID: "t1", Key: "bad key", Name: "Core"}, now); err == nil {
		t.Fatal("team with invalid key accepted")
	}
	team, err := TeamRecord(upstream.Team{ID: "t1", Key: "CORE", Name: "<b>Core</b>"}, now)
	if err != nil {
		t.Fatalf("TeamRecord returned error: %v", err)
	}
	if team.Name != "Core" {
		t.Fatalf("team name = %q, want stripped", team.Name)
	}
}

func TestIssueRecordSkipsBadNestedObjects(t *testing.T) {
	in := upstream.Issue{
		ID:        "i1",
		Title:     "Fix login",
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-02T00:00:00Z",
		Assignee:  &upstream.User{Name: "Sam", Email: "not-an-email"},
		Labels: &upstream.LabelConnection{Nodes: []upstream.Label{
			{ID: "l1", Name: "bug", Color: "#FF0000"},
			{ID: "l2", Name: "infra", Color: "red"},
		}},
	}
	issue, labels, skipped, err := IssueRecord(in, time.Now())
	if err != nil {
		t.Fatalf("IssueRecord returned error: %v", err)
	}
	if issue.AssigneeName != "" {
		t.Fatalf("assignee with bad email kept: %q", issue.AssigneeName)
	}
	if len(labels) != 1 || labels[0].ID != "l1" || labels[0].Color != "#ff0000" {
		t.Fatalf("labels = %+v, want only l1 lowercased", labels)
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %d errors, want 2", len(skipped))
	}
}

func TestIssueRecordRejectsBadRequiredField(t *testing.T) {
	in := upstream.Issue{
		ID:        "i1",
		Title:     "Fix login",
		CreatedAt: "yesterday",
		UpdatedAt: "2026-01-02T00:00:00Z",
	}
	if _, _, _, err := IssueRecord(in, time.Now()); err == nil {
		t.Fatal("issue with invalid createdAt accepted")
	}
}
