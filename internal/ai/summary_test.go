package ai

import (
	"context"
	"strings"
	"testing"
)

func TestSummarizeEmptyResumeReturnsPlaceholders(t *testing.T) {
	s := &Summarizer{model: "gemini-1.5-flash"}

	summary, err := s.Summarize(context.Background(), "   ", "Backend Engineer", "Build services")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(summary.CandidateSummary, "No text content") {
		t.Fatalf("candidate summary = %q", summary.CandidateSummary)
	}
	if summary.KeySkills == "" || summary.JobFit == "" {
		t.Fatalf("placeholder sections missing: %+v", summary)
	}
}

func TestParseSummaryExtractsJSON(t *testing.T) {
	text := "Here is the analysis:\n```json\n" +
		`{"candidate_summary": "<p>Strong backend profile.</p>", "key_skills": "<ul><li>Go</li></ul>", "job_fit": "<p>Good fit.</p>"}` +
		"\n```\nHope this helps."

	summary, ok := parseSummary(text)
	if !ok {
		t.Fatalf("parseSummary failed on fenced JSON")
	}
	if summary.CandidateSummary != "<p>Strong backend profile.</p>" {
		t.Fatalf("candidate summary = %q", summary.CandidateSummary)
	}
	if summary.KeySkills != "<ul><li>Go</li></ul>" || summary.JobFit != "<p>Good fit.</p>" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestParseSummaryRejectsNonJSON(t *testing.T) {
	if _, ok := parseSummary("plain prose with no braces"); ok {
		t.Fatalf("parseSummary accepted prose")
	}
	if _, ok := parseSummary("{not valid json}"); ok {
		t.Fatalf("parseSummary accepted invalid json")
	}
	if _, ok := parseSummary(`{"unrelated": "fields"}`); ok {
		t.Fatalf("parseSummary accepted empty summary")
	}
}

func TestDegradedSummaryAlwaysRenderable(t *testing.T) {
	summary := degraded("Error generating summary: quota exceeded")
	if !strings.Contains(summary.CandidateSummary, "quota exceeded") {
		t.Fatalf("candidate summary = %q", summary.CandidateSummary)
	}
	if summary.KeySkills == "" || summary.JobFit == "" {
		t.Fatalf("degraded sections empty: %+v", summary)
	}
}
