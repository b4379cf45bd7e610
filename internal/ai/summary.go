// Package ai generates recruiter-facing resume summaries with Gemini. The
// model is asked for three HTML fragments; every failure path degrades to
// placeholder text so a summary request can never abort.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"careerbridge/internal/config"
)

// Summary is the three-fragment analysis shown on the application view.
type Summary struct {
	CandidateSummary string `json:"candidate_summary"`
	KeySkills        string `json:"key_skills"`
	JobFit           string `json:"job_fit"`
}

const promptTemplate = `You are an expert HR professional analyzing a resume. Please provide a comprehensive analysis of the following resume content.
Format your response in HTML with appropriate tags (<p>, <ul>, <li>, <strong>, etc.).

Resume Content:
%s
%s
Please provide the following sections:
1. Candidate Summary: A brief overview of the candidate's background, experience, and qualifications.
2. Key Skills: A bullet-point list of the candidate's key skills and competencies.
3. Job Fit Analysis: An assessment of how well the candidate's profile matches the job requirements.

Return your response as a JSON object with the following structure:
{
    "candidate_summary": "HTML formatted candidate summary",
    "key_skills": "HTML formatted list of key skills",
    "job_fit": "HTML formatted job fit analysis"
}`

// Keep prompts inside the model's comfortable context window.
const maxResumeChars = 20000

// Summarizer wraps the Gemini client.
type Summarizer struct {
	client *genai.Client
	model  string
}

// NewSummarizer dials the Gemini API.
func NewSummarizer(ctx context.Context, cfg config.GeminiConfig) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Summarizer{client: client, model: model}, nil
}

// Close releases the underlying client.
func (s *Summarizer) Close() error {
	return s.client.Close()
}

// Summarize produces the three fragments for a resume, optionally in the
// context of the job applied to. The returned Summary is always renderable;
// the error is informational (the caller may log it) and accompanies
// placeholder content.
func (s *Summarizer) Summarize(ctx context.Context, resumeText, jobTitle, jobDescription string) (*Summary, error) {
	if strings.TrimSpace(resumeText) == "" {
		return &Summary{
			CandidateSummary: "<p>No text content could be extracted from the resume.</p>",
			KeySkills:        "<p>No skills could be identified.</p>",
			JobFit:           "<p>Unable to analyze job fit due to missing resume content.</p>",
		}, nil
	}
	if len(resumeText) > maxResumeChars {
		resumeText = resumeText[:maxResumeChars]
	}

	jobContext := ""
	if jobTitle != "" && jobDescription != "" {
		jobContext = fmt.Sprintf("\nThe candidate has applied for the position of %s.\nJob Description: %s\n", jobTitle, jobDescription)
	}
	prompt := fmt.Sprintf(promptTemplate, resumeText, jobContext)

	resp, err := s.client.GenerativeModel(s.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return degraded(fmt.Sprintf("Error generating summary: %v", err)), err
	}

	text := responseText(resp)
	if summary, ok := parseSummary(text); ok {
		return summary, nil
	}
	// The model answered but not in the requested shape; show the raw text.
	return &Summary{
		CandidateSummary: fmt.Sprintf("<p>%s</p>", text),
		KeySkills:        "<p>Skills extraction failed.</p>",
		JobFit:           "<p>Job fit analysis failed.</p>",
	}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// parseSummary pulls the JSON object out of the response, tolerating
// surrounding prose or markdown fences.
func parseSummary(text string) (*Summary, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal([]byte(text[start:end+1]), &summary); err != nil {
		return nil, false
	}
	if summary.CandidateSummary == "" && summary.KeySkills == "" && summary.JobFit == "" {
		return nil, false
	}
	return &summary, true
}

func degraded(message string) *Summary {
	return &Summary{
		CandidateSummary: fmt.Sprintf("<p>%s</p>", message),
		KeySkills:        "<p>Skills extraction failed.</p>",
		JobFit:           "<p>Job fit analysis failed.</p>",
	}
}
