// Package explain generates patient-facing eligibility explanations through
// an OpenAI-compatible chat completions API. Callers must treat it as
// best-effort and keep a deterministic fallback.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/trialscreen-ai/platform/pkg/common/httpclient"
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpclient.New(timeout),
	}
}

// Available reports whether the client is configured to make real calls.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// Explain returns an explanation and a recommendation for the result. The
// model never decides eligibility; the decision and per-criterion statuses
// are computed upstream and passed in as facts.
func (c *Client) Explain(ctx context.Context, patient models.PatientRecord, result models.EligibilityResult, trialName string) (string, string, error) {
	if !c.Available() {
		return "", "", fmt.Errorf("explanation service not configured")
	}

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildPrompt(patient, result, trialName)},
		},
		"temperature": 0.3,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("explanation service returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", err
	}
	if len(parsed.Choices) == 0 {
		return "", "", fmt.Errorf("empty response from explanation service")
	}

	explanation, recommendation := parseSections(parsed.Choices[0].Message.Content)
	if explanation == "" {
		return "", "", fmt.Errorf("response missing explanation section")
	}
	return explanation, recommendation, nil
}

const systemPrompt = "You are a clinical trial coordinator assistant. " +
	"You are given a completed eligibility evaluation. Restate it in plain language " +
	"for clinical staff. Never change or second-guess the decision. " +
	"Answer with exactly two sections, 'Explanation:' and 'Recommendation:'."

func buildPrompt(patient models.PatientRecord, result models.EligibilityResult, trialName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trial: %s\n", trialName)
	fmt.Fprintf(&b, "Patient: %s\n", patient.PatientID)
	fmt.Fprintf(&b, "Decision: %s\n\n", result.Decision)

	b.WriteString("Inclusion criteria results:\n")
	writeResults(&b, result.InclusionResults)
	b.WriteString("\nExclusion criteria results:\n")
	writeResults(&b, result.ExclusionResults)

	if len(result.MissingData) > 0 {
		fmt.Fprintf(&b, "\nMissing data: %s\n", strings.Join(result.MissingData, ", "))
	}
	return b.String()
}

func writeResults(b *strings.Builder, results []models.CriterionResult) {
	if len(results) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, r := range results {
		fmt.Fprintf(b, "- [%s] %s: %s", r.Status, r.CriterionText, r.Reason)
		if r.ActualValue != nil {
			fmt.Fprintf(b, " (actual: %v)", r.ActualValue)
		}
		b.WriteString("\n")
	}
}

// parseSections splits the model output into the explanation and
// recommendation sections. Content before any section header counts as
// explanation.
func parseSections(content string) (string, string) {
	var explanation, recommendation strings.Builder
	target := &explanation

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "explanation:"):
			target = &explanation
			trimmed = strings.TrimSpace(trimmed[len("explanation:"):])
		case strings.HasPrefix(lower, "recommendation:"):
			target = &recommendation
			trimmed = strings.TrimSpace(trimmed[len("recommendation:"):])
		}
		if trimmed == "" {
			continue
		}
		if target.Len() > 0 {
			target.WriteString(" ")
		}
		target.WriteString(trimmed)
	}
	return explanation.String(), recommendation.String()
}
