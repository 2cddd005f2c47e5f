package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

func sampleResult() models.EligibilityResult {
	return models.EligibilityResult{
		Decision: models.DecisionIneligible,
		InclusionResults: []models.CriterionResult{
			{CriterionID: "INC01", CriterionText: "Age 18-75 years", Field: "age", Status: models.StatusMet, ActualValue: 52.0, Reason: "value within allowed range"},
		},
		ExclusionResults: []models.CriterionResult{
			{CriterionID: "EXC02", CriterionText: "Insulin treatment", Field: "current_medications", Status: models.StatusExcludes, Reason: "disqualifying item found: insulin"},
		},
		MissingData: []string{},
	}
}

func TestExplainParsesSections(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"content": "Explanation: The patient is excluded due to current insulin treatment.\nRecommendation: Consider re-screening after the insulin washout period.",
				}},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "gpt-4", 5*time.Second)
	patient := models.PatientRecord{PatientID: "P005"}

	explanation, recommendation, err := client.Explain(context.Background(), patient, sampleResult(), "Novel Therapy for Type 2 Diabetes")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4" {
		t.Fatalf("expected model gpt-4, got %v", gotBody["model"])
	}
	if !strings.Contains(explanation, "insulin") {
		t.Fatalf("unexpected explanation: %q", explanation)
	}
	if !strings.Contains(recommendation, "re-screening") {
		t.Fatalf("unexpected recommendation: %q", recommendation)
	}
}

func TestExplainPromptCarriesDecision(t *testing.T) {
	prompt := buildPrompt(models.PatientRecord{PatientID: "P005"}, sampleResult(), "Novel Therapy for Type 2 Diabetes")
	for _, want := range []string{"INELIGIBLE", "P005", "disqualifying item found: insulin"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestExplainServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "gpt-4", 5*time.Second)
	if _, _, err := client.Explain(context.Background(), models.PatientRecord{PatientID: "P001"}, sampleResult(), "Trial"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestExplainUnavailableWithoutKey(t *testing.T) {
	client := NewClient("", "https://api.example.com/v1", "gpt-4", time.Second)
	if client.Available() {
		t.Fatal("client without API key should not be available")
	}
	if _, _, err := client.Explain(context.Background(), models.PatientRecord{}, sampleResult(), "Trial"); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		name               string
		content            string
		wantExplanation    string
		wantRecommendation string
	}{
		{
			name:               "both sections",
			content:            "Explanation: all good\nRecommendation: enroll",
			wantExplanation:    "all good",
			wantRecommendation: "enroll",
		},
		{
			name:               "multiline explanation",
			content:            "Explanation: first part.\nsecond part.\nRecommendation: enroll",
			wantExplanation:    "first part. second part.",
			wantRecommendation: "enroll",
		},
		{
			name:            "no headers treated as explanation",
			content:         "The patient qualifies.",
			wantExplanation: "The patient qualifies.",
		},
		{
			name:               "case insensitive headers",
			content:            "EXPLANATION: ok\nRECOMMENDATION: proceed",
			wantExplanation:    "ok",
			wantRecommendation: "proceed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explanation, recommendation := parseSections(tt.content)
			if explanation != tt.wantExplanation {
				t.Fatalf("explanation = %q, want %q", explanation, tt.wantExplanation)
			}
			if recommendation != tt.wantRecommendation {
				t.Fatalf("recommendation = %q, want %q", recommendation, tt.wantRecommendation)
			}
		})
	}
}
