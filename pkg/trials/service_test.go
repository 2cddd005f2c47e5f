package trials

import (
	"testing"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

func TestValidateTrial(t *testing.T) {
	valid := models.CreateTrialRequest{
		ID:   "DM2-2024-001",
		Name: "Novel Therapy for Type 2 Diabetes",
		InclusionCriteria: []models.Criterion{
			{ID: "INC01", Field: "age"},
		},
	}
	if err := validateTrial(valid); err != nil {
		t.Fatalf("valid trial rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CreateTrialRequest)
	}{
		{"missing id", func(r *models.CreateTrialRequest) { r.ID = "" }},
		{"missing name", func(r *models.CreateTrialRequest) { r.Name = "   " }},
		{"criterion without id", func(r *models.CreateTrialRequest) { r.InclusionCriteria[0].ID = "" }},
		{"criterion without field", func(r *models.CreateTrialRequest) { r.InclusionCriteria[0].Field = "" }},
		{"bad exclusion criterion", func(r *models.CreateTrialRequest) {
			r.ExclusionCriteria = []models.Criterion{{Text: "no id or field"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.CreateTrialRequest{
				ID:   valid.ID,
				Name: valid.Name,
				InclusionCriteria: []models.Criterion{
					{ID: "INC01", Field: "age"},
				},
			}
			tt.mutate(&req)
			if err := validateTrial(req); !IsInvalid(err) {
				t.Fatalf("expected invalid trial error, got %v", err)
			}
		})
	}
}

func TestDefaultSeedIsUsable(t *testing.T) {
	catalog := DefaultSeed()

	requests := catalog.TrialRequests()
	if len(requests) == 0 {
		t.Fatal("default seed has no trials")
	}
	for _, req := range requests {
		if err := validateTrial(req); err != nil {
			t.Fatalf("seed trial %s invalid: %v", req.ID, err)
		}
	}

	trial := requests[0]
	if trial.ID != "DM2-2024-001" {
		t.Fatalf("unexpected seed trial id %s", trial.ID)
	}
	if len(trial.InclusionCriteria) != 4 || len(trial.ExclusionCriteria) != 4 {
		t.Fatalf("seed trial criteria counts: %d inclusion, %d exclusion",
			len(trial.InclusionCriteria), len(trial.ExclusionCriteria))
	}

	patients := catalog.PatientRecords()
	if len(patients) == 0 {
		t.Fatal("default seed has no patients")
	}
	seen := make(map[string]bool)
	for _, p := range patients {
		if p.PatientID == "" {
			t.Fatal("seed patient without id")
		}
		if seen[p.PatientID] {
			t.Fatalf("duplicate seed patient id %s", p.PatientID)
		}
		seen[p.PatientID] = true
	}
}

func TestLoadSeedFallsBackToDefault(t *testing.T) {
	catalog, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed with empty path returned error: %v", err)
	}
	if len(catalog.Trials) == 0 {
		t.Fatal("expected built-in catalog")
	}

	catalog, err = LoadSeed("/nonexistent/seed.yaml")
	if err == nil {
		t.Fatal("expected error for missing seed file")
	}
	if len(catalog.Trials) == 0 {
		t.Fatal("expected default catalog alongside the error")
	}
}
