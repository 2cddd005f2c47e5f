package trials

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"

	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// SeedCatalog holds trial and patient definitions loaded at startup when the
// database is empty.
type SeedCatalog struct {
	Trials   []seedTrial   `yaml:"trials"`
	Patients []seedPatient `yaml:"patients"`
}

type seedTrial struct {
	ID                string          `yaml:"id"`
	Name              string          `yaml:"name"`
	Phase             string          `yaml:"phase"`
	Sponsor           string          `yaml:"sponsor"`
	Description       string          `yaml:"description"`
	InclusionCriteria []seedCriterion `yaml:"inclusion_criteria"`
	ExclusionCriteria []seedCriterion `yaml:"exclusion_criteria"`
}

type seedCriterion struct {
	ID       string   `yaml:"id"`
	Text     string   `yaml:"text"`
	Field    string   `yaml:"field"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Value    *string  `yaml:"value"`
	Excludes []string `yaml:"excludes"`
	Contains []string `yaml:"contains"`
}

type seedPatient struct {
	PatientID          string   `yaml:"patient_id"`
	Age                *int     `yaml:"age"`
	Gender             *string  `yaml:"gender"`
	Diagnosis          *string  `yaml:"diagnosis"`
	DiagnosisDate      *string  `yaml:"diagnosis_date"`
	HbA1c              *float64 `yaml:"hba1c"`
	EGFR               *float64 `yaml:"egfr"`
	Creatinine         *float64 `yaml:"creatinine"`
	CurrentMedications []string `yaml:"current_medications"`
	Comorbidities      []string `yaml:"comorbidities"`
	PregnancyStatus    *string  `yaml:"pregnancy_status"`
	ClinicalNotes      *string  `yaml:"clinical_notes"`
}

func LoadSeed(path string) (SeedCatalog, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSeed(), err
	}

	var catalog SeedCatalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return SeedCatalog{}, err
	}
	if len(catalog.Trials) == 0 {
		return SeedCatalog{}, errors.New("seed catalog has no trials")
	}
	return catalog, nil
}

func (c SeedCatalog) TrialRequests() []models.CreateTrialRequest {
	requests := make([]models.CreateTrialRequest, 0, len(c.Trials))
	for _, t := range c.Trials {
		requests = append(requests, models.CreateTrialRequest{
			ID:                t.ID,
			Name:              t.Name,
			Phase:             t.Phase,
			Sponsor:           t.Sponsor,
			Description:       t.Description,
			InclusionCriteria: toCriteria(t.InclusionCriteria),
			ExclusionCriteria: toCriteria(t.ExclusionCriteria),
		})
	}
	return requests
}

func (c SeedCatalog) PatientRecords() []models.PatientRecord {
	records := make([]models.PatientRecord, 0, len(c.Patients))
	for _, p := range c.Patients {
		records = append(records, models.PatientRecord{
			PatientID:          p.PatientID,
			Age:                p.Age,
			Gender:             p.Gender,
			Diagnosis:          p.Diagnosis,
			DiagnosisDate:      p.DiagnosisDate,
			HbA1c:              p.HbA1c,
			EGFR:               p.EGFR,
			Creatinine:         p.Creatinine,
			CurrentMedications: p.CurrentMedications,
			Comorbidities:      p.Comorbidities,
			PregnancyStatus:    p.PregnancyStatus,
			ClinicalNotes:      p.ClinicalNotes,
		})
	}
	return records
}

func toCriteria(seeds []seedCriterion) []models.Criterion {
	criteria := make([]models.Criterion, 0, len(seeds))
	for _, s := range seeds {
		criteria = append(criteria, models.Criterion{
			ID:       s.ID,
			Text:     s.Text,
			Field:    s.Field,
			Min:      s.Min,
			Max:      s.Max,
			Value:    s.Value,
			Excludes: s.Excludes,
			Contains: models.KeywordSet(s.Contains),
		})
	}
	return criteria
}

// SeedIfEmpty creates the catalog trials when the trials table is empty.
// Returns the patient records so the caller can seed the patient store.
func (s *Service) SeedIfEmpty(ctx context.Context, catalog SeedCatalog) ([]models.PatientRecord, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	for _, req := range catalog.TrialRequests() {
		if _, err := s.Create(ctx, req); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		logger.Log.WithField("trial_id", req.ID).Info("Seeded trial")
	}
	return catalog.PatientRecords(), nil
}

func fl(f float64) *float64 { return &f }
func st(s string) *string   { return &s }
func in(i int) *int         { return &i }

// DefaultSeed returns the reference Type 2 Diabetes trial and a small set of
// screening test patients.
func DefaultSeed() SeedCatalog {
	return SeedCatalog{
		Trials: []seedTrial{
			{
				ID:          "DM2-2024-001",
				Name:        "Novel Therapy for Type 2 Diabetes",
				Phase:       "Phase III",
				Sponsor:     "Academic Medical Center",
				Description: "Multi-center trial assessing the efficacy and safety of a novel Type 2 Diabetes therapy in adults.",
				InclusionCriteria: []seedCriterion{
					{ID: "INC01", Text: "Age 18-75 years", Field: "age", Min: fl(18), Max: fl(75)},
					{ID: "INC02", Text: "Confirmed Type 2 Diabetes diagnosis", Field: "diagnosis", Value: st("Type 2 Diabetes")},
					{ID: "INC03", Text: "HbA1c between 7.0% and 10.0%", Field: "hba1c", Min: fl(7.0), Max: fl(10.0)},
					{ID: "INC04", Text: "eGFR > 45 mL/min/1.73m²", Field: "egfr", Min: fl(45)},
				},
				ExclusionCriteria: []seedCriterion{
					{ID: "EXC01", Text: "Pregnancy or breastfeeding", Field: "pregnancy_status", Excludes: []string{"pregnant", "breastfeeding"}},
					{ID: "EXC02", Text: "Insulin treatment in the last 3 months", Field: "current_medications", Contains: []string{"insulin", "lantus", "glargine"}},
					{ID: "EXC03", Text: "Heart failure NYHA Class III or IV", Field: "comorbidities", Contains: []string{"NYHA III", "NYHA IV", "NYHA Class III", "NYHA Class IV"}},
					{ID: "EXC04", Text: "Active liver disease (including cirrhosis)", Field: "comorbidities", Contains: []string{"cirrhosis", "liver disease"}},
				},
			},
		},
		Patients: []seedPatient{
			{
				PatientID: "P001", Age: in(52), Gender: st("male"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2019-03-15"),
				HbA1c: fl(8.2), EGFR: fl(78),
				CurrentMedications: []string{"Metformin 1000mg x2", "Amlodipine 5mg"},
				Comorbidities:      []string{"Hypertension"},
				ClinicalNotes:      st("Stable patient, good treatment adherence"),
			},
			{
				PatientID: "P002", Age: in(67), Gender: st("female"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2015-08-20"),
				HbA1c: fl(7.5), EGFR: fl(55),
				CurrentMedications: []string{"Metformin 850mg x3", "Gliclazide 60mg"},
				Comorbidities:      []string{"Hypertension", "Hyperlipidemia"},
				ClinicalNotes:      st("Kidney function normal for age"),
			},
			{
				PatientID: "P003", Age: in(45), Gender: st("male"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2021-01-10"),
				HbA1c: fl(11.2), EGFR: fl(92),
				CurrentMedications: []string{"Metformin 500mg x2"},
				Comorbidities:      []string{"Obesity"},
				ClinicalNotes:      st("HbA1c poorly controlled, treatment escalation needed"),
			},
			{
				PatientID: "P004", Age: in(34), Gender: st("female"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2022-06-01"),
				HbA1c: fl(8.8), EGFR: fl(95),
				CurrentMedications: []string{"Metformin 1000mg x2"},
				PregnancyStatus:    st("pregnant"),
				ClinicalNotes:      st("Second trimester"),
			},
			{
				PatientID: "P005", Age: in(58), Gender: st("male"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2012-11-30"),
				HbA1c: fl(9.1), EGFR: fl(38),
				CurrentMedications: []string{"Insulin glargine 20 units", "Metformin 1000mg"},
				Comorbidities:      []string{"Diabetic nephropathy", "Heart failure NYHA III"},
				ClinicalNotes:      st("Advanced disease, multiple exclusions expected"),
			},
			{
				PatientID: "P006", Age: in(49), Gender: st("female"),
				Diagnosis: st("Type 2 Diabetes"), DiagnosisDate: st("2020-02-14"),
				EGFR:               fl(67),
				CurrentMedications: []string{"Metformin 850mg x2"},
				Comorbidities:      []string{"Hypertension"},
				ClinicalNotes:      st("HbA1c pending, drawn this week"),
			},
		},
	}
}
