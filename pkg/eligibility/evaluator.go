package eligibility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// Options control the two policy knobs of the evaluator.
type Options struct {
	// Strict makes a criterion with no recognized condition payload evaluate
	// to UNKNOWN instead of passing by default.
	Strict bool

	// EmptyListIsMissing treats an empty list-valued field as missing data
	// (UNKNOWN) instead of running keyword checks against the empty list.
	EmptyListIsMissing bool
}

// Evaluator checks a single criterion against a single patient record. It is
// a pure value type: no evaluation path returns an error or panics; every
// anomaly degrades to the UNKNOWN status with a reason.
type Evaluator struct {
	opts Options
}

func NewEvaluator(opts Options) Evaluator {
	return Evaluator{opts: opts}
}

const reasonMissingData = "missing data"

// EvaluateInclusion checks whether the patient satisfies an inclusion
// criterion. Statuses: MET, NOT_MET, UNKNOWN.
func (e Evaluator) EvaluateInclusion(c models.Criterion, p models.PatientRecord) models.CriterionResult {
	value, ok := resolvePatientValue(p, c.Field)
	if !ok {
		return newResult(c, models.StatusUnknown, nil, reasonMissingData)
	}
	if list, isList := value.([]string); isList && len(list) == 0 && e.opts.EmptyListIsMissing {
		return newResult(c, models.StatusUnknown, nil, reasonMissingData)
	}

	if c.Min != nil || c.Max != nil {
		num, err := toNumber(value)
		if err != nil {
			return newResult(c, models.StatusUnknown, value, "cannot convert to numeric value")
		}
		if c.Min != nil && num < *c.Min {
			reason := fmt.Sprintf("value %s below minimum %s", formatNumber(num), formatNumber(*c.Min))
			return newResult(c, models.StatusNotMet, num, reason)
		}
		if c.Max != nil && num > *c.Max {
			reason := fmt.Sprintf("value %s exceeds maximum %s", formatNumber(num), formatNumber(*c.Max))
			return newResult(c, models.StatusNotMet, num, reason)
		}
		return newResult(c, models.StatusMet, num, "value within allowed range")
	}

	if c.Value != nil {
		actual := strings.TrimSpace(stringify(value))
		expected := strings.TrimSpace(*c.Value)
		if actual == expected {
			return newResult(c, models.StatusMet, value, "exact match")
		}
		reason := fmt.Sprintf("value '%s' does not match expected '%s'", actual, expected)
		return newResult(c, models.StatusNotMet, value, reason)
	}

	if len(c.Contains) > 0 {
		if list, isList := value.([]string); isList {
			if keyword, found := matchKeyword(c.Contains, list); found {
				return newResult(c, models.StatusMet, value, "found: "+keyword)
			}
			return newResult(c, models.StatusNotMet, value, "no matching item found")
		}
		// Non-list value with a contains payload falls through to the
		// default policy below.
	}

	if e.opts.Strict {
		return newResult(c, models.StatusUnknown, value, "no recognized condition check")
	}
	return newResult(c, models.StatusMet, value, "value present, no specific check")
}

// EvaluateExclusion checks whether the patient triggers an exclusion
// criterion. Statuses: CLEAR, EXCLUDES, UNKNOWN.
func (e Evaluator) EvaluateExclusion(c models.Criterion, p models.PatientRecord) models.CriterionResult {
	value, ok := resolvePatientValue(p, c.Field)
	if !ok {
		// Unreported pregnancy status is read as "not pregnant", a domain
		// default rather than missing data.
		if strings.EqualFold(strings.TrimSpace(c.Field), "pregnancy_status") {
			return newResult(c, models.StatusClear, nil, "no pregnancy reported")
		}
		return newResult(c, models.StatusUnknown, nil, reasonMissingData)
	}
	if list, isList := value.([]string); isList && len(list) == 0 && e.opts.EmptyListIsMissing {
		return newResult(c, models.StatusUnknown, nil, reasonMissingData)
	}

	if len(c.Excludes) > 0 {
		actual := stringify(value)
		for _, disqualifying := range c.Excludes {
			if actual == disqualifying {
				reason := fmt.Sprintf("status '%s' disqualifies from participation", actual)
				return newResult(c, models.StatusExcludes, value, reason)
			}
		}
		return newResult(c, models.StatusClear, value, "status permits participation")
	}

	if len(c.Contains) > 0 {
		if list, isList := value.([]string); isList {
			if keyword, found := matchKeyword(c.Contains, list); found {
				return newResult(c, models.StatusExcludes, value, "disqualifying item found: "+keyword)
			}
			return newResult(c, models.StatusClear, value, "no disqualifying items found")
		}
	}

	if e.opts.Strict {
		return newResult(c, models.StatusUnknown, value, "no recognized condition check")
	}
	return newResult(c, models.StatusClear, value, "no exclusion identified")
}

func newResult(c models.Criterion, status models.CriterionStatus, value interface{}, reason string) models.CriterionResult {
	return models.CriterionResult{
		CriterionID:   c.ID,
		CriterionText: c.Text,
		Field:         c.Field,
		Status:        status,
		ActualValue:   value,
		Reason:        reason,
	}
}

// matchKeyword scans every list element for every keyword as a
// case-insensitive substring, returning the first keyword that matches.
func matchKeyword(keywords models.KeywordSet, list []string) (string, bool) {
	for _, keyword := range keywords {
		needle := strings.ToLower(keyword)
		if needle == "" {
			continue
		}
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), needle) {
				return keyword, true
			}
		}
	}
	return "", false
}

func toNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("not a numeric value")
	}
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatNumber renders floats without trailing zeroes, so reasons read
// "value 77 exceeds maximum 75" rather than "77.000000".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
