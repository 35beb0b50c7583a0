package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexFloat accepts both 1500 and "1500".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := parseFloat(s)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected a number")
	}
	*f = flexFloat(v)
	return nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}
	return v, nil
}

// skillList accepts a single skill or a list of skills.
type skillList []string

func (s *skillList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("expected a skill or a list of skills")
	}
	*s = skillList{one}
	return nil
}

// legacyRequest is the body of POST /recommend. Every field is required.
type legacyRequest struct {
	Name               *string    `json:"name"`
	Education          *string    `json:"education"`
	Skills             *skillList `json:"skills"`
	LocationPreference *string    `json:"location_preference"`
	MinStipend         *flexFloat `json:"min_stipend"`
}

func (r *legacyRequest) missing() string {
	switch {
	case r.Name == nil:
		return "name"
	case r.Education == nil:
		return "education"
	case r.Skills == nil:
		return "skills"
	case r.LocationPreference == nil:
		return "location_preference"
	case r.MinStipend == nil:
		return "min_stipend"
	default:
		return ""
	}
}

// recommendationRequest is the body of POST /api/recommendations: either a free text query or a structured profile.
type recommendationRequest struct {
	Query              string          `json:"query"`
	Education          string          `json:"education"`
	Skills             json.RawMessage `json:"skills"`
	LocationPreference string          `json:"location_preference"`
	MinStipend         flexFloat       `json:"min_stipend"`
	TopK               *int            `json:"top_k"`
}

// skillsList returns the skills when they were sent as a JSON list.
func (r *recommendationRequest) skillsList() ([]string, bool) {
	if len(r.Skills) == 0 {
		return nil, false
	}
	var skills []string
	if err := json.Unmarshal(r.Skills, &skills); err != nil {
		return nil, false
	}
	return skills, true
}

// missingFields reports the structured profile fields that are absent or empty.
func (r *recommendationRequest) missingFields() []string {
	var missing []string
	if r.Education == "" {
		missing = append(missing, "education")
	}
	if len(r.Skills) == 0 || isJSONFalsy(r.Skills) {
		missing = append(missing, "skills")
	}
	if r.LocationPreference == "" {
		missing = append(missing, "location_preference")
	}
	return missing
}

func isJSONFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "null", `""`, "false", "0", "[]", "{}":
		return true
	default:
		return false
	}
}
