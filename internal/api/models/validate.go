package models

// ValidateSubmissionRequest asks for a validation verdict on one
// crowd-reported observation.
type ValidateSubmissionRequest struct {
	Location Point `json:"location"`

	// Level is the reported pollen level on the 0-5 scale.
	Level int `json:"level"`

	// ObservedAt is when the observation was made. Defaults to now.
	ObservedAt *Timestamp `json:"observedAt,omitempty"`
}

// ValidateSubmissionResponse is the validation verdict.
type ValidateSubmissionResponse struct {
	// Status is one of VALIDATED, VARIANCE, SIGNIFICANT_VARIANCE,
	// NO_DATA, or ERROR.
	Status string `json:"status"`

	// VariancePercent is the relative difference from the authoritative
	// level. Omitted for NO_DATA and ERROR verdicts.
	VariancePercent *float64 `json:"variancePercent,omitempty"`

	Note string `json:"note,omitempty"`

	// AuthoritativeLevel is the forecast level the submission was
	// compared against. Omitted when no forecast day matched.
	AuthoritativeLevel *int `json:"authoritativeLevel,omitempty"`
}

// EnumsResponse lists the API's enumerated vocabularies.
type EnumsResponse struct {
	Categories         []string `json:"categories"`
	Classes            []string `json:"classes"`
	ValidationStatuses []string `json:"validationStatuses"`
	DataSources        []string `json:"dataSources"`
}
