package ocrclient

import (
	"strings"

	"caseflow/internal/core/domain"
)

// The extraction service serializes some fields in camelCase or snake_case
// depending on which recognizer produced the response. Both spellings are
// normalized here, once, so nothing past this boundary branches on naming.
type wireResult struct {
	Status         string   `json:"status"`
	Progress       int      `json:"progress"`
	Error          string   `json:"error"`
	StatusURL      string   `json:"statusUrl"`
	StatusURLSnake string   `json:"status_url"`
	MrzData        *wireMrz `json:"mrzData"`
	MrzDataSnake   *wireMrz `json:"mrz_data"`
	Preview        string   `json:"previewImage"`
	PreviewSnake   string   `json:"preview_image"`
}

type wireMrz struct {
	Names          string `json:"names"`
	Surname        string `json:"surname"`
	Sex            string `json:"sex"`
	Nationality    string `json:"nationality"`
	DateOfBirth    string `json:"dateOfBirth"`
	BirthDate      string `json:"birth_date"`
	BirthPlace     string `json:"birthPlace"`
	BirthPlaceSnk  string `json:"birth_place"`
	DocNumber      string `json:"docNumber"`
	DocNumberSnk   string `json:"doc_number"`
	IssueDate      string `json:"issueDate"`
	IssueDateSnk   string `json:"issue_date"`
	ExpirationDate string `json:"expirationDate"`
	ExpiryDate     string `json:"expiry_date"`
	Address        string `json:"address"`

	AiConfidence    float64 `json:"aiConfidenceScore"`
	AiConfidenceSnk float64 `json:"ai_confidence_score"`
	HasMismatch     bool    `json:"hasMismatches"`
	HasMismatchSnk  bool    `json:"has_mismatches"`
	MismatchSum     string  `json:"mismatchSummary"`
	MismatchSumSnk  string  `json:"mismatch_summary"`
	Method          string  `json:"extractionMethod"`
	MethodSnk       string  `json:"extraction_method"`
	Warning         string  `json:"aiWarning"`
	WarningSnk      string  `json:"ai_warning"`
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (w *wireResult) statusURL() string {
	return coalesce(w.StatusURL, w.StatusURLSnake)
}

func (w *wireResult) toResult() *domain.OcrResult {
	result := &domain.OcrResult{
		Status:       domain.OcrStatus(strings.ToLower(strings.TrimSpace(w.Status))),
		Progress:     w.Progress,
		Error:        w.Error,
		PreviewImage: coalesce(w.Preview, w.PreviewSnake),
	}
	if result.Status == "" {
		result.Status = domain.OcrProcessing
	}

	mrz := w.MrzData
	if mrz == nil {
		mrz = w.MrzDataSnake
	}
	if mrz != nil {
		result.MrzData = mrz.toDomain()
	}
	return result
}

func (w *wireMrz) toDomain() *domain.MrzData {
	confidence := w.AiConfidence
	if confidence == 0 {
		confidence = w.AiConfidenceSnk
	}
	return &domain.MrzData{
		Names:          w.Names,
		Surname:        w.Surname,
		Sex:            w.Sex,
		Nationality:    w.Nationality,
		DateOfBirth:    parseWireDate(coalesce(w.DateOfBirth, w.BirthDate)),
		BirthPlace:     coalesce(w.BirthPlace, w.BirthPlaceSnk),
		DocNumber:      coalesce(w.DocNumber, w.DocNumberSnk),
		IssueDate:      parseWireDate(coalesce(w.IssueDate, w.IssueDateSnk)),
		ExpirationDate: parseWireDate(coalesce(w.ExpirationDate, w.ExpiryDate)),
		Address:        w.Address,

		AiConfidenceScore: confidence,
		HasMismatches:     w.HasMismatch || w.HasMismatchSnk,
		MismatchSummary:   coalesce(w.MismatchSum, w.MismatchSumSnk),
		ExtractionMethod:  coalesce(w.Method, w.MethodSnk),
		AiWarning:         coalesce(w.Warning, w.WarningSnk),
	}
}

// parseWireDate tolerates full timestamps by keeping the calendar prefix; an
// unparsable value yields a zero Date rather than an error, so one bad field
// never discards a whole extraction.
func parseWireDate(raw string) domain.Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Date{}
	}
	if len(raw) > 10 {
		raw = raw[:10]
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}
	}
	return date
}
