package usecase

import (
	"fmt"
	"strings"

	"caseflow/internal/core/domain"
)

// ClassifyResult maps a completed extraction to the user-facing outcome
// message. The rules are ordered by priority: an explicit AI warning wins,
// then detected mismatches, then the degraded and hybrid extraction paths,
// then a plain success.
func ClassifyResult(result *domain.OcrResult) (domain.MessageTone, string) {
	mrz := result.MrzData
	if mrz == nil {
		return domain.ToneSuccess, "document data extracted"
	}

	if strings.TrimSpace(mrz.AiWarning) != "" {
		return domain.ToneWarning, mrz.AiWarning
	}
	if mrz.HasMismatches {
		message := "extracted fields have mismatches"
		if mrz.MismatchSummary != "" {
			message = message + ": " + mrz.MismatchSummary
		}
		if mrz.AiConfidenceScore > 0 {
			message = fmt.Sprintf("%s (confidence %.0f%%)", message, mrz.AiConfidenceScore)
		}
		return domain.ToneWarning, message
	}
	if mrz.ExtractionMethod == domain.ExtractionAiOnly && mrz.AiConfidenceScore > 0 {
		return domain.ToneSuccess,
			fmt.Sprintf("MRZ recognition failed, data filled in by AI (confidence %.0f%%)", mrz.AiConfidenceScore)
	}
	if mrz.ExtractionMethod == domain.ExtractionHybridMrzAi && mrz.AiConfidenceScore > 0 {
		return domain.ToneSuccess,
			fmt.Sprintf("document data extracted with hybrid MRZ+AI recognition (confidence %.0f%%)", mrz.AiConfidenceScore)
	}
	return domain.ToneSuccess, "document data extracted"
}

// MergePatch folds extracted fields into a document patch. A field absent
// from the extraction never overwrites an existing value, so only present
// fields are set. The full extracted bag travels along as metadata for audit.
func MergePatch(mrz *domain.MrzData, titleSet bool) domain.DocumentPatch {
	patch := domain.DocumentPatch{Metadata: metadataBag(mrz)}

	setString(&patch.Names, mrz.Names)
	setString(&patch.Surname, mrz.Surname)
	setString(&patch.Nationality, mrz.Nationality)
	setString(&patch.BirthPlace, mrz.BirthPlace)
	setString(&patch.DocNumber, mrz.DocNumber)
	setString(&patch.Address, mrz.Address)
	setDate(&patch.DateOfBirth, mrz.DateOfBirth)
	setDate(&patch.IssueDate, mrz.IssueDate)
	setDate(&patch.ExpirationDate, mrz.ExpirationDate)

	sex := strings.ToUpper(strings.TrimSpace(mrz.Sex))
	if sex != "" {
		patch.Sex = &sex
		if !titleSet {
			switch sex {
			case "M":
				title := "Mr"
				patch.Title = &title
			case "F":
				title := "Ms"
				patch.Title = &title
			}
		}
	}
	return patch
}

func setString(dst **string, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*dst = &value
}

func setDate(dst **domain.Date, value domain.Date) {
	if value.IsZero() {
		return
	}
	*dst = &value
}

// metadataBag keeps every extracted field, including the quality signals, so
// the document record carries the extraction for traceability.
func metadataBag(mrz *domain.MrzData) map[string]any {
	bag := map[string]any{
		"extractionMethod": mrz.ExtractionMethod,
	}
	if mrz.Names != "" {
		bag["names"] = mrz.Names
	}
	if mrz.Surname != "" {
		bag["surname"] = mrz.Surname
	}
	if mrz.Sex != "" {
		bag["sex"] = mrz.Sex
	}
	if mrz.Nationality != "" {
		bag["nationality"] = mrz.Nationality
	}
	if !mrz.DateOfBirth.IsZero() {
		bag["dateOfBirth"] = mrz.DateOfBirth.String()
	}
	if mrz.BirthPlace != "" {
		bag["birthPlace"] = mrz.BirthPlace
	}
	if mrz.DocNumber != "" {
		bag["docNumber"] = mrz.DocNumber
	}
	if !mrz.IssueDate.IsZero() {
		bag["issueDate"] = mrz.IssueDate.String()
	}
	if !mrz.ExpirationDate.IsZero() {
		bag["expirationDate"] = mrz.ExpirationDate.String()
	}
	if mrz.Address != "" {
		bag["address"] = mrz.Address
	}
	if mrz.AiConfidenceScore > 0 {
		bag["aiConfidenceScore"] = mrz.AiConfidenceScore
	}
	if mrz.HasMismatches {
		bag["hasMismatches"] = true
		bag["mismatchSummary"] = mrz.MismatchSummary
	}
	if mrz.AiWarning != "" {
		bag["aiWarning"] = mrz.AiWarning
	}
	return bag
}
