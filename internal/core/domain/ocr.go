package domain

import "time"

type OcrStatus string

const (
	OcrQueued     OcrStatus = "queued"
	OcrProcessing OcrStatus = "processing"
	OcrCompleted  OcrStatus = "completed"
	OcrFailed     OcrStatus = "failed"
	// OcrTimeout is synthesized client-side when the poll-attempt budget is
	// exhausted; the extraction backend never reports it.
	OcrTimeout OcrStatus = "timeout"
	// OcrCancelled marks a session superseded by a newer run for the same
	// document; a worker finishing a cancelled session discards its result.
	OcrCancelled OcrStatus = "cancelled"
)

func (s OcrStatus) Final() bool {
	switch s {
	case OcrCompleted, OcrFailed, OcrTimeout, OcrCancelled:
		return true
	}
	return false
}

// Extraction methods reported by the delegate.
const (
	ExtractionAiOnly      = "ai_only"
	ExtractionHybridMrzAi = "hybridMrzAi"
)

// MrzData is the extracted-field bag of one completed extraction. Every field
// is optional; absent fields must never overwrite user-entered values.
type MrzData struct {
	Names          string `json:"names,omitempty"`
	Surname        string `json:"surname,omitempty"`
	Sex            string `json:"sex,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	DateOfBirth    Date   `json:"dateOfBirth"`
	BirthPlace     string `json:"birthPlace,omitempty"`
	DocNumber      string `json:"docNumber,omitempty"`
	IssueDate      Date   `json:"issueDate"`
	ExpirationDate Date   `json:"expirationDate"`
	Address        string `json:"address,omitempty"`

	AiConfidenceScore float64 `json:"aiConfidenceScore,omitempty"`
	HasMismatches     bool    `json:"hasMismatches,omitempty"`
	MismatchSummary   string  `json:"mismatchSummary,omitempty"`
	ExtractionMethod  string  `json:"extractionMethod,omitempty"`
	AiWarning         string  `json:"aiWarning,omitempty"`
}

// OcrResult is one response from the extraction delegate, either the immediate
// submit response or a poll response.
type OcrResult struct {
	Status       OcrStatus `json:"status"`
	Progress     int       `json:"progress"`
	Error        string    `json:"error,omitempty"`
	MrzData      *MrzData  `json:"mrzData,omitempty"`
	PreviewImage string    `json:"previewImage,omitempty"`
}

// MessageTone classifies the user-facing outcome message of an extraction.
type MessageTone string

const (
	ToneSuccess MessageTone = "success"
	ToneWarning MessageTone = "warning"
	ToneError   MessageTone = "error"
)

// OcrSession is the engine-owned state of one extraction attempt. It exists so
// the api and worker processes can share progress; it is not part of the
// application record and is pruned after completion.
type OcrSession struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	DocTypeName string    `json:"docTypeName"`
	StorageKey  string    `json:"-"`
	Status      OcrStatus `json:"status"`
	Progress    int       `json:"progress"`
	// TitleSet records whether the edit form already had a title at submission;
	// the Mr/Ms inference from the extracted sex only runs when it did not.
	TitleSet    bool        `json:"-"`
	Tone        MessageTone `json:"tone,omitempty"`
	Message     string      `json:"message,omitempty"`
	PreviewData string      `json:"previewImage,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
