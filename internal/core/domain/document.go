package domain

// DocType describes a document-type template attached to a product checklist.
type DocType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasOcrCheck bool   `json:"hasOcrCheck"`
}

// Document is one collectible item of an application, one per
// (application, document type) pair.
type Document struct {
	ID             string         `json:"id"`
	ApplicationID  string         `json:"applicationId"`
	DocType        DocType        `json:"docType"`
	Required       bool           `json:"required"`
	Completed      bool           `json:"completed"`
	DocNumber      string         `json:"docNumber,omitempty"`
	ExpirationDate Date           `json:"expirationDate"`
	Details        string         `json:"details,omitempty"`
	FileLink       string         `json:"fileLink,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// DocumentPatch carries edited document fields to the case backend. Pointer
// fields distinguish "leave unchanged" from "set to empty"; extracted OCR
// values only ever populate fields that were actually present in the result.
type DocumentPatch struct {
	Title          *string        `json:"title,omitempty"`
	Names          *string        `json:"names,omitempty"`
	Surname        *string        `json:"surname,omitempty"`
	Sex            *string        `json:"sex,omitempty"`
	Nationality    *string        `json:"nationality,omitempty"`
	DateOfBirth    *Date          `json:"dateOfBirth,omitempty"`
	BirthPlace     *string        `json:"birthPlace,omitempty"`
	DocNumber      *string        `json:"docNumber,omitempty"`
	IssueDate      *Date          `json:"issueDate,omitempty"`
	ExpirationDate *Date          `json:"expirationDate,omitempty"`
	Address        *string        `json:"address,omitempty"`
	Details        *string        `json:"details,omitempty"`
	Completed      *bool          `json:"completed,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ProductChecklist is the product-defined document-type template source for a
// new application.
type ProductChecklist struct {
	RequiredDocuments []DocType `json:"requiredDocuments"`
	OptionalDocuments []DocType `json:"optionalDocuments"`
}

// Checklist is the generated document list for a new application, plus a note
// about any type pre-satisfied from the customer profile.
type Checklist struct {
	Documents []Document `json:"documents"`
	// PassportAutoImported reports that a required/optional "Passport" type was
	// omitted because the customer profile already holds a passport file and
	// number.
	PassportAutoImported bool `json:"passportAutoImported"`
}

// Customer carries the profile fields the engine consults; everything else the
// CRUD backend stores about a customer is opaque to this service.
type Customer struct {
	ID               string `json:"id"`
	PassportNumber   string `json:"passportNumber,omitempty"`
	PassportFileLink string `json:"passportFileLink,omitempty"`
}
