package domain

import "time"

// Document stores metadata for a file attached to a case.
type Document struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"caseId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	StorageKey string    `json:"storageKey"`
	UploadedAt time.Time `json:"uploadedAt"`
}
