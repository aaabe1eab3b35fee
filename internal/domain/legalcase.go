package domain

import "time"

// CaseStatus enumerates the lifecycle of a legal case from intake to
// archival.
type CaseStatus string

const (
	CaseStatusDraft             CaseStatus = "DRAFT"
	CaseStatusPending           CaseStatus = "PENDING"
	CaseStatusAnalysis          CaseStatus = "ANALYSIS"
	CaseStatusAccepted          CaseStatus = "ACCEPTED"
	CaseStatusRejected          CaseStatus = "REJECTED"
	CaseStatusAwaitingDocuments CaseStatus = "AWAITING_DOCUMENTS"
	CaseStatusDocumentsSent     CaseStatus = "DOCUMENTS_SENT"
	CaseStatusInProgress        CaseStatus = "IN_PROGRESS"
	CaseStatusFiled             CaseStatus = "FILED"
	CaseStatusJudgment          CaseStatus = "JUDGMENT"
	CaseStatusConcluded         CaseStatus = "CONCLUDED"
	CaseStatusArchived          CaseStatus = "ARCHIVED"
)

// LegalCase is the aggregate for a client's legal process.
type LegalCase struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	Status    CaseStatus     `json:"status"`
	ClientID  string         `json:"clientId"`
	LawyerID  *string        `json:"lawyerId,omitempty"`
	Documents []Document     `json:"documents,omitempty"`
	Timeline  []StatusChange `json:"timeline,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// StatusChange is an immutable timeline entry recording one case
// status transition.
type StatusChange struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"caseId"`
	OldStatus   CaseStatus `json:"oldStatus"`
	NewStatus   CaseStatus `json:"newStatus"`
	Description string     `json:"description,omitempty"`
	AuthorRole  Role       `json:"authorRole"`
	CreatedAt   time.Time  `json:"createdAt"`
}

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusDraft:             {CaseStatusPending},
	CaseStatusPending:           {CaseStatusAnalysis},
	CaseStatusAnalysis:          {CaseStatusAccepted, CaseStatusRejected},
	CaseStatusAccepted:          {CaseStatusAwaitingDocuments},
	CaseStatusRejected:          {CaseStatusArchived},
	CaseStatusAwaitingDocuments: {CaseStatusDocumentsSent},
	CaseStatusDocumentsSent:     {CaseStatusInProgress},
	CaseStatusInProgress:        {CaseStatusFiled},
	CaseStatusFiled:             {CaseStatusJudgment},
	CaseStatusJudgment:          {CaseStatusConcluded},
	CaseStatusConcluded:         {CaseStatusArchived},
	CaseStatusArchived:          {},
}

// CanTransition reports whether the case lifecycle permits moving to
// next from the current status.
func (s CaseStatus) CanTransition(next CaseStatus) bool {
	for _, candidate := range caseTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s CaseStatus) IsTerminal() bool {
	return len(caseTransitions[s]) == 0
}
