package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaseLifecycleHappyPath(t *testing.T) {
	path := []CaseStatus{
		CaseStatusDraft,
		CaseStatusPending,
		CaseStatusAnalysis,
		CaseStatusAccepted,
		CaseStatusAwaitingDocuments,
		CaseStatusDocumentsSent,
		CaseStatusInProgress,
		CaseStatusFiled,
		CaseStatusJudgment,
		CaseStatusConcluded,
		CaseStatusArchived,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransition(path[i+1]),
			"expected %s -> %s to be allowed", path[i], path[i+1])
	}
}

func TestCaseLifecycleRejections(t *testing.T) {
	assert.True(t, CaseStatusAnalysis.CanTransition(CaseStatusRejected))
	assert.True(t, CaseStatusRejected.CanTransition(CaseStatusArchived))

	assert.False(t, CaseStatusDraft.CanTransition(CaseStatusInProgress))
	assert.False(t, CaseStatusArchived.CanTransition(CaseStatusDraft))
	assert.False(t, CaseStatusConcluded.CanTransition(CaseStatusInProgress))
	assert.False(t, CaseStatusAccepted.CanTransition(CaseStatusRejected))
}

func TestCaseTerminalStatus(t *testing.T) {
	assert.True(t, CaseStatusArchived.IsTerminal())
	assert.False(t, CaseStatusConcluded.IsTerminal())
	assert.False(t, CaseStatusDraft.IsTerminal())
}
