package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/jusdesk/portal-sync/internal/api/rest"
	"github.com/jusdesk/portal-sync/internal/domain"
)

// CaseCreateInput describes case creation payload.
type CaseCreateInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	ClientID string `json:"clientId"`
}

// CaseStatusInput describes a status transition request.
type CaseStatusInput struct {
	NewStatus   domain.CaseStatus `json:"newStatus"`
	Description string            `json:"description,omitempty"`
}

// CaseAPI is the backend surface for legal cases.
type CaseAPI interface {
	List(ctx context.Context) ([]domain.LegalCase, error)
	Get(ctx context.Context, id string) (*domain.LegalCase, error)
	Create(ctx context.Context, input CaseCreateInput) (*domain.LegalCase, error)
	UpdateStatus(ctx context.Context, id string, input CaseStatusInput) (*domain.LegalCase, error)
	Timeline(ctx context.Context, id string) ([]domain.StatusChange, error)
	UploadDocument(ctx context.Context, caseID, fileName string, content io.Reader) (*domain.Document, error)
}

type caseAPI struct {
	client *rest.Client
}

// NewCaseAPI builds the REST-backed gateway.
func NewCaseAPI(client *rest.Client) CaseAPI {
	return &caseAPI{client: client}
}

func (a *caseAPI) List(ctx context.Context) ([]domain.LegalCase, error) {
	var cases []domain.LegalCase
	if err := a.client.Get(ctx, "/cases", &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func (a *caseAPI) Get(ctx context.Context, id string) (*domain.LegalCase, error) {
	var c domain.LegalCase
	if err := a.client.Get(ctx, "/cases/"+id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *caseAPI) Create(ctx context.Context, input CaseCreateInput) (*domain.LegalCase, error) {
	var c domain.LegalCase
	if err := a.client.Post(ctx, "/cases", input, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *caseAPI) UpdateStatus(ctx context.Context, id string, input CaseStatusInput) (*domain.LegalCase, error) {
	var c domain.LegalCase
	if err := a.client.Put(ctx, fmt.Sprintf("/cases/%s/status", id), input, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *caseAPI) Timeline(ctx context.Context, id string) ([]domain.StatusChange, error) {
	var timeline []domain.StatusChange
	if err := a.client.Get(ctx, fmt.Sprintf("/cases/%s/timeline", id), &timeline); err != nil {
		return nil, err
	}
	return timeline, nil
}

func (a *caseAPI) UploadDocument(ctx context.Context, caseID, fileName string, content io.Reader) (*domain.Document, error) {
	var doc domain.Document
	path := fmt.Sprintf("/cases/%s/documents", caseID)
	if err := a.client.Upload(ctx, path, "file", fileName, content, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
