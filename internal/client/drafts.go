package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/models"
)

// Token is an issued bearer token
type Token struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveProgress creates or overwrites the draft keyed by draft.FormID.
// The call is keyed by form id, so repeating it is safe and it is retried.
func (c *Client) SaveProgress(ctx context.Context, draft models.Draft) (*models.Draft, error) {
	var saved models.Draft
	if err := c.request(ctx, http.MethodPost, "/api/assessments/progress", draft, &saved, true); err != nil {
		return nil, err
	}
	return &saved, nil
}

// LoadProgress fetches a draft; errors.Is(err, ErrNotFound) when absent.
func (c *Client) LoadProgress(ctx context.Context, formID string) (*models.Draft, error) {
	var draft models.Draft
	if err := c.Request(ctx, http.MethodGet, "/api/assessments/progress/"+url.PathEscape(formID), nil, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// DeleteProgress removes a draft
func (c *Client) DeleteProgress(ctx context.Context, formID, assessmentID string) error {
	path := "/api/assessments/progress/" + url.PathEscape(formID)
	if assessmentID != "" {
		path += "?assessment_id=" + url.QueryEscape(assessmentID)
	}
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// ListSaved returns the caller's draft index, newest first
func (c *Client) ListSaved(ctx context.Context) ([]models.SavedFormSummary, error) {
	var summaries []models.SavedFormSummary
	if err := c.Request(ctx, http.MethodGet, "/api/assessments/progress", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// CreateAssessment submits a completed wizard. Not retried.
func (c *Client) CreateAssessment(ctx context.Context, req models.AssessmentRequest) (*models.AssessmentCreated, error) {
	var created models.AssessmentCreated
	if err := c.Request(ctx, http.MethodPost, "/api/assessments", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetAssessment fetches one assessment
func (c *Client) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := c.Request(ctx, http.MethodGet, "/api/assessments/"+url.PathEscape(id), nil, &assessment); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListAssessments lists the caller's assessments
func (c *Client) ListAssessments(ctx context.Context) ([]models.Assessment, error) {
	var assessments []models.Assessment
	if err := c.Request(ctx, http.MethodGet, "/api/assessments", nil, &assessments); err != nil {
		return nil, err
	}
	return assessments, nil
}

// IssueToken asks a debug-mode server for a bearer token
func (c *Client) IssueToken(ctx context.Context, userID string) (*Token, error) {
	var token Token
	body := map[string]string{"user_id": userID}
	if err := c.Request(ctx, http.MethodPost, "/api/auth/token", body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}
