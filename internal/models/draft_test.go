package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercentageBySteps(t *testing.T) {
	d := &Draft{FormID: "f1", CurrentStep: 1, TotalSteps: 5}
	assert.Equal(t, 40, d.CompletionPercentage())

	d.CurrentStep = 4
	assert.Equal(t, 100, d.CompletionPercentage())

	d.CurrentStep = 9
	assert.Equal(t, 100, d.CompletionPercentage())
}

func TestCompletionPercentageByFields(t *testing.T) {
	d := &Draft{FormData: map[string]interface{}{
		"industry":        "technology",
		"company_name":    "",
		"cloud_providers": []interface{}{"aws"},
		"terms_accepted":  false,
	}}
	assert.Equal(t, 50, d.CompletionPercentage())

	assert.Equal(t, 0, (&Draft{}).CompletionPercentage())
}

func TestSummaryMetadata(t *testing.T) {
	saved := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	d := &Draft{
		FormID:       "f1",
		AssessmentID: "a-1",
		FormData:     map[string]interface{}{"industry": "finance", "company_name": "Acme"},
		CurrentStep:  2,
		TotalSteps:   5,
		SavedAt:      saved,
	}

	s := d.Summary(DraftSourceLocal)
	assert.Equal(t, "f1", s.FormID)
	assert.Equal(t, 2, s.CurrentStep)
	assert.Equal(t, saved, s.SavedAt)
	assert.Equal(t, 60, s.CompletionPercentage)
	assert.Equal(t, "local", s.Metadata["source"])
	assert.Equal(t, "a-1", s.Metadata["assessment_id"])
	assert.Equal(t, "Acme", s.Metadata["company_name"])
}

func TestLocalRecordRoundTrip(t *testing.T) {
	d := &Draft{FormID: "f1", FormData: map[string]interface{}{"industry": "technology"}, CurrentStep: 3}
	back := DraftFromLocalRecord("f1", d.ToLocalRecord())

	assert.Equal(t, d.FormData, back.FormData)
	assert.Equal(t, 3, back.CurrentStep)

	empty := DraftFromLocalRecord("f2", LocalDraftRecord{})
	assert.NotNil(t, empty.FormData)
}
