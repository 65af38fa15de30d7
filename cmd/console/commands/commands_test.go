package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func setupViper(t *testing.T, server string) {
	t.Helper()
	viper.Reset()
	viper.Set("server", server)
	viper.Set("timeout", "2s")
	viper.Set("retries", 0)
	viper.Set("autosave-interval", "0s")
	viper.Set("offline", false)
	viper.Set("local.driver", "file")
	viper.Set("local.path", t.TempDir())
}

func runCmd(t *testing.T, cmd *cobra.Command, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(input))
	defer cmd.SetOut(nil)
	defer cmd.SetIn(nil)
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func resetAssessFlags(t *testing.T) {
	t.Helper()
	for _, name := range []string{"answers", "resume"} {
		require.NoError(t, AssessCmd.Flags().Set(name, ""))
	}
	require.NoError(t, AssessCmd.Flags().Set("no-autosave", "false"))
}

// fakeBackend 最小的草稿与评估端点
type fakeBackend struct {
	mu          sync.Mutex
	drafts      map[string]models.Draft
	submissions []models.AssessmentRequest
	failSubmit  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{drafts: map[string]models.Draft{}}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	write := func(status int, data interface{}) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": status < 300, "data": data})
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/assessments/progress":
		var d models.Draft
		json.NewDecoder(r.Body).Decode(&d)
		b.drafts[d.FormID] = d
		write(http.StatusOK, d)
	case r.Method == http.MethodGet && r.URL.Path == "/api/assessments/progress":
		list := []models.SavedFormSummary{}
		for _, d := range b.drafts {
			d := d
			list = append(list, d.Summary(models.DraftSourceRemote))
		}
		write(http.StatusOK, list)
	case strings.HasPrefix(r.URL.Path, "/api/assessments/progress/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/assessments/progress/")
		d, ok := b.drafts[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success":false,"error":{"code":"NOT_FOUND","message":"draft not found"}}`)
			return
		}
		if r.Method == http.MethodDelete {
			delete(b.drafts, id)
			write(http.StatusOK, map[string]bool{"deleted": true})
			return
		}
		write(http.StatusOK, d)
	case r.Method == http.MethodPost && r.URL.Path == "/api/assessments":
		if b.failSubmit {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req models.AssessmentRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.submissions = append(b.submissions, req)
		write(http.StatusCreated, models.AssessmentCreated{AssessmentID: "asmt_1", Status: models.AssessmentStatusSubmitted})
	case r.Method == http.MethodGet && r.URL.Path == "/api/assessments":
		write(http.StatusOK, []models.Assessment{{ID: "asmt_1", Title: "Acme infrastructure assessment", Status: models.AssessmentStatusSubmitted}})
	case r.Method == http.MethodGet && r.URL.Path == "/api/assessments/asmt_1":
		write(http.StatusOK, models.Assessment{
			ID:     "asmt_1",
			Title:  "Acme infrastructure assessment",
			Status: models.AssessmentStatusSubmitted,
			TechnicalRequirements: models.TechnicalRequirements{
				CloudProviders: []string{"aws", "gcp"},
				ExpectedUsers:  500,
			},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/token":
		write(http.StatusOK, map[string]string{"token": "tok.sig", "user_id": "alice", "expires_at": "2030-01-01T00:00:00Z"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

const answersYAML = `company_name: Acme Corp
industry: technology
company_size: medium
budget_range: 50k_200k
timeline: 6_months
business_goals: [scalability, security]
current_infrastructure: hybrid
cloud_providers: [aws, gcp]
workload_types: [web_applications, databases]
expected_users: 5000
data_volume: 1tb_10tb
availability_target: "99.9%"
contact_email: ops@acme.io
terms_accepted: true
`

func TestAssessWithAnswersFile(t *testing.T) {
	backend := newFakeBackend()
	ts := httptest.NewServer(backend)
	defer ts.Close()
	setupViper(t, ts.URL)
	resetAssessFlags(t)

	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(answersYAML), 0644))
	require.NoError(t, AssessCmd.Flags().Set("answers", path))

	out, err := runCmd(t, AssessCmd, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Assessment submitted: asmt_1")

	require.Len(t, backend.submissions, 1)
	req := backend.submissions[0]
	assert.Equal(t, "Acme Corp", req.BusinessRequirements.CompanyName)
	assert.Equal(t, []string{"aws", "gcp"}, req.TechnicalRequirements.CloudProviders)
	assert.Equal(t, 5000, req.TechnicalRequirements.ExpectedUsers)
}

func TestAssessAnswersFileValidation(t *testing.T) {
	backend := newFakeBackend()
	ts := httptest.NewServer(backend)
	defer ts.Close()
	setupViper(t, ts.URL)
	resetAssessFlags(t)

	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("company_name: Acme\nindustry: technology\n"), 0644))
	require.NoError(t, AssessCmd.Flags().Set("answers", path))

	out, err := runCmd(t, AssessCmd, "")
	require.Error(t, err)
	assert.Contains(t, out, "Company size is required")
	assert.Empty(t, backend.submissions)
	// 未通过的答案保存为草稿
	assert.Len(t, backend.drafts, 1)
}

func TestAssessSubmissionFailureKeepsDraft(t *testing.T) {
	backend := newFakeBackend()
	backend.failSubmit = true
	ts := httptest.NewServer(backend)
	defer ts.Close()
	setupViper(t, ts.URL)
	resetAssessFlags(t)

	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(answersYAML), 0644))
	require.NoError(t, AssessCmd.Flags().Set("answers", path))

	out, err := runCmd(t, AssessCmd, "")
	require.Error(t, err)
	assert.Contains(t, out, "Submission failed")
	assert.Contains(t, out, "Draft kept as form_")
	assert.Len(t, backend.drafts, 1)
}

func TestAssessInteractiveQuitAndRestoreOffline(t *testing.T) {
	setupViper(t, "http://127.0.0.1:1")
	viper.Set("offline", true)
	resetAssessFlags(t)

	out, err := runCmd(t, AssessCmd, "Acme Corp\n1\nmedium\n:quit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1/5: Company")
	assert.Contains(t, out, "Step 2/5: Business requirements")
	assert.Contains(t, out, "Draft saved as form_")

	out, err = runCmd(t, AssessCmd, "y\n:back\n:quit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored draft form_")
	assert.Contains(t, out, "at step 2")
	assert.Contains(t, out, "[Acme Corp]")
}

func TestAssessInteractiveValidationErrors(t *testing.T) {
	setupViper(t, "http://127.0.0.1:1")
	viper.Set("offline", true)
	resetAssessFlags(t)

	out, err := runCmd(t, AssessCmd, "A\n\n\n:discard\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Company name must be at least 2 characters")
	assert.Contains(t, out, "Industry is required")
	assert.Contains(t, out, "Draft discarded")
}

func TestAssessInteractiveSubmit(t *testing.T) {
	backend := newFakeBackend()
	ts := httptest.NewServer(backend)
	defer ts.Close()
	setupViper(t, ts.URL)
	resetAssessFlags(t)

	input := strings.Join([]string{
		"Acme Corp", "technology", "3",
		"3", "6_months", "2,4", "",
		"hybrid", "aws, 3", "1", "",
		"5000", "2", "99.95%", "",
		"ops@acme.io", "y",
		"y",
	}, "\n") + "\n"

	out, err := runCmd(t, AssessCmd, input)
	require.NoError(t, err)
	assert.Contains(t, out, "Review")
	assert.Contains(t, out, "Assessment submitted: asmt_1")

	require.Len(t, backend.submissions, 1)
	req := backend.submissions[0]
	assert.Equal(t, "medium", req.BusinessRequirements.CompanySize)
	assert.Equal(t, "50k_200k", req.BusinessRequirements.BudgetRange)
	assert.Equal(t, []string{"scalability", "security"}, req.BusinessRequirements.BusinessGoals)
	assert.Equal(t, []string{"aws", "gcp"}, req.TechnicalRequirements.CloudProviders)
	assert.Equal(t, "1tb_10tb", req.TechnicalRequirements.DataVolume)
	assert.Empty(t, backend.drafts)
}

func TestDraftsCommands(t *testing.T) {
	backend := newFakeBackend()
	backend.drafts["form_1"] = models.Draft{
		FormID:      "form_1",
		FormData:    map[string]interface{}{"company_name": "Acme", "industry": "retail"},
		CurrentStep: 2,
		TotalSteps:  5,
	}
	ts := httptest.NewServer(backend)
	defer ts.Close()
	setupViper(t, ts.URL)

	out, err := runCmd(t, listDraftsCmd, "")
	require.NoError(t, err)
	assert.Contains(t, out, "form_1")
	assert.Contains(t, out, "60%")
	assert.Contains(t, out, "remote")
	assert.Contains(t, out, "Acme")

	out, err = runCmd(t, showDraftCmd, "", "form_1")
	require.NoError(t, err)
	assert.Contains(t, out, "Step: 3")
	assert.Contains(t, out, "industry: retail")

	out, err = runCmd(t, deleteDraftCmd, "", "form_1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted draft form_1")
	assert.Empty(t, backend.drafts)

	_, err = runCmd(t, showDraftCmd, "", "form_1")
	assert.Error(t, err)
}

func TestDraftsListFallsBackToLocal(t *testing.T) {
	setupViper(t, "http://127.0.0.1:1")
	viper.Set("offline", true)

	out, err := runCmd(t, listDraftsCmd, "")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved drafts")
}

func TestAssessmentsCommands(t *testing.T) {
	ts := httptest.NewServer(newFakeBackend())
	defer ts.Close()
	setupViper(t, ts.URL)

	out, err := runCmd(t, listAssessmentsCmd, "")
	require.NoError(t, err)
	assert.Contains(t, out, "asmt_1")
	assert.Contains(t, out, "submitted")

	out, err = runCmd(t, getAssessmentCmd, "", "asmt_1")
	require.NoError(t, err)
	assert.Contains(t, out, "ID: asmt_1")
	assert.Contains(t, out, "cloud providers: aws, gcp")
	assert.Contains(t, out, "expected users: 500")
}

func TestTokenCmd(t *testing.T) {
	ts := httptest.NewServer(newFakeBackend())
	defer ts.Close()
	setupViper(t, ts.URL)

	output := captureOutput(func() {
		TokenCmd.RunE(TokenCmd, []string{"alice"})
	})
	assert.Contains(t, output, "tok.sig")
	assert.Contains(t, output, "user alice")
}
