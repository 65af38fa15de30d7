package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/client"
	"github.com/Corphon/InfraAdvisor/internal/persistence"
	"github.com/Corphon/InfraAdvisor/internal/storage"
	"github.com/Corphon/InfraAdvisor/internal/wizard"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func newAPIClient() *client.Client {
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := client.NewClientWithTimeout(viper.GetString("server"), timeout)
	c.Token = viper.GetString("token")
	if viper.IsSet("retries") {
		c.MaxRetries = viper.GetInt("retries")
	}
	return c
}

// openLocalStore 按 local.driver 打开本地草稿存储
func openLocalStore() (storage.KeyValueStore, error) {
	driver := viper.GetString("local.driver")
	path := viper.GetString("local.path")
	if path == "" && driver != "memory" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".infraadvisor", "drafts")
	}
	if driver == "sqlite" && filepath.Ext(path) == "" {
		path = filepath.Join(path, "drafts.db")
	}
	return storage.Open(driver, path)
}

func newCoordinator(api *client.Client, kv storage.KeyValueStore) *persistence.Coordinator {
	var remote persistence.RemoteStore
	if !viper.GetBool("offline") {
		remote = api
	}
	return persistence.NewCoordinator(remote, persistence.NewLocalDraftStore(kv), persistence.Options{
		RemoteTimeout: viper.GetDuration("timeout"),
		TotalSteps:    len(wizard.AssessmentSteps),
	})
}

// saveIndicator 最近一次保存的状态行
func saveIndicator(coord *persistence.Coordinator) string {
	at := coord.LastSavedAt()
	if at.IsZero() {
		return mutedStyle.Render("not saved yet")
	}
	line := fmt.Sprintf("saved %s (%s)", at.Local().Format("15:04:05"), coord.LastSaveSource())
	if coord.Stale() {
		return warnStyle.Render(line + " - server copy may be outdated")
	}
	return successStyle.Render(line)
}

func printMap(w io.Writer, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, formatValue(m[k]))
	}
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
