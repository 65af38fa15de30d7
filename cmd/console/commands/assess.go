package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/persistence"
	"github.com/Corphon/InfraAdvisor/internal/wizard"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var AssessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run the infrastructure assessment wizard",
	Long: `Walk through the five assessment steps. Progress is auto-saved to the
server, falling back to the local store when the server is unreachable.
Use --answers to submit a prepared YAML file without prompts.`,
	RunE: runAssess,
}

func init() {
	AssessCmd.Flags().String("answers", "", "YAML file with form answers (non-interactive)")
	AssessCmd.Flags().String("resume", "", "resume the draft with this form id")
	AssessCmd.Flags().Bool("no-autosave", false, "disable periodic auto-save")
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

func runAssess(cmd *cobra.Command, args []string) error {
	answersFile, _ := cmd.Flags().GetString("answers")
	resume, _ := cmd.Flags().GetString("resume")
	noAutosave, _ := cmd.Flags().GetBool("no-autosave")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kv, err := openLocalStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	api := newAPIClient()
	coord := newCoordinator(api, kv)
	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}

	w := wizard.New("", coord, api)

	var draft *models.Draft
	switch {
	case resume != "":
		if draft = coord.Load(ctx, resume); draft == nil {
			return fmt.Errorf("draft %s not found", resume)
		}
	case answersFile == "":
		if draft, err = offerRestore(ctx, coord, p); err != nil {
			return err
		}
	}
	if draft != nil {
		state := w.Restore(draft)
		fmt.Fprintln(p.out, successStyle.Render(fmt.Sprintf("Restored draft %s at step %d", state.FormID, state.CurrentStep+1)))
	}

	if interval := viper.GetDuration("autosave-interval"); interval > 0 && !noAutosave {
		w.StartAutoSave(interval)
	}
	defer w.StopAutoSave()

	if answersFile != "" {
		return runAnswers(ctx, w, answersFile, p.out)
	}
	return runInteractive(ctx, w, coord, p)
}

// offerRestore 存在草稿时询问是否恢复最近的一份
func offerRestore(ctx context.Context, coord *persistence.Coordinator, p *prompter) (*models.Draft, error) {
	if viper.GetBool("offline") && !coord.HasLocalDraft("") {
		return nil, nil
	}
	summaries := coord.ListSaved(ctx)
	if len(summaries) == 0 {
		return nil, nil
	}

	latest := summaries[0]
	question := fmt.Sprintf("Found draft %s (step %d, %d%% complete, saved %s). Restore it?",
		latest.FormID, latest.CurrentStep+1, latest.CompletionPercentage, latest.SavedAt.Local().Format("2006-01-02 15:04"))
	ok, err := p.confirm(question)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return coord.Load(ctx, latest.FormID), nil
}

// runAnswers 用 YAML 文件填写全部字段并提交
func runAnswers(ctx context.Context, w *wizard.Wizard, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read answers file: %w", err)
	}
	var answers map[string]interface{}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse answers file: %w", err)
	}

	for field, value := range answers {
		w.SetField(field, value)
	}

	for !w.State().IsLastStep() {
		if errs := w.Next(); errs.HasErrors() {
			printErrors(out, errs)
			w.SaveDraft(ctx)
			return fmt.Errorf("step %d (%s): %w", w.State().CurrentStep+1, w.ActiveStep().Title, errs)
		}
	}

	return submit(ctx, w, out)
}

func submit(ctx context.Context, w *wizard.Wizard, out io.Writer) error {
	id, err := w.Submit(ctx)
	if err != nil {
		var fieldErrs apperrors.ValidationErrors
		if errors.As(err, &fieldErrs) {
			printErrors(out, fieldErrs)
		} else {
			fmt.Fprintln(out, errorStyle.Render("Submission failed: "+err.Error()))
		}
		if w.SaveDraft(ctx) {
			fmt.Fprintln(out, mutedStyle.Render("Draft kept as "+w.State().FormID))
		}
		return err
	}
	fmt.Fprintln(out, successStyle.Render("Assessment submitted: "+id))
	return nil
}

func runInteractive(ctx context.Context, w *wizard.Wizard, coord *persistence.Coordinator, p *prompter) error {
	for {
		state := w.State()
		step := w.ActiveStep()

		fmt.Fprintf(p.out, "\n%s  %s\n",
			titleStyle.Render(fmt.Sprintf("Step %d/%d: %s", state.CurrentStep+1, state.TotalSteps, step.Title)),
			saveIndicator(coord))
		fmt.Fprintln(p.out, mutedStyle.Render("enter keeps the current value; commands: :back :save :quit :discard"))

		command, err := promptStep(w, step, p)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return quit(ctx, w, p.out)
			}
			return err
		}

		switch command {
		case "back":
			w.Back()
			continue
		case "save":
			w.SaveDraft(ctx)
			fmt.Fprintln(p.out, saveIndicator(coord))
			continue
		case "quit":
			return quit(ctx, w, p.out)
		case "discard":
			w.Discard(ctx)
			fmt.Fprintln(p.out, warnStyle.Render("Draft discarded"))
			return nil
		case "":
		default:
			fmt.Fprintln(p.out, errorStyle.Render("unknown command :"+command))
			continue
		}

		if !state.IsLastStep() {
			if errs := w.Next(); errs.HasErrors() {
				printErrors(p.out, errs)
			}
			continue
		}

		fmt.Fprintln(p.out, titleStyle.Render("\nReview"))
		printMap(p.out, w.State().FormData)
		ok, err := p.confirm("Submit assessment?")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return quit(ctx, w, p.out)
			}
			return err
		}
		if !ok {
			continue
		}
		if err := submit(ctx, w, p.out); err != nil {
			if apperrors.IsSubmissionError(err) {
				fmt.Fprintln(p.out, mutedStyle.Render("Your answers are kept; confirm again to retry."))
			}
			continue
		}
		return nil
	}
}

func quit(ctx context.Context, w *wizard.Wizard, out io.Writer) error {
	w.StopAutoSave()
	if w.SaveDraft(ctx) {
		fmt.Fprintln(out, successStyle.Render("Draft saved as "+w.State().FormID))
		return nil
	}
	fmt.Fprintln(out, errorStyle.Render("Draft could not be saved"))
	return nil
}

// promptStep 逐个字段提问；输入以 ':' 开头时作为命令返回
func promptStep(w *wizard.Wizard, step wizard.Step, p *prompter) (string, error) {
	for _, field := range step.Fields {
		current := w.State().FormData[field.Name]

		label := field.Label
		if !field.Required {
			label += " (optional)"
		}
		if len(field.Options) > 0 {
			fmt.Fprintln(p.out, mutedStyle.Render("  "+numberedOptions(field.Options)))
		}
		switch field.Kind {
		case wizard.FieldMultiChoice:
			label += ", comma separated"
		case wizard.FieldBool:
			label += " (y/n)"
		}
		if field.Hint != "" {
			label += " " + mutedStyle.Render(field.Hint)
		}
		if current != nil {
			label += fmt.Sprintf(" [%s]", formatValue(current))
		}

		raw, err := p.ask(label + ": ")
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(raw, ":") {
			return strings.TrimPrefix(raw, ":"), nil
		}
		if raw == "" {
			continue
		}
		w.SetField(field.Name, parseFieldInput(field, raw))
	}
	return "", nil
}

func numberedOptions(options []string) string {
	parts := make([]string, len(options))
	for i, option := range options {
		parts[i] = fmt.Sprintf("%d) %s", i+1, option)
	}
	return strings.Join(parts, "  ")
}

// parseFieldInput 把输入转成字段值；选项可以用序号或名称
func parseFieldInput(field wizard.Field, raw string) interface{} {
	switch field.Kind {
	case wizard.FieldChoice:
		return resolveOption(field.Options, raw)
	case wizard.FieldMultiChoice:
		items := wizard.StringSlice(raw)
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, resolveOption(field.Options, item))
		}
		return out
	case wizard.FieldNumber:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		return raw
	case wizard.FieldBool:
		return isYes(raw)
	default:
		return raw
	}
}

func resolveOption(options []string, raw string) string {
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return raw
}

func printErrors(out io.Writer, errs apperrors.ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintln(out, errorStyle.Render("  ✗ "+errs[field]))
	}
}
