package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var DraftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved assessment drafts",
	Long:  `List, show and delete assessment drafts in the server and local stores.`,
}

var listDraftsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recoverable drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openLocalStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		coord := newCoordinator(newAPIClient(), kv)
		summaries := coord.ListSaved(context.Background())

		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No saved drafts"))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FORM ID\tSTEP\tCOMPLETE\tSAVED AT\tSOURCE\tCOMPANY")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%d%%\t%s\t%v\t%v\n",
				s.FormID,
				s.CurrentStep+1,
				s.CompletionPercentage,
				s.SavedAt.Local().Format("2006-01-02 15:04"),
				formatValue(s.Metadata["source"]),
				formatValue(s.Metadata["company_name"]),
			)
		}
		return w.Flush()
	},
}

var showDraftCmd = &cobra.Command{
	Use:   "show [form_id]",
	Short: "Show a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openLocalStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		coord := newCoordinator(newAPIClient(), kv)
		draft := coord.Load(context.Background(), args[0])
		if draft == nil {
			return fmt.Errorf("draft %s not found", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Draft "+draft.FormID))
		fmt.Fprintf(out, "Step: %d\n", draft.CurrentStep+1)
		if draft.AssessmentID != "" {
			fmt.Fprintf(out, "Assessment: %s\n", draft.AssessmentID)
		}
		fmt.Fprintf(out, "Saved at: %s\n", draft.SavedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintln(out, "\nForm data:")

		data, err := yaml.Marshal(draft.FormData)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	},
}

var deleteDraftCmd = &cobra.Command{
	Use:   "delete [form_id]",
	Short: "Delete a draft from both stores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assessmentID, _ := cmd.Flags().GetString("assessment-id")

		kv, err := openLocalStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		coord := newCoordinator(newAPIClient(), kv)
		coord.Delete(context.Background(), args[0], assessmentID)
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Deleted draft "+args[0]))
		return nil
	},
}

func init() {
	DraftsCmd.AddCommand(listDraftsCmd)
	DraftsCmd.AddCommand(showDraftCmd)
	DraftsCmd.AddCommand(deleteDraftCmd)

	deleteDraftCmd.Flags().String("assessment-id", "", "assessment the draft is linked to")
}
