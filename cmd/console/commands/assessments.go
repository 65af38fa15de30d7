package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var AssessmentsCmd = &cobra.Command{
	Use:   "assessments",
	Short: "Inspect submitted assessments",
}

var listAssessmentsCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newAPIClient().ListAssessments(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCREATED")
		for _, a := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.ID,
				a.Title,
				a.Status,
				a.CreatedAt.Local().Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

var getAssessmentCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get assessment details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAPIClient().GetAssessment(context.Background(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(a.Title))
		fmt.Fprintf(out, "ID: %s\n", a.ID)
		fmt.Fprintf(out, "Status: %s\n", a.Status)
		if a.ContactEmail != "" {
			fmt.Fprintf(out, "Contact: %s\n", a.ContactEmail)
		}

		b := a.BusinessRequirements
		fmt.Fprintln(out, "\nBusiness:")
		fmt.Fprintf(out, "  company: %s (%s, %s)\n", b.CompanyName, b.Industry, b.CompanySize)
		fmt.Fprintf(out, "  budget: %s, timeline: %s\n", b.BudgetRange, b.Timeline)
		fmt.Fprintf(out, "  goals: %s\n", strings.Join(b.BusinessGoals, ", "))

		t := a.TechnicalRequirements
		fmt.Fprintln(out, "\nTechnical:")
		fmt.Fprintf(out, "  infrastructure: %s\n", t.CurrentInfrastructure)
		fmt.Fprintf(out, "  cloud providers: %s\n", strings.Join(t.CloudProviders, ", "))
		fmt.Fprintf(out, "  workloads: %s\n", strings.Join(t.WorkloadTypes, ", "))
		fmt.Fprintf(out, "  expected users: %d, data volume: %s, availability: %s\n",
			t.ExpectedUsers, t.DataVolume, t.AvailabilityTarget)
		return nil
	},
}

var TokenCmd = &cobra.Command{
	Use:   "token [user_id]",
	Short: "Issue a bearer token (server must run in debug mode)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := newAPIClient().IssueToken(context.Background(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token.Token)
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("user %s, expires %s", token.UserID, token.ExpiresAt.Local().Format("2006-01-02 15:04"))))
		return nil
	},
}

func init() {
	AssessmentsCmd.AddCommand(listAssessmentsCmd)
	AssessmentsCmd.AddCommand(getAssessmentCmd)
}
