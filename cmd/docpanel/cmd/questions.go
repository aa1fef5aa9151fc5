package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docpanel-ai/docpanel/internal/config"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Work with question set files",
}

var questionsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a question set file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		qs, err := config.LoadQuestionSet(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d sections, %d questions)\n", qs.Name, len(qs.Sections), qs.Len())
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List the questions in a question set file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		qs, err := config.LoadQuestionSet(args[0])
		if err != nil {
			return err
		}
		for _, section := range qs.Sections {
			fmt.Printf("%s\n", section.Name)
			for _, q := range section.Questions {
				fmt.Printf("  [%s] %s\n", q.ID, q.Text)
			}
		}
		return nil
	},
}

func init() {
	questionsCmd.AddCommand(questionsValidateCmd)
	questionsCmd.AddCommand(questionsListCmd)
	rootCmd.AddCommand(questionsCmd)
}
