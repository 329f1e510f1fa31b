package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/scorer"
)

var scoreCriteriaFile string

var scoreCmd = &cobra.Command{
	Use:   "score <profile-file>",
	Short: "Score a single profile offline",
	Long:  "Scores a profile JSON file against a qualification document without fetching anything. Useful for tuning criteria and weights.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileData, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read profile file %s", args[0])
		}
		var profile model.RawProfile
		if err := json.Unmarshal(profileData, &profile); err != nil {
			return eris.Wrap(err, "parse profile json")
		}

		criteriaData, err := os.ReadFile(scoreCriteriaFile)
		if err != nil {
			return eris.Wrapf(err, "read criteria document %s", scoreCriteriaFile)
		}
		input, err := model.ParseBatchInput(criteriaData)
		if err != nil {
			return err
		}

		engine, err := scorer.New(input.QualificationCriteria, input.ScoringWeights, input.EmptyCriterionPolicy)
		if err != nil {
			return err
		}

		lead := engine.Score(profile)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreCriteriaFile, "criteria", "c", "", "qualification document with criteria and weights (required)")
	_ = scoreCmd.MarkFlagRequired("criteria")
	rootCmd.AddCommand(scoreCmd)
}
