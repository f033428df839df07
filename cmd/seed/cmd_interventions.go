package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wellmind/internal/model"
	"wellmind/internal/repository"
)

// Default intervention definitions with their expected per-dimension reductions
var interventions = []model.Intervention{
	{
		ID:                          "cbt-8w",
		Name:                        "Cognitive Behavioural Therapy",
		Category:                    "therapy",
		DurationWeeks:               8,
		ExpectedStressReduction:     0.20,
		ExpectedDepressionReduction: 0.25,
		ExpectedAnxietyReduction:    0.25,
	},
	{
		ID:                          "mindfulness-6w",
		Name:                        "Mindfulness-Based Stress Reduction",
		Category:                    "mindfulness",
		DurationWeeks:               6,
		ExpectedStressReduction:     0.25,
		ExpectedDepressionReduction: 0.10,
		ExpectedAnxietyReduction:    0.15,
	},
	{
		ID:                          "exercise-4w",
		Name:                        "Guided Physical Activity",
		Category:                    "lifestyle",
		DurationWeeks:               4,
		ExpectedStressReduction:     0.15,
		ExpectedDepressionReduction: 0.10,
		ExpectedAnxietyReduction:    0.05,
	},
	{
		ID:                          "sleep-hygiene-3w",
		Name:                        "Sleep Hygiene Programme",
		Category:                    "lifestyle",
		DurationWeeks:               3,
		ExpectedStressReduction:     0.10,
		ExpectedDepressionReduction: 0.05,
		ExpectedAnxietyReduction:    0.10,
	},
}

var interventionsCmd = &cobra.Command{
	Use:   "interventions",
	Short: "Upsert the default intervention catalogue",
	RunE:  runInterventions,
}

func runInterventions(cmd *cobra.Command, _ []string) error {
	repo := repository.NewInterventionRepo(env.db)
	for i := range interventions {
		if err := repo.Upsert(cmd.Context(), &interventions[i]); err != nil {
			return fmt.Errorf("seed intervention %s: %w", interventions[i].ID, err)
		}
	}
	env.log.Info("seeded interventions", "count", len(interventions))
	fmt.Fprintf(cmd.OutOrStdout(), "%d interventions upserted\n", len(interventions))
	return nil
}
