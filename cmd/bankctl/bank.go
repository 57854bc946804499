package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/repo/yamlbank"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
	"github.com/fairyhunter13/ai-screening-interview/pkg/textx"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert questions from a YAML bank into interview_questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := yamlbank.Load(args[0])
			if err != nil {
				return err
			}
			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := db.Questions.Import(cmd.Context(), qs)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "imported %d of %d questions from %s\n", n, len(qs), args[0])
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the stored question bank as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			qs, err := db.Questions.ListQuestions(cmd.Context())
			if err != nil {
				return err
			}
			b, err := yamlbank.Marshal(qs)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func newListCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the question bank as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var qs []domain.Question
			if file != "" {
				var err error
				if qs, err = yamlbank.Load(file); err != nil {
					return err
				}
			} else {
				db, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer db.Close()
				if qs, err = db.Questions.ListQuestions(cmd.Context()); err != nil {
					return err
				}
			}
			renderQuestions(cmd.OutOrStdout(), qs)
			printMix(cmd.OutOrStdout(), qs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a YAML bank instead of the database")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var (
		file  string
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the questions one interview would draw under the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := domain.DefaultSettings()
			var qs []domain.Question
			if file != "" {
				var err error
				if qs, err = yamlbank.Load(file); err != nil {
					return err
				}
			} else {
				db, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer db.Close()
				if qs, err = db.Questions.ListQuestions(cmd.Context()); err != nil {
					return err
				}
				if settings, err = db.Settings.GetSettings(cmd.Context()); err != nil {
					return err
				}
			}
			if count > 0 {
				settings.QuestionCount = count
			}
			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(seed, seed))
			}
			picked := usecase.NewQuestionSelector(rng).Select(qs, usecase.DistributionFrom(settings), settings.QuestionCount)
			color.New(color.FgCyan).Fprintf(cmd.OutOrStdout(), "%d of %d questions (easy %d%% / medium %d%% / hard %d%%)\n",
				len(picked), settings.QuestionCount, settings.EasyPct, settings.MediumPct, settings.HardPct)
			renderQuestions(cmd.OutOrStdout(), picked)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "draw from a YAML bank instead of the database")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "override the configured question count")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "fix the shuffle for a reproducible draw")
	return cmd
}

func renderQuestions(w io.Writer, qs []domain.Question) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Section", "Difficulty", "Question"})
	table.SetAutoWrapText(false)
	for i, q := range qs {
		table.Append([]string{
			strconv.Itoa(i + 1),
			q.Section,
			string(q.Difficulty),
			textx.Truncate(textx.SingleLine(q.Text), 80),
		})
	}
	table.Render()
}

func printMix(w io.Writer, qs []domain.Question) {
	mix := map[domain.Difficulty]int{}
	for _, q := range qs {
		mix[q.Difficulty]++
	}
	if mix[domain.DifficultyHard] == 0 && len(qs) > 0 {
		color.New(color.FgYellow).Fprintln(w, "warning: bank has no Hard questions; draws will backfill from other levels")
	}
	fmt.Fprintf(w, "total %d: easy %d, medium %d, hard %d\n",
		len(qs), mix[domain.DifficultyEasy], mix[domain.DifficultyMedium], mix[domain.DifficultyHard])
}

