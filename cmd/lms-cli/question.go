package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chainlms-net/lms/questiongen"
	"github.com/chainlms-net/lms/txflow"
)

var (
	questionText    string
	questionOptions []string
	questionCorrect int
	generateFile    string
	generateCount   int
	generateDryRun  bool
)

var addQuestionCmd = &cobra.Command{
	Use:   "add-question <exam-id>",
	Short: "Add one question to an exam (lecturers only)",
	Long: `Add a multiple-choice question to an exam.
Example: lms-cli add-question 3 -q "2+2?" -o "3" -o "4" --correct 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		known, err := app.lms.AllExamIDs(cmd.Context())
		if err != nil {
			return err
		}
		res := app.flow.AddQuestion(cmd.Context(), txflow.AddQuestionInput{
			ExamID:        examID,
			Text:          questionText,
			Options:       questionOptions,
			CorrectOption: questionCorrect,
			KnownExamIDs:  known,
		})
		return report(res)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <exam-id>",
	Short: "Generate questions from course material and add them to an exam",
	Long: `Upload course material to the question-generation service, parse the
generated questions and push them to the exam in one batch transaction.
Example: lms-cli generate 3 -f notes.pdf -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		material, err := os.Open(generateFile)
		if err != nil {
			return err
		}
		defer material.Close()

		client := questiongen.NewClient(app.cfg.Generator.BaseURL, app.logger)
		drafts, err := client.Generate(cmd.Context(), generateFile, material, generateCount)
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			color.Yellow("Service returned no parseable questions")
			return nil
		}

		if generateDryRun {
			for i, d := range drafts {
				fmt.Printf("\n%d. %s\n", i+1, d.Text)
				for j, opt := range d.Options {
					mark := " "
					if j == d.CorrectOption {
						mark = "*"
					}
					fmt.Printf("  %s %c) %s\n", mark, 'A'+j, opt)
				}
			}
			return nil
		}

		known, err := app.lms.AllExamIDs(cmd.Context())
		if err != nil {
			return err
		}
		res := app.flow.AddQuestionsBatch(cmd.Context(), txflow.BatchAddInput{
			Ref:          app.examRef(examID),
			Drafts:       drafts,
			KnownExamIDs: known,
		})
		return report(res)
	},
}

func init() {
	addQuestionCmd.Flags().StringVarP(&questionText, "question", "q", "", "Question text (required)")
	addQuestionCmd.Flags().StringArrayVarP(&questionOptions, "option", "o", nil, "Answer option, repeatable (at least two)")
	addQuestionCmd.Flags().IntVar(&questionCorrect, "correct", 0, "Zero-based index of the correct option")
	addQuestionCmd.MarkFlagRequired("question")
	addQuestionCmd.MarkFlagRequired("option")

	generateCmd.Flags().StringVarP(&generateFile, "file", "f", "", "Course material file: .txt, .pdf or .docx (required)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 10, "Number of questions to request")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print parsed questions without submitting")
	generateCmd.MarkFlagRequired("file")
}
