package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/txflow"
)

var (
	examCourseID uint64
	examTitle    string
	examDuration time.Duration
	examsCourse  int64
)

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "List exams",
	Long: `List all exams, or the exams of one course with --course.
Example: lms-cli exams --course 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		var exams []core.Exam
		if examsCourse >= 0 {
			exams, err = app.queries.ListExamsForCourse(cmd.Context(), app.lms, uint64(examsCourse))
		} else {
			exams, err = app.queries.ListAllExams(cmd.Context(), app.lms)
		}
		if err != nil {
			return err
		}
		if len(exams) == 0 {
			color.Yellow("No exams found")
			return nil
		}

		now := time.Now()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(header("id", "title", "course", "lecturer", "status", "remaining"))
		for _, e := range exams {
			status := "open"
			remaining := fmt.Sprintf("%ds", e.Remaining(now))
			if e.Ended(now) {
				status = "ended"
				remaining = ""
			}
			table.Append([]string{
				strconv.FormatUint(e.ExamID, 10),
				e.Title,
				strconv.FormatUint(e.CourseID, 10),
				e.LecturerName,
				status,
				remaining,
			})
		}
		table.Render()
		return nil
	},
}

var createExamCmd = &cobra.Command{
	Use:   "create-exam",
	Short: "Create an exam for a course (lecturers only)",
	Long: `Create an exam and print the id assigned to it.
Example: lms-cli create-exam --course 2 -t "Midterm" --duration 45m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		courses, err := app.queries.ListAllCourses(cmd.Context(), app.lms)
		if err != nil {
			return err
		}
		known := make([]uint64, len(courses))
		for i, c := range courses {
			known[i] = c.CourseID
		}

		res := app.flow.CreateExam(cmd.Context(), txflow.CreateExamInput{
			CourseID:        examCourseID,
			Title:           examTitle,
			DurationSeconds: int64(examDuration.Seconds()),
			KnownCourseIDs:  known,
		})
		return report(res)
	},
}

var takeExamCmd = &cobra.Command{
	Use:   "take-exam <exam-id>",
	Short: "Take an exam interactively and submit the answers",
	Args:  cobra.ExactArgs(1),
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
		ref := app.examRef(examID)
		questions, err := app.source.Questions(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("fetch questions: %w", err)
		}
		if len(questions) == 0 {
			color.Yellow("Exam %d has no questions", examID)
			return nil
		}

		answers := make([]int, len(questions))
		scanner := bufio.NewScanner(os.Stdin)
		for i, q := range questions {
			fmt.Printf("\n%d. %s\n", i+1, q.Text)
			for j, opt := range q.Options {
				fmt.Printf("   %c) %s\n", 'A'+j, opt)
			}
			answers[i] = promptAnswer(scanner, len(q.Options))
		}

		res := app.flow.SubmitAnswers(cmd.Context(), txflow.SubmitInput{
			Ref:          ref,
			Answers:      answers,
			Student:      app.identity.Address,
			KnownExamIDs: known,
		})
		if res.OK() && res.ScoreKnown {
			color.Green("Score: %d/%d", res.Score, len(questions))
		}
		return report(res)
	},
}

// promptAnswer reads one answer letter; empty or invalid input leaves the
// question unanswered, carried as -1.
func promptAnswer(scanner *bufio.Scanner, optionCount int) int {
	fmt.Print("Answer (or enter to skip): ")
	if !scanner.Scan() {
		return -1
	}
	in := strings.ToUpper(strings.TrimSpace(scanner.Text()))
	if len(in) != 1 || in[0] < 'A' || int(in[0]-'A') >= optionCount {
		return -1
	}
	return int(in[0] - 'A')
}

var submissionsCmd = &cobra.Command{
	Use:   "submissions <exam-id>",
	Short: "List an exam's graded submissions (lecturers only)",
	Args:  cobra.ExactArgs(1),
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

		subs, err := app.lms.ExamSubmissions(cmd.Context(), examID)
		if err != nil {
			return fmt.Errorf("fetch submissions: %w", err)
		}
		if len(subs) == 0 {
			color.Yellow("No submissions yet")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(header("student", "matric", "score", "submitted"))
		for _, s := range subs {
			table.Append([]string{
				s.StudentName,
				s.MatricNumber,
				strconv.FormatUint(s.Score, 10),
				time.Unix(s.SubmissionTime, 0).Format(time.RFC822),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	examsCmd.Flags().Int64Var(&examsCourse, "course", -1, "Only exams of this course id")
	createExamCmd.Flags().Uint64Var(&examCourseID, "course", 0, "Course id the exam belongs to (required)")
	createExamCmd.Flags().StringVarP(&examTitle, "title", "t", "", "Exam title (required)")
	createExamCmd.Flags().DurationVar(&examDuration, "duration", time.Hour, "Exam window length")
	createExamCmd.MarkFlagRequired("course")
	createExamCmd.MarkFlagRequired("title")
}
