package main

import (
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/txflow"
)

var (
	courseTitle string
	courseDesc  string
	mineOnly    bool
)

var headerCaser = cases.Title(language.English)

func header(cols ...string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = headerCaser.String(c)
	}
	return out
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses",
	Long: `List all courses, with the connected account's enrollment status.
With --mine, list only courses owned by the connected lecturer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		var courses []core.Course
		if mineOnly {
			courses, err = app.queries.ListCoursesOwnedBy(cmd.Context(), app.lms, app.identity.Address)
		} else {
			courses, err = app.queries.ListAllCourses(cmd.Context(), app.lms)
		}
		if err != nil {
			return err
		}
		if len(courses) == 0 {
			color.Yellow("No courses found")
			return nil
		}

		ids := make([]uint64, len(courses))
		for i, c := range courses {
			ids[i] = c.CourseID
		}
		enrolled := app.queries.EnrollmentStatus(cmd.Context(), app.lms, app.identity.Address, ids)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(header("id", "title", "lecturer", "exams", "created", "enrolled"))
		for _, c := range courses {
			mark := ""
			if enrolled[c.CourseID] {
				mark = "yes"
			}
			table.Append([]string{
				strconv.FormatUint(c.CourseID, 10),
				c.Title,
				c.LecturerName,
				strconv.FormatUint(c.ExamCount, 10),
				time.Unix(c.CreationDate, 0).Format("2006-01-02"),
				mark,
			})
		}
		table.Render()
		return nil
	},
}

var createCourseCmd = &cobra.Command{
	Use:   "create-course",
	Short: "Create a course (lecturers only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		res := app.flow.CreateCourse(cmd.Context(), txflow.CreateCourseInput{
			Title:       courseTitle,
			Description: courseDesc,
		})
		return report(res)
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <course-id>",
	Short: "Enroll in a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
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

		res := app.flow.Enroll(cmd.Context(), txflow.EnrollInput{
			CourseID:       courseID,
			KnownCourseIDs: known,
			Student:        app.identity.Address,
		})
		return report(res)
	},
}

func init() {
	coursesCmd.Flags().BoolVar(&mineOnly, "mine", false, "Only courses owned by the connected lecturer")
	createCourseCmd.Flags().StringVarP(&courseTitle, "title", "t", "", "Course title (required)")
	createCourseCmd.Flags().StringVarP(&courseDesc, "description", "d", "", "Course description (required)")
	createCourseCmd.MarkFlagRequired("title")
	createCourseCmd.MarkFlagRequired("description")
}
