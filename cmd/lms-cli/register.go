package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chainlms-net/lms/txflow"
)

var (
	registerName       string
	registerMatric     string
	registerLecturer   bool
	registerMainCourse string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the connected account",
	Long: `Register the connected account as a student or a lecturer.
Example: lms-cli register -n "Ada" -m "CSC/2021/001" -c "Computer Science"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		res := app.flow.RegisterUser(cmd.Context(), txflow.RegisterInput{
			Name:         registerName,
			MatricNumber: registerMatric,
			IsLecturer:   registerLecturer,
			MainCourse:   registerMainCourse,
		})
		return report(res)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the connected account's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		profile, err := app.lms.Profile(cmd.Context(), app.identity.Address)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		if !profile.Registered() {
			color.Yellow("Account %s is not registered", app.identity.Address)
			return nil
		}

		role := "Student"
		if profile.IsLecturer {
			role = "Lecturer"
		}
		fmt.Printf("Wallet:  %s\n", profile.Wallet)
		fmt.Printf("Name:    %s\n", profile.Name)
		fmt.Printf("Role:    %s\n", role)
		if !profile.IsLecturer {
			fmt.Printf("Matric:  %s\n", profile.MatricNumber)
			fmt.Printf("Course:  %s\n", profile.MainCourse)
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerName, "name", "n", "", "Display name (required)")
	registerCmd.Flags().StringVarP(&registerMatric, "matric", "m", "", "Matric number (students only)")
	registerCmd.Flags().BoolVarP(&registerLecturer, "lecturer", "l", false, "Register as a lecturer")
	registerCmd.Flags().StringVarP(&registerMainCourse, "course", "c", "", "Main course of study (students only)")
	registerCmd.MarkFlagRequired("name")
}
