// Package db provides the SQLite-backed store for the simulated chain,
// so local-mode state survives CLI restarts.
package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chainlms-net/lms/chain"
	"github.com/chainlms-net/lms/core"
)

const defaultDBPath = "./chainlms.db"

func init() {
	chain.RegisterStore(chain.DBStoreType, func(params map[string]any) (chain.Store, error) {
		path := defaultDBPath
		if p, ok := params["db_path"].(string); ok && p != "" {
			path = p
		}
		return NewStore(path)
	})
}

type DBUser struct {
	gorm.Model
	Address      string `gorm:"column:address;not null;unique;index;size:42"`
	Name         string `gorm:"column:name;not null"`
	MatricNumber string `gorm:"column:matric_number"`
	IsLecturer   bool   `gorm:"column:is_lecturer;not null"`
	MainCourse   string `gorm:"column:main_course"`
}

func (DBUser) TableName() string { return "users" }

type DBCourse struct {
	gorm.Model
	CourseID     uint64 `gorm:"column:course_id;not null;unique;index"`
	Title        string `gorm:"column:title;not null"`
	Description  string `gorm:"column:description"`
	Lecturer     string `gorm:"column:lecturer;not null;index;size:42"`
	LecturerName string `gorm:"column:lecturer_name"`
	CreationDate int64  `gorm:"column:creation_date;not null"`
	ExamCount    uint64 `gorm:"column:exam_count;not null;default:0"`
}

func (DBCourse) TableName() string { return "courses" }

type DBExam struct {
	gorm.Model
	ExamID       uint64 `gorm:"column:exam_id;not null;unique;index"`
	Title        string `gorm:"column:title;not null"`
	Duration     int64  `gorm:"column:duration;not null"`
	StartTime    int64  `gorm:"column:start_time;not null"`
	CourseID     uint64 `gorm:"column:course_id;not null;index"`
	Lecturer     string `gorm:"column:lecturer;not null;size:42"`
	LecturerName string `gorm:"column:lecturer_name"`
}

func (DBExam) TableName() string { return "exams" }

type DBQuestion struct {
	gorm.Model
	ExamID        uint64 `gorm:"column:exam_id;not null;index"`
	Text          string `gorm:"column:question_text;not null"`
	Options       []byte `gorm:"column:options;type:blob;not null"` // JSON encoded option list
	CorrectOption int    `gorm:"column:correct_option;not null"`
}

func (DBQuestion) TableName() string { return "questions" }

type DBEnrollment struct {
	gorm.Model
	Student  string `gorm:"column:student;not null;index;size:42"`
	CourseID uint64 `gorm:"column:course_id;not null;index"`
}

func (DBEnrollment) TableName() string { return "enrollments" }

type DBSubmission struct {
	gorm.Model
	ExamID         uint64 `gorm:"column:exam_id;not null;index"`
	Student        string `gorm:"column:student;not null;index;size:42"`
	StudentName    string `gorm:"column:student_name"`
	MatricNumber   string `gorm:"column:matric_number"`
	Score          uint64 `gorm:"column:score;not null"`
	SubmissionTime int64  `gorm:"column:submission_time;not null"`
}

func (DBSubmission) TableName() string { return "submissions" }

// Store persists simulated chain state in SQLite via GORM.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at path and migrates the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := gdb.AutoMigrate(
		&DBUser{},
		&DBCourse{},
		&DBExam{},
		&DBQuestion{},
		&DBEnrollment{},
		&DBSubmission{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: gdb}, nil
}

func (s *Store) Profile(addr string) (core.UserProfile, bool, error) {
	var row DBUser
	result := s.db.Where("address = ?", addr).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return core.UserProfile{}, false, nil
	}
	if result.Error != nil {
		return core.UserProfile{}, false, fmt.Errorf("failed to get profile: %w", result.Error)
	}
	return core.UserProfile{
		Wallet:       core.AddressFromString(row.Address),
		Name:         row.Name,
		MatricNumber: row.MatricNumber,
		IsLecturer:   row.IsLecturer,
		MainCourse:   row.MainCourse,
	}, true, nil
}

func (s *Store) PutProfile(p core.UserProfile) error {
	row := DBUser{
		Address:      p.Wallet.String(),
		Name:         p.Name,
		MatricNumber: p.MatricNumber,
		IsLecturer:   p.IsLecturer,
		MainCourse:   p.MainCourse,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *Store) CourseCount() (uint64, error) {
	var n int64
	if err := s.db.Model(&DBCourse{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return uint64(n), nil
}

func (s *Store) CourseAt(index uint64) (core.Course, error) {
	var row DBCourse
	if err := s.db.Where("course_id = ?", index).First(&row).Error; err != nil {
		return core.Course{}, fmt.Errorf("course %d not found: %w", index, err)
	}
	return courseFromRow(row), nil
}

func (s *Store) AppendCourse(c core.Course) (uint64, error) {
	var id uint64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&DBCourse{}).Count(&n).Error; err != nil {
			return err
		}
		id = uint64(n)
		row := DBCourse{
			CourseID:     id,
			Title:        c.Title,
			Description:  c.Description,
			Lecturer:     c.Lecturer.String(),
			LecturerName: c.LecturerName,
			CreationDate: c.CreationDate,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create course: %w", err)
	}
	return id, nil
}

func (s *Store) IncExamCount(courseID uint64) error {
	result := s.db.Model(&DBCourse{}).Where("course_id = ?", courseID).
		Update("exam_count", gorm.Expr("exam_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to update exam count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("course %d not found", courseID)
	}
	return nil
}

func (s *Store) ExamIDs() ([]uint64, error) {
	var ids []uint64
	if err := s.db.Model(&DBExam{}).Order("exam_id").Pluck("exam_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list exam ids: %w", err)
	}
	return ids, nil
}

func (s *Store) ExamByID(id uint64) (core.Exam, error) {
	var row DBExam
	if err := s.db.Where("exam_id = ?", id).First(&row).Error; err != nil {
		return core.Exam{}, fmt.Errorf("exam %d not found: %w", id, err)
	}
	return examFromRow(row), nil
}

func (s *Store) AppendExam(e core.Exam) (uint64, error) {
	var id uint64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&DBExam{}).Count(&n).Error; err != nil {
			return err
		}
		id = uint64(n)
		row := DBExam{
			ExamID:       id,
			Title:        e.Title,
			Duration:     e.Duration,
			StartTime:    e.StartTime,
			CourseID:     e.CourseID,
			Lecturer:     e.Lecturer.String(),
			LecturerName: e.LecturerName,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create exam: %w", err)
	}
	return id, nil
}

func (s *Store) CourseExamIDs(courseID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.Model(&DBExam{}).Where("course_id = ?", courseID).
		Order("exam_id").Pluck("exam_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list course exams: %w", err)
	}
	return ids, nil
}

func (s *Store) Questions(examID uint64) ([]core.Question, error) {
	var rows []DBQuestion
	if err := s.db.Where("exam_id = ?", examID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	out := make([]core.Question, 0, len(rows))
	for _, row := range rows {
		var options []string
		if err := json.Unmarshal(row.Options, &options); err != nil {
			return nil, fmt.Errorf("corrupt options for question %d: %w", row.ID, err)
		}
		out = append(out, core.Question{
			Text:          row.Text,
			Options:       options,
			CorrectOption: row.CorrectOption,
		})
	}
	return out, nil
}

func (s *Store) AppendQuestions(examID uint64, qs []core.Question) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, q := range qs {
			options, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("failed to encode options: %w", err)
			}
			row := DBQuestion{
				ExamID:        examID,
				Text:          q.Text,
				Options:       options,
				CorrectOption: q.CorrectOption,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save question: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) Enroll(student string, courseID uint64) error {
	row := DBEnrollment{Student: student, CourseID: courseID}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}
	return nil
}

func (s *Store) IsEnrolled(student string, courseID uint64) (bool, error) {
	var n int64
	err := s.db.Model(&DBEnrollment{}).
		Where("student = ? AND course_id = ?", student, courseID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to query enrollment: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Submissions(examID uint64) ([]core.Submission, error) {
	var rows []DBSubmission
	if err := s.db.Where("exam_id = ?", examID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	out := make([]core.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Submission{
			Student:        core.AddressFromString(row.Student),
			StudentName:    row.StudentName,
			MatricNumber:   row.MatricNumber,
			Score:          row.Score,
			SubmissionTime: row.SubmissionTime,
		})
	}
	return out, nil
}

func (s *Store) AppendSubmission(examID uint64, sub core.Submission) error {
	row := DBSubmission{
		ExamID:         examID,
		Student:        sub.Student.String(),
		StudentName:    sub.StudentName,
		MatricNumber:   sub.MatricNumber,
		Score:          sub.Score,
		SubmissionTime: sub.SubmissionTime,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (s *Store) HasSubmission(examID uint64, student string) (bool, error) {
	var n int64
	err := s.db.Model(&DBSubmission{}).
		Where("exam_id = ? AND student = ?", examID, student).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to query submission: %w", err)
	}
	return n > 0, nil
}

func courseFromRow(row DBCourse) core.Course {
	return core.Course{
		CourseID:     row.CourseID,
		Title:        row.Title,
		Description:  row.Description,
		Lecturer:     core.AddressFromString(row.Lecturer),
		LecturerName: row.LecturerName,
		CreationDate: row.CreationDate,
		ExamCount:    row.ExamCount,
	}
}

func examFromRow(row DBExam) core.Exam {
	return core.Exam{
		ExamID:       row.ExamID,
		Title:        row.Title,
		Duration:     row.Duration,
		StartTime:    row.StartTime,
		CourseID:     row.CourseID,
		Lecturer:     core.AddressFromString(row.Lecturer),
		LecturerName: row.LecturerName,
	}
}
