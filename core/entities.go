package core

import "time"

// UserProfile is the on-chain registration record for an account.
// An empty Name means the account has never registered.
type UserProfile struct {
	Wallet       Address
	Name         string
	MatricNumber string
	IsLecturer   bool
	MainCourse   string
}

// Registered reports whether the profile exists on chain.
func (p UserProfile) Registered() bool {
	return p.Name != ""
}

// Course is a client-side copy of an on-chain course record. CourseID equals
// the record's index in the contract's course array: ids form a dense
// 0..courseCount-1 range and are never renumbered by the client.
type Course struct {
	CourseID     uint64
	Title        string
	Description  string
	Lecturer     Address
	LecturerName string
	CreationDate int64 // unix seconds
	ExamCount    uint64
}

// Exam is a client-side copy of an on-chain exam record.
type Exam struct {
	ExamID       uint64
	Title        string
	Duration     int64 // seconds
	StartTime    int64 // unix seconds
	CourseID     uint64
	Lecturer     Address
	LecturerName string
}

// EndTime returns the unix second after which submissions are rejected.
func (e Exam) EndTime() int64 {
	return e.StartTime + e.Duration
}

// Ended reports whether the exam window has closed at the given instant.
func (e Exam) Ended(now time.Time) bool {
	return now.Unix() >= e.EndTime()
}

// Remaining returns the seconds left in the exam window, never negative.
func (e Exam) Remaining(now time.Time) int64 {
	r := e.EndTime() - now.Unix()
	if r < 0 {
		return 0
	}
	return r
}

// Question is a single multiple-choice question. CorrectOption is always a
// valid index into Options.
type Question struct {
	Text          string
	Options       []string
	CorrectOption int
}

// Submission records a student's graded attempt. The contract enforces at
// most one submission per (exam, student) pair; once fetched it is final.
type Submission struct {
	Student        Address
	StudentName    string
	MatricNumber   string
	Score          uint64
	SubmissionTime int64
}

// QuestionDraft is an ephemeral, client-only question produced by the
// generated-content parser. Drafts are never persisted until pushed through
// the batch-add write path.
type QuestionDraft struct {
	Text          string
	Options       []string
	CorrectOption int
}
