// Package memory provides the in-memory store for the simulated chain.
package memory

import (
	"fmt"
	"sync"

	"github.com/chainlms-net/lms/chain"
	"github.com/chainlms-net/lms/core"
)

func init() {
	chain.RegisterStore(chain.MemoryStoreType, func(_ map[string]any) (chain.Store, error) {
		return NewStore(), nil
	})
}

// Store keeps all simulated chain state in process memory.
type Store struct {
	mu          sync.RWMutex
	profiles    map[string]core.UserProfile
	courses     []core.Course
	exams       []core.Exam
	questions   map[uint64][]core.Question
	enrollments map[string]map[uint64]bool
	submissions map[uint64][]core.Submission
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		profiles:    make(map[string]core.UserProfile),
		questions:   make(map[uint64][]core.Question),
		enrollments: make(map[string]map[uint64]bool),
		submissions: make(map[uint64][]core.Submission),
	}
}

func (s *Store) Profile(addr string) (core.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[addr]
	return p, ok, nil
}

func (s *Store) PutProfile(p core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Wallet.String()] = p
	return nil
}

func (s *Store) CourseCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.courses)), nil
}

func (s *Store) CourseAt(index uint64) (core.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.courses)) {
		return core.Course{}, fmt.Errorf("course %d not found", index)
	}
	return s.courses[index], nil
}

func (s *Store) AppendCourse(c core.Course) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CourseID = uint64(len(s.courses))
	s.courses = append(s.courses, c)
	return c.CourseID, nil
}

func (s *Store) IncExamCount(courseID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if courseID >= uint64(len(s.courses)) {
		return fmt.Errorf("course %d not found", courseID)
	}
	s.courses[courseID].ExamCount++
	return nil
}

func (s *Store) ExamIDs() ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, len(s.exams))
	for i := range s.exams {
		ids[i] = s.exams[i].ExamID
	}
	return ids, nil
}

func (s *Store) ExamByID(id uint64) (core.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.exams)) {
		return core.Exam{}, fmt.Errorf("exam %d not found", id)
	}
	return s.exams[id], nil
}

func (s *Store) AppendExam(e core.Exam) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ExamID = uint64(len(s.exams))
	s.exams = append(s.exams, e)
	return e.ExamID, nil
}

func (s *Store) CourseExamIDs(courseID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uint64
	for i := range s.exams {
		if s.exams[i].CourseID == courseID {
			ids = append(ids, s.exams[i].ExamID)
		}
	}
	return ids, nil
}

func (s *Store) Questions(examID uint64) ([]core.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs := s.questions[examID]
	out := make([]core.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (s *Store) AppendQuestions(examID uint64, qs []core.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[examID] = append(s.questions[examID], qs...)
	return nil
}

func (s *Store) Enroll(student string, courseID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.enrollments[student]
	if set == nil {
		set = make(map[uint64]bool)
		s.enrollments[student] = set
	}
	set[courseID] = true
	return nil
}

func (s *Store) IsEnrolled(student string, courseID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrollments[student][courseID], nil
}

func (s *Store) Submissions(examID uint64) ([]core.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.submissions[examID]
	out := make([]core.Submission, len(subs))
	copy(out, subs)
	return out, nil
}

func (s *Store) AppendSubmission(examID uint64, sub core.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[examID] = append(s.submissions[examID], sub)
	return nil
}

func (s *Store) HasSubmission(examID uint64, student string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions[examID] {
		if sub.Student.String() == student {
			return true, nil
		}
	}
	return false, nil
}
