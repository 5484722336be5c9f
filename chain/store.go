// Package chain provides an in-process rendition of the deployed LMS
// contracts: a wallet provider plus contract semantics with the same method
// surface, revert phrases and events. It backs the CLI's local mode and the
// test suites; against a real deployment it is replaced by a remote provider.
package chain

import (
	"fmt"
	"sync"

	"github.com/chainlms-net/lms/core"
)

// Store is the persistence boundary of the simulated chain state.
type Store interface {
	Profile(addr string) (core.UserProfile, bool, error)
	PutProfile(p core.UserProfile) error

	CourseCount() (uint64, error)
	CourseAt(index uint64) (core.Course, error)
	AppendCourse(c core.Course) (uint64, error)
	IncExamCount(courseID uint64) error

	ExamIDs() ([]uint64, error)
	ExamByID(id uint64) (core.Exam, error)
	AppendExam(e core.Exam) (uint64, error)
	CourseExamIDs(courseID uint64) ([]uint64, error)

	Questions(examID uint64) ([]core.Question, error)
	AppendQuestions(examID uint64, qs []core.Question) error

	Enroll(student string, courseID uint64) error
	IsEnrolled(student string, courseID uint64) (bool, error)

	Submissions(examID uint64) ([]core.Submission, error)
	AppendSubmission(examID uint64, s core.Submission) error
	HasSubmission(examID uint64, student string) (bool, error)
}

// StoreType selects a registered store implementation.
type StoreType string

const (
	// MemoryStoreType keeps simulated chain state in process memory.
	MemoryStoreType StoreType = "memory"
	// DBStoreType persists simulated chain state in a SQLite database.
	DBStoreType StoreType = "db"
)

// StoreConstructor creates a Store from backend-specific parameters.
type StoreConstructor func(params map[string]any) (Store, error)

var (
	storeMu     sync.RWMutex
	stores      = make(map[StoreType]StoreConstructor)
	defaultKind = MemoryStoreType
)

// RegisterStore adds a store implementation to the registry.
func RegisterStore(kind StoreType, ctor StoreConstructor) error {
	storeMu.Lock()
	defer storeMu.Unlock()
	if _, exists := stores[kind]; exists {
		return fmt.Errorf("store type %q already registered", kind)
	}
	stores[kind] = ctor
	return nil
}

// NewStore creates a store of the given kind. An empty kind falls back to
// the default.
func NewStore(kind StoreType, params map[string]any) (Store, error) {
	storeMu.RLock()
	if kind == "" {
		kind = defaultKind
	}
	ctor, exists := stores[kind]
	storeMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("store type %q not registered", kind)
	}
	return ctor(params)
}
