// Package contract turns a signing identity into callable contract handles.
// Two contract families exist: the aggregate LMS contract at a fixed address,
// and per-exam contract instances resolved dynamically.
package contract

import (
	"fmt"

	"github.com/chainlms-net/lms/core"
)

// Method describes one entry of a contract interface.
type Method struct {
	Name     string
	Inputs   int
	ReadOnly bool
}

// Interface is the callable surface of a contract family. Handles refuse
// methods that are not part of their interface, so a typo fails locally
// instead of as an opaque chain error.
type Interface struct {
	Name    string
	methods map[string]Method
}

// NewInterface builds an interface descriptor from its method list.
func NewInterface(name string, methods []Method) Interface {
	m := make(map[string]Method, len(methods))
	for _, meth := range methods {
		m[meth.Name] = meth
	}
	return Interface{Name: name, methods: m}
}

// Method looks up a method descriptor by name.
func (i Interface) Method(name string) (Method, bool) {
	m, ok := i.methods[name]
	return m, ok
}

// check validates a call against the descriptor before it leaves the client.
func (i Interface) check(name string, argc int, write bool) error {
	m, ok := i.methods[name]
	if !ok {
		return fmt.Errorf("%s.%s: %w", i.Name, name, core.ErrUnknownMethod)
	}
	if m.Inputs != argc {
		return fmt.Errorf("%s.%s: expected %d args, got %d", i.Name, name, m.Inputs, argc)
	}
	if write && m.ReadOnly {
		return fmt.Errorf("%s.%s: read-only method sent as transaction", i.Name, name)
	}
	return nil
}

// LMS is the aggregate course/exam contract interface.
var LMS = NewInterface("LMS", []Method{
	{Name: "courseCount", Inputs: 0, ReadOnly: true},
	{Name: "courses", Inputs: 1, ReadOnly: true},
	{Name: "getUserProfile", Inputs: 1, ReadOnly: true},
	{Name: "isStudentEnrolled", Inputs: 2, ReadOnly: true},
	{Name: "getAllExamIds", Inputs: 0, ReadOnly: true},
	{Name: "exams", Inputs: 1, ReadOnly: true},
	{Name: "getCourseExamIds", Inputs: 1, ReadOnly: true},
	{Name: "getExamQuestions", Inputs: 1, ReadOnly: true},
	{Name: "getExamSubmissions", Inputs: 1, ReadOnly: true},
	{Name: "registerUser", Inputs: 4},
	{Name: "createCourse", Inputs: 2},
	{Name: "createExam", Inputs: 3},
	{Name: "addQuestion", Inputs: 4},
	{Name: "addQuestionsBatch", Inputs: 4},
	{Name: "enrollInCourse", Inputs: 1},
	{Name: "submitAnswers", Inputs: 2},
})

// ExamIface is the per-exam contract interface, a subset of the aggregate
// surface scoped to one exam instance.
var ExamIface = NewInterface("Exam", []Method{
	{Name: "getQuestions", Inputs: 0, ReadOnly: true},
	{Name: "startTime", Inputs: 0, ReadOnly: true},
	{Name: "duration", Inputs: 0, ReadOnly: true},
	{Name: "submitAnswers", Inputs: 1},
	{Name: "addQuestionsBatch", Inputs: 3},
})
