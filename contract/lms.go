package contract

import (
	"context"
	"fmt"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// LMSBinding wraps a Handle with typed accessors for the aggregate contract.
// Reads work on both signer-bound and read-only handles; writes require a
// signer and return the broadcast transaction's handle.
type LMSBinding struct {
	h *Handle
}

// NewLMSBinding wraps an aggregate handle.
func NewLMSBinding(h *Handle) *LMSBinding {
	return &LMSBinding{h: h}
}

// Handle returns the underlying handle.
func (b *LMSBinding) Handle() *Handle {
	return b.h
}

func (b *LMSBinding) CourseCount(ctx context.Context) (uint64, error) {
	rets, err := b.h.Call(ctx, "courseCount")
	if err != nil {
		return 0, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return 0, err
	}
	return decodeUint64(v)
}

func (b *LMSBinding) CourseAt(ctx context.Context, index uint64) (core.Course, error) {
	rets, err := b.h.Call(ctx, "courses", index)
	if err != nil {
		return core.Course{}, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return core.Course{}, err
	}
	return decodeCourse(v)
}

func (b *LMSBinding) Profile(ctx context.Context, addr core.Address) (core.UserProfile, error) {
	rets, err := b.h.Call(ctx, "getUserProfile", addr)
	if err != nil {
		return core.UserProfile{}, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return core.UserProfile{}, err
	}
	return decodeProfile(v)
}

func (b *LMSBinding) IsEnrolled(ctx context.Context, student core.Address, courseID uint64) (bool, error) {
	rets, err := b.h.Call(ctx, "isStudentEnrolled", student, courseID)
	if err != nil {
		return false, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return false, err
	}
	return decodeBool(v)
}

func (b *LMSBinding) AllExamIDs(ctx context.Context) ([]uint64, error) {
	rets, err := b.h.Call(ctx, "getAllExamIds")
	if err != nil {
		return nil, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return nil, err
	}
	return decodeUint64Slice(v)
}

func (b *LMSBinding) ExamAt(ctx context.Context, examID uint64) (core.Exam, error) {
	rets, err := b.h.Call(ctx, "exams", examID)
	if err != nil {
		return core.Exam{}, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return core.Exam{}, err
	}
	return decodeExam(v)
}

func (b *LMSBinding) CourseExamIDs(ctx context.Context, courseID uint64) ([]uint64, error) {
	rets, err := b.h.Call(ctx, "getCourseExamIds", courseID)
	if err != nil {
		return nil, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return nil, err
	}
	return decodeUint64Slice(v)
}

func (b *LMSBinding) ExamQuestions(ctx context.Context, examID uint64) ([]core.Question, error) {
	rets, err := b.h.Call(ctx, "getExamQuestions", examID)
	if err != nil {
		return nil, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return nil, err
	}
	return decodeQuestions(v)
}

func (b *LMSBinding) ExamSubmissions(ctx context.Context, examID uint64) ([]core.Submission, error) {
	rets, err := b.h.Call(ctx, "getExamSubmissions", examID)
	if err != nil {
		return nil, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return nil, err
	}
	return decodeSubmissions(v)
}

func (b *LMSBinding) RegisterUser(ctx context.Context, name, matric string, isLecturer bool, mainCourse string) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "registerUser", name, matric, isLecturer, mainCourse)
}

func (b *LMSBinding) CreateCourse(ctx context.Context, title, description string) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "createCourse", title, description)
}

func (b *LMSBinding) CreateExam(ctx context.Context, courseID uint64, title string, durationSeconds int64) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "createExam", courseID, title, durationSeconds)
}

func (b *LMSBinding) AddQuestion(ctx context.Context, examID uint64, text string, options []string, correct int) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "addQuestion", examID, text, options, correct)
}

func (b *LMSBinding) AddQuestionsBatch(ctx context.Context, examID uint64, texts []string, options [][]string, correct []int) (wallet.TxHandle, error) {
	if len(texts) != len(options) || len(texts) != len(correct) {
		return nil, fmt.Errorf("batch arrays must be the same length")
	}
	return b.h.Send(ctx, "addQuestionsBatch", examID, texts, options, correct)
}

func (b *LMSBinding) EnrollInCourse(ctx context.Context, courseID uint64) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "enrollInCourse", courseID)
}

func (b *LMSBinding) SubmitAnswers(ctx context.Context, examID uint64, answers []int) (wallet.TxHandle, error) {
	return b.h.Send(ctx, "submitAnswers", examID, answers)
}
