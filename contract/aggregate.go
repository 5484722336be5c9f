package contract

import (
	"context"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

func init() {
	RegisterSource(AggregateSource, newAggregateSource)
}

// aggregateSource serves exam operations through the LMS contract itself.
type aggregateSource struct {
	lms *LMSBinding
}

func newAggregateSource(id *wallet.Identity, lmsAddr core.Address) (ExamSource, error) {
	h, err := Aggregate(id, lmsAddr)
	if err != nil {
		return nil, err
	}
	return &aggregateSource{lms: NewLMSBinding(h)}, nil
}

func (s *aggregateSource) Questions(ctx context.Context, ref ExamRef) ([]core.Question, error) {
	return s.lms.ExamQuestions(ctx, ref.ID)
}

func (s *aggregateSource) Window(ctx context.Context, ref ExamRef) (int64, int64, error) {
	exam, err := s.lms.ExamAt(ctx, ref.ID)
	if err != nil {
		return 0, 0, err
	}
	return exam.StartTime, exam.Duration, nil
}

func (s *aggregateSource) SubmitAnswers(ctx context.Context, ref ExamRef, answers []int) (wallet.TxHandle, error) {
	return s.lms.SubmitAnswers(ctx, ref.ID, answers)
}

func (s *aggregateSource) AddQuestionsBatch(ctx context.Context, ref ExamRef, texts []string, options [][]string, correct []int) (wallet.TxHandle, error) {
	return s.lms.AddQuestionsBatch(ctx, ref.ID, texts, options, correct)
}
