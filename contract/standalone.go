package contract

import (
	"context"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

func init() {
	RegisterSource(StandaloneSource, newStandaloneSource)
}

// standaloneSource talks to one contract instance per exam, resolved from
// ExamRef.Address. Reads go through a provider-bound handle so they never
// raise a signature prompt; writes bind the signer per call because the
// target address changes exam to exam.
type standaloneSource struct {
	id *wallet.Identity
}

func newStandaloneSource(id *wallet.Identity, _ core.Address) (ExamSource, error) {
	if id == nil || !id.Valid() {
		return nil, core.ErrNotConnected
	}
	return &standaloneSource{id: id}, nil
}

func (s *standaloneSource) reader(ref ExamRef) (*Handle, error) {
	return ExamReader(s.id.Provider(), ref.Address)
}

func (s *standaloneSource) writer(ref ExamRef) (*Handle, error) {
	return Exam(s.id, ref.Address)
}

func (s *standaloneSource) Questions(ctx context.Context, ref ExamRef) ([]core.Question, error) {
	h, err := s.reader(ref)
	if err != nil {
		return nil, err
	}
	rets, err := h.Call(ctx, "getQuestions")
	if err != nil {
		return nil, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return nil, err
	}
	return decodeQuestions(v)
}

func (s *standaloneSource) Window(ctx context.Context, ref ExamRef) (int64, int64, error) {
	h, err := s.reader(ref)
	if err != nil {
		return 0, 0, err
	}
	rets, err := h.Call(ctx, "startTime")
	if err != nil {
		return 0, 0, err
	}
	v, err := firstResult(rets)
	if err != nil {
		return 0, 0, err
	}
	start, err := decodeInt64(v)
	if err != nil {
		return 0, 0, err
	}
	rets, err = h.Call(ctx, "duration")
	if err != nil {
		return 0, 0, err
	}
	v, err = firstResult(rets)
	if err != nil {
		return 0, 0, err
	}
	duration, err := decodeInt64(v)
	if err != nil {
		return 0, 0, err
	}
	return start, duration, nil
}

func (s *standaloneSource) SubmitAnswers(ctx context.Context, ref ExamRef, answers []int) (wallet.TxHandle, error) {
	h, err := s.writer(ref)
	if err != nil {
		return nil, err
	}
	return h.Send(ctx, "submitAnswers", answers)
}

func (s *standaloneSource) AddQuestionsBatch(ctx context.Context, ref ExamRef, texts []string, options [][]string, correct []int) (wallet.TxHandle, error) {
	h, err := s.writer(ref)
	if err != nil {
		return nil, err
	}
	return h.Send(ctx, "addQuestionsBatch", texts, options, correct)
}
