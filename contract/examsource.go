package contract

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// ExamRef identifies one exam for an ExamSource. The aggregate deployment
// addresses exams by id; the standalone deployment addresses them by the
// per-exam contract address. Both fields are carried so callers never branch
// on the active deployment style.
type ExamRef struct {
	ID      uint64
	Address string
}

// ExamSource is the capability interface over the two exam deployment
// variants: exams as rows in the aggregate contract, or exams as individual
// contract instances produced by a factory.
type ExamSource interface {
	Questions(ctx context.Context, ref ExamRef) ([]core.Question, error)
	Window(ctx context.Context, ref ExamRef) (startTime, duration int64, err error)
	SubmitAnswers(ctx context.Context, ref ExamRef, answers []int) (wallet.TxHandle, error)
	AddQuestionsBatch(ctx context.Context, ref ExamRef, texts []string, options [][]string, correct []int) (wallet.TxHandle, error)
}

// SourceMode selects the exam deployment variant.
type SourceMode string

const (
	// AggregateSource reads and writes exams through the LMS contract.
	AggregateSource SourceMode = "aggregate"
	// StandaloneSource talks to one contract instance per exam.
	StandaloneSource SourceMode = "standalone"
)

// SourceConstructor builds an ExamSource bound to the given identity.
type SourceConstructor func(id *wallet.Identity, lmsAddr core.Address) (ExamSource, error)

type sourceRegistry struct {
	mu          sync.RWMutex
	sources     map[SourceMode]SourceConstructor
	defaultMode SourceMode
}

var registry = &sourceRegistry{
	sources:     make(map[SourceMode]SourceConstructor),
	defaultMode: AggregateSource,
}

// RegisterSource adds an ExamSource constructor for a mode.
func RegisterSource(mode SourceMode, ctor SourceConstructor) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.sources[mode]; exists {
		return fmt.Errorf("exam source %q already registered", mode)
	}
	registry.sources[mode] = ctor
	return nil
}

// SetDefaultSource sets the mode used when configuration names none.
func SetDefaultSource(mode SourceMode) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.sources[mode]; !exists {
		return fmt.Errorf("exam source %q not registered", mode)
	}
	registry.defaultMode = mode
	return nil
}

// NewExamSource builds the configured ExamSource variant. An empty mode
// falls back to the registry default.
func NewExamSource(mode SourceMode, id *wallet.Identity, lmsAddr core.Address) (ExamSource, error) {
	registry.mu.RLock()
	if mode == "" {
		mode = registry.defaultMode
	}
	ctor, exists := registry.sources[mode]
	registry.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("exam source %q not registered", mode)
	}
	return ctor(id, lmsAddr)
}
