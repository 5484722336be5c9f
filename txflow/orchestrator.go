package txflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chainlms-net/lms/contract"
	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// State is the per-operation lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingConfirmation
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of one orchestrated operation.
//
// A Result whose State is StateAwaitingConfirmation means the caller stopped
// waiting: the transaction is broadcast and may still confirm, which is
// distinct from Failed.
type Result struct {
	Op       string
	State    State
	Category Category
	Err      error
	Message  string
	TxHash   core.Hash

	// FromRead marks a result satisfied by a fallback read instead of a
	// broadcast, used when re-invoking an operation that already failed
	// as AlreadyEnrolled/AlreadySubmitted.
	FromRead bool

	ExamID     uint64 // createExam: inferred id of the new exam
	Score      uint64 // submitAnswers: graded score
	ScoreKnown bool
	Enrolled   bool             // enrollInCourse fallback read
	Submission *core.Submission // submitAnswers fallback read
}

// OK reports whether the operation reached a usable outcome: confirmed,
// satisfied by a fallback read, or a benign already-done state.
func (r Result) OK() bool {
	return r.State == StateConfirmed || r.FromRead || r.Category.Benign()
}

// Orchestrator drives every state-changing operation through the same
// Idle → Submitting → AwaitingConfirmation → Confirmed | Failed machine.
type Orchestrator struct {
	lms      *contract.LMSBinding
	source   contract.ExamSource
	validate *validator.Validate
	logger   *slog.Logger
	clock    func() time.Time

	// OnTransition, when set, observes every state change.
	OnTransition func(op string, s State)

	mu      sync.Mutex
	settled map[string]Category
}

// New creates an orchestrator over the aggregate binding and the configured
// exam source.
func New(lms *contract.LMSBinding, source contract.ExamSource, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		lms:      lms,
		source:   source,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		clock:    time.Now,
		settled:  make(map[string]Category),
	}
}

// SetClock overrides the orchestrator's notion of now.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	o.clock = now
	o.mu.Unlock()
}

func (o *Orchestrator) now() time.Time {
	o.mu.Lock()
	clock := o.clock
	o.mu.Unlock()
	return clock()
}

func (o *Orchestrator) transition(op string, s State) {
	if o.OnTransition != nil {
		o.OnTransition(op, s)
	}
}

func (o *Orchestrator) fail(op string, err error) Result {
	cat := Classify(err)
	o.transition(op, StateFailed)
	o.logger.Warn("operation failed", "op", op, "category", cat, "error", err)
	return Result{
		Op:       op,
		State:    StateFailed,
		Category: cat,
		Err:      err,
		Message:  messageFor(cat, err),
	}
}

// recordSettled memoizes outcomes that make the operation final for this
// account: the orchestrator's own confirmed enroll/submit as well as benign
// already-done reverts. A re-invocation then falls back to a read instead of
// broadcasting again.
func (o *Orchestrator) recordSettled(key string, cat Category) {
	if !cat.Benign() {
		return
	}
	o.mu.Lock()
	o.settled[key] = cat
	o.mu.Unlock()
}

func (o *Orchestrator) priorSettled(key string) Category {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settled[key]
}

// checkInput runs struct-tag validation, reducing validator errors to a
// single pre-network ValidationFailure.
func (o *Orchestrator) checkInput(in any) error {
	if err := o.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		reason := "invalid input"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			reason = fmt.Sprintf("field %s failed %s validation", verrs[0].Field(), verrs[0].Tag())
		}
		return validationErr(reason, err)
	}
	return nil
}

// await blocks on confirmation. Cancellation during the wait does not mean
// the transaction failed; the result stays in AwaitingConfirmation so the
// caller can poll later.
func (o *Orchestrator) await(ctx context.Context, op string, tx wallet.TxHandle) (*wallet.Receipt, *Result) {
	o.transition(op, StateAwaitingConfirmation)
	receipt, err := tx.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.Info("stopped waiting for confirmation", "op", op, "tx", tx.Hash())
			return nil, &Result{
				Op:      op,
				State:   StateAwaitingConfirmation,
				TxHash:  tx.Hash(),
				Err:     err,
				Message: "Transaction broadcast; confirmation still pending",
			}
		}
		r := o.fail(op, err)
		r.TxHash = tx.Hash()
		return nil, &r
	}
	return receipt, nil
}

// RegisterInput is the registerUser payload. Lecturers must not carry a
// matric number or main course; students require both.
type RegisterInput struct {
	Name         string `validate:"required"`
	MatricNumber string `validate:"required_if=IsLecturer false,excluded_if=IsLecturer true"`
	IsLecturer   bool
	MainCourse   string `validate:"required_if=IsLecturer false,excluded_if=IsLecturer true"`
}

// RegisterUser registers the connected account on chain and confirms the
// profile with a follow-up read.
func (o *Orchestrator) RegisterUser(ctx context.Context, in RegisterInput) Result {
	const op = "registerUser"
	o.transition(op, StateSubmitting)
	if err := o.checkInput(in); err != nil {
		return o.fail(op, err)
	}

	tx, err := o.lms.RegisterUser(ctx, in.Name, in.MatricNumber, in.IsLecturer, in.MainCourse)
	if err != nil {
		return o.fail(op, err)
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		return *failed
	}

	o.transition(op, StateConfirmed)
	return Result{Op: op, State: StateConfirmed, TxHash: receipt.TxHash, Message: "Registration confirmed"}
}

// CreateCourseInput is the createCourse payload.
type CreateCourseInput struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
}

// CreateCourse creates a course owned by the connected lecturer.
func (o *Orchestrator) CreateCourse(ctx context.Context, in CreateCourseInput) Result {
	const op = "createCourse"
	o.transition(op, StateSubmitting)
	if err := o.checkInput(in); err != nil {
		return o.fail(op, err)
	}

	tx, err := o.lms.CreateCourse(ctx, in.Title, in.Description)
	if err != nil {
		return o.fail(op, err)
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		return *failed
	}

	o.transition(op, StateConfirmed)
	return Result{Op: op, State: StateConfirmed, TxHash: receipt.TxHash, Message: "Course created"}
}

// CreateExamInput is the createExam payload. KnownCourseIDs is the caller's
// currently loaded course collection; the selected course must be in it.
type CreateExamInput struct {
	CourseID        uint64
	Title           string `validate:"required"`
	DurationSeconds int64  `validate:"gt=0"`
	KnownCourseIDs  []uint64
}

// CreateExam creates an exam and infers the new exam's id from the
// refreshed id list.
func (o *Orchestrator) CreateExam(ctx context.Context, in CreateExamInput) Result {
	const op = "createExam"
	o.transition(op, StateSubmitting)
	if err := o.checkInput(in); err != nil {
		return o.fail(op, err)
	}
	if !containsID(in.KnownCourseIDs, in.CourseID) {
		return o.fail(op, validationErr(fmt.Sprintf("course %d is not in the loaded course list", in.CourseID), nil))
	}

	tx, err := o.lms.CreateExam(ctx, in.CourseID, in.Title, in.DurationSeconds)
	if err != nil {
		return o.fail(op, err)
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		return *failed
	}

	examID, err := o.inferNewExamID(ctx)
	if err != nil {
		return o.fail(op, fmt.Errorf("exam created but id inference failed: %w", err))
	}
	o.transition(op, StateConfirmed)
	return Result{
		Op:      op,
		State:   StateConfirmed,
		TxHash:  receipt.TxHash,
		ExamID:  examID,
		Message: fmt.Sprintf("Exam created with id %d", examID),
	}
}

// inferNewExamID re-reads the full exam-id list and takes its last element
// as the exam just created. The contract does not return the new id to the
// caller, so this index-based inference is the integrated system's actual
// behavior. Known limitation: two lecturers creating exams at the same time
// can race this read; the contract offers nothing better to key on.
func (o *Orchestrator) inferNewExamID(ctx context.Context) (uint64, error) {
	ids, err := o.lms.AllExamIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("exam id list is empty after confirmed creation")
	}
	return ids[len(ids)-1], nil
}

// AddQuestionInput is the addQuestion payload. KnownExamIDs is the caller's
// currently loaded exam collection; the target exam must be in it.
type AddQuestionInput struct {
	ExamID        uint64
	Text          string   `validate:"required"`
	Options       []string `validate:"min=2,dive,required"`
	CorrectOption int      `validate:"gte=0"`
	KnownExamIDs  []uint64
}

// AddQuestion appends one question to an exam.
func (o *Orchestrator) AddQuestion(ctx context.Context, in AddQuestionInput) Result {
	const op = "addQuestion"
	o.transition(op, StateSubmitting)
	if err := o.checkInput(in); err != nil {
		return o.fail(op, err)
	}
	if in.CorrectOption >= len(in.Options) {
		return o.fail(op, validationErr("correct option index is out of range", nil))
	}
	if !containsID(in.KnownExamIDs, in.ExamID) {
		return o.fail(op, validationErr(fmt.Sprintf("exam %d is not in the loaded exam list", in.ExamID), nil))
	}

	tx, err := o.lms.AddQuestion(ctx, in.ExamID, in.Text, in.Options, in.CorrectOption)
	if err != nil {
		return o.fail(op, err)
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		return *failed
	}

	o.transition(op, StateConfirmed)
	return Result{Op: op, State: StateConfirmed, TxHash: receipt.TxHash, Message: "Question added"}
}

// BatchAddInput is the batch addQuestion payload.
type BatchAddInput struct {
	Ref          contract.ExamRef
	Drafts       []core.QuestionDraft
	KnownExamIDs []uint64
}

// AddQuestionsBatch pushes a draft set through the batch-add path in one
// transaction. The batch is all-or-nothing: on failure the caller's draft
// slice is left untouched for a full retry, never partially consumed.
func (o *Orchestrator) AddQuestionsBatch(ctx context.Context, in BatchAddInput) Result {
	const op = "addQuestionsBatch"
	o.transition(op, StateSubmitting)
	drafts := in.Drafts
	if len(drafts) == 0 {
		return o.fail(op, validationErr("no questions to add", nil))
	}
	if !containsID(in.KnownExamIDs, in.Ref.ID) {
		return o.fail(op, validationErr(fmt.Sprintf("exam %d is not in the loaded exam list", in.Ref.ID), nil))
	}
	texts := make([]string, len(drafts))
	options := make([][]string, len(drafts))
	correct := make([]int, len(drafts))
	for i, d := range drafts {
		if d.Text == "" {
			return o.fail(op, validationErr(fmt.Sprintf("question %d has no text", i+1), nil))
		}
		if len(d.Options) < 2 {
			return o.fail(op, validationErr(fmt.Sprintf("question %d needs at least 2 options", i+1), nil))
		}
		if d.CorrectOption < 0 || d.CorrectOption >= len(d.Options) {
			return o.fail(op, validationErr(fmt.Sprintf("question %d correct option is out of range", i+1), nil))
		}
		texts[i] = d.Text
		options[i] = d.Options
		correct[i] = d.CorrectOption
	}

	tx, err := o.source.AddQuestionsBatch(ctx, in.Ref, texts, options, correct)
	if err != nil {
		return o.fail(op, err)
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		return *failed
	}

	o.transition(op, StateConfirmed)
	return Result{
		Op:      op,
		State:   StateConfirmed,
		TxHash:  receipt.TxHash,
		Message: fmt.Sprintf("Added %d questions in one transaction", len(drafts)),
	}
}

// EnrollInput is the enrollInCourse payload.
type EnrollInput struct {
	CourseID       uint64
	KnownCourseIDs []uint64
	Student        core.Address
}

// Enroll enrolls the connected student in a course. Once the enrollment is
// settled, whether by this orchestrator's own confirmation or by an
// AlreadyEnrolled revert, no second transaction is broadcast; the current
// enrollment is fetched and presented instead.
func (o *Orchestrator) Enroll(ctx context.Context, in EnrollInput) Result {
	const op = "enrollInCourse"
	key := fmt.Sprintf("enroll:%s:%d", in.Student, in.CourseID)

	if o.priorSettled(key) == CategoryAlreadyEnrolled {
		enrolled, err := o.lms.IsEnrolled(ctx, in.Student, in.CourseID)
		if err != nil {
			return o.fail(op, err)
		}
		return Result{
			Op:       op,
			State:    StateConfirmed,
			Category: CategoryAlreadyEnrolled,
			FromRead: true,
			Enrolled: enrolled,
			Message:  messageFor(CategoryAlreadyEnrolled, nil),
		}
	}

	o.transition(op, StateSubmitting)
	if !containsID(in.KnownCourseIDs, in.CourseID) {
		return o.fail(op, validationErr(fmt.Sprintf("course %d is not in the loaded course list", in.CourseID), nil))
	}

	tx, err := o.lms.EnrollInCourse(ctx, in.CourseID)
	if err != nil {
		r := o.fail(op, err)
		o.recordSettled(key, r.Category)
		return r
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		o.recordSettled(key, failed.Category)
		return *failed
	}

	o.recordSettled(key, CategoryAlreadyEnrolled)
	o.transition(op, StateConfirmed)
	return Result{Op: op, State: StateConfirmed, TxHash: receipt.TxHash, Enrolled: true, Message: "Enrolled successfully"}
}

// SubmitInput is the submitAnswers payload. Answers uses -1 for an
// unanswered question, which fails validation before any network call.
type SubmitInput struct {
	Ref          contract.ExamRef
	Answers      []int
	Student      core.Address
	KnownExamIDs []uint64
}

// SubmitAnswers grades the student's attempt on chain. The exam window is
// checked locally first; once a submission exists the result is final and a
// re-invocation resolves by read, never by a second broadcast.
func (o *Orchestrator) SubmitAnswers(ctx context.Context, in SubmitInput) Result {
	const op = "submitAnswers"
	key := fmt.Sprintf("submit:%s:%d", in.Student, in.Ref.ID)

	if o.priorSettled(key) == CategoryAlreadySubmitted {
		return o.submissionByRead(ctx, op, in)
	}

	o.transition(op, StateSubmitting)
	if !containsID(in.KnownExamIDs, in.Ref.ID) {
		return o.fail(op, validationErr(fmt.Sprintf("exam %d is not in the loaded exam list", in.Ref.ID), nil))
	}
	if len(in.Answers) == 0 {
		return o.fail(op, validationErr("no answers selected", nil))
	}
	for i, a := range in.Answers {
		if a < 0 {
			return o.fail(op, validationErr(fmt.Sprintf("question %d is unanswered", i+1), nil))
		}
	}
	start, duration, err := o.source.Window(ctx, in.Ref)
	if err != nil {
		return o.fail(op, err)
	}
	window := core.Exam{StartTime: start, Duration: duration}
	if window.Ended(o.now()) {
		return o.fail(op, revertLike(wallet.CodeRevert, "Exam ended"))
	}

	tx, err := o.source.SubmitAnswers(ctx, in.Ref, in.Answers)
	if err != nil {
		r := o.fail(op, err)
		o.recordSettled(key, r.Category)
		return r
	}
	receipt, failed := o.await(ctx, op, tx)
	if failed != nil {
		o.recordSettled(key, failed.Category)
		return *failed
	}

	result := Result{Op: op, State: StateConfirmed, TxHash: receipt.TxHash, Message: "Exam submitted"}
	if ev, ok := receipt.FindEvent("ExamSubmitted"); ok {
		if score, ok := eventUint(ev, "score"); ok {
			result.Score = score
			result.ScoreKnown = true
			result.Message = fmt.Sprintf("Exam submitted, score %d", score)
		}
	}
	o.recordSettled(key, CategoryAlreadySubmitted)
	o.transition(op, StateConfirmed)
	return result
}

// submissionByRead satisfies a repeat submit with the existing on-chain
// submission record.
func (o *Orchestrator) submissionByRead(ctx context.Context, op string, in SubmitInput) Result {
	subs, err := o.lms.ExamSubmissions(ctx, in.Ref.ID)
	if err != nil {
		return o.fail(op, err)
	}
	result := Result{
		Op:       op,
		State:    StateConfirmed,
		Category: CategoryAlreadySubmitted,
		FromRead: true,
		Message:  messageFor(CategoryAlreadySubmitted, nil),
	}
	for i := range subs {
		if subs[i].Student.Equal(in.Student) {
			result.Submission = &subs[i]
			result.Score = subs[i].Score
			result.ScoreKnown = true
			break
		}
	}
	return result
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func eventUint(ev wallet.Event, key string) (uint64, bool) {
	switch n := ev.Values[key].(type) {
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

func revertLike(code int, reason string) error {
	return &wallet.Error{Code: code, Reason: reason, Message: "execution reverted: " + reason}
}
