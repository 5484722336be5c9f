package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// Revert phrases, verbatim from the deployed contracts. The orchestrator's
// classification table matches on these.
const (
	RevertAlreadyEnrolled   = "Already enrolled"
	RevertAlreadySubmitted  = "Already submitted"
	RevertExamEnded         = "Exam ended"
	RevertNotEnrolled       = "Not enrolled"
	RevertInvalidCourse     = "Invalid course"
	RevertInvalidExam       = "Invalid exam"
	RevertAlreadyRegistered = "Already registered"
	RevertNotLecturer       = "Only lecturers can create courses"
	RevertNotCourseOwner    = "Only the course lecturer can add exams"
)

// Backend implements wallet.Provider over an in-process LMS state machine.
type Backend struct {
	store   Store
	lmsAddr core.Address
	logger  *slog.Logger

	mu         sync.Mutex
	accounts   []core.Address
	authorized bool
	connectErr error
	now        func() time.Time
	nonce      uint64

	accountSubs map[int]func([]core.Address)
	chainSubs   map[int]func(uint64)
	nextSub     int

	callCount map[string]int
	sendCount map[string]int
}

// NewBackend creates a simulated chain over the given store. The accounts
// are the wallet's selectable accounts, first one active.
func NewBackend(store Store, lmsAddr core.Address, accounts []core.Address, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		store:       store,
		lmsAddr:     lmsAddr,
		logger:      logger,
		accounts:    accounts,
		now:         time.Now,
		accountSubs: make(map[int]func([]core.Address)),
		chainSubs:   make(map[int]func(uint64)),
		callCount:   make(map[string]int),
		sendCount:   make(map[string]int),
	}
}

// LMSAddress returns the simulated aggregate contract address.
func (b *Backend) LMSAddress() core.Address {
	return b.lmsAddr
}

// SetClock overrides the backend's notion of now.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// FailNextConnect makes the next RequestAccounts call fail with err,
// emulating a dismissed permission prompt or a broken provider.
func (b *Backend) FailNextConnect(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectErr = err
}

// SetAccounts replaces the wallet's account list and fires the
// accountsChanged notification, exactly like a wallet account switch.
func (b *Backend) SetAccounts(accounts []core.Address) {
	b.mu.Lock()
	b.accounts = accounts
	handlers := make([]func([]core.Address), 0, len(b.accountSubs))
	for _, h := range b.accountSubs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(accounts)
	}
}

// SwitchChain fires the chainChanged notification.
func (b *Backend) SwitchChain(chainID uint64) {
	b.mu.Lock()
	handlers := make([]func(uint64), 0, len(b.chainSubs))
	for _, h := range b.chainSubs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(chainID)
	}
}

// CallCount returns how many read calls were issued for a method.
func (b *Backend) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount[method]
}

// SendCount returns how many transactions were broadcast for a method.
func (b *Backend) SendCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendCount[method]
}

// RequestAccounts implements wallet.Provider.
func (b *Backend) RequestAccounts(ctx context.Context) ([]core.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectErr != nil {
		err := b.connectErr
		b.connectErr = nil
		return nil, err
	}
	b.authorized = true
	return append([]core.Address(nil), b.accounts...), nil
}

// Accounts implements wallet.Provider. Without prior authorization it
// reports no accounts, like a wallet that was never granted access.
func (b *Backend) Accounts(ctx context.Context) ([]core.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.authorized {
		return nil, nil
	}
	return append([]core.Address(nil), b.accounts...), nil
}

// OnAccountsChanged implements wallet.Provider.
func (b *Backend) OnAccountsChanged(h func([]core.Address)) func() {
	b.mu.Lock()
	n := b.nextSub
	b.nextSub++
	b.accountSubs[n] = h
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.accountSubs, n)
		b.mu.Unlock()
	}
}

// OnChainChanged implements wallet.Provider.
func (b *Backend) OnChainChanged(h func(uint64)) func() {
	b.mu.Lock()
	n := b.nextSub
	b.nextSub++
	b.chainSubs[n] = h
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.chainSubs, n)
		b.mu.Unlock()
	}
}

// ExamContractAddress derives the deterministic per-exam contract address
// the simulated factory assigns at exam creation.
func (b *Backend) ExamContractAddress(examID uint64) core.Address {
	var addr core.Address
	addr[0] = 0xee
	binary.BigEndian.PutUint64(addr[12:], examID)
	return addr
}

// examIDForAddress resolves a per-exam contract address back to its id.
func (b *Backend) examIDForAddress(addr core.Address) (uint64, bool) {
	if addr[0] != 0xee {
		return 0, false
	}
	return binary.BigEndian.Uint64(addr[12:]), true
}

func revert(reason string) error {
	return &wallet.Error{
		Code:    wallet.CodeRevert,
		Reason:  reason,
		Message: "execution reverted: " + reason,
	}
}

// Call implements wallet.Provider read dispatch.
func (b *Backend) Call(ctx context.Context, to core.Address, method string, args ...any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.callCount[method]++
	b.mu.Unlock()

	if to == b.lmsAddr {
		return b.callLMS(method, args)
	}
	if examID, ok := b.examIDForAddress(to); ok {
		return b.callExam(examID, method, args)
	}
	return nil, &wallet.Error{Code: wallet.CodeNetwork, Message: fmt.Sprintf("no contract at %s", to)}
}

func (b *Backend) callLMS(method string, args []any) ([]any, error) {
	switch method {
	case "courseCount":
		n, err := b.store.CourseCount()
		if err != nil {
			return nil, err
		}
		return []any{n}, nil
	case "courses":
		index, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		c, err := b.store.CourseAt(index)
		if err != nil {
			return nil, revert(RevertInvalidCourse)
		}
		return []any{c}, nil
	case "getUserProfile":
		addr, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		p, ok, err := b.store.Profile(addr.String())
		if err != nil {
			return nil, err
		}
		if !ok {
			// Unregistered accounts read back as an empty profile,
			// matching the contract's default struct value.
			return []any{core.UserProfile{Wallet: addr}}, nil
		}
		return []any{p}, nil
	case "isStudentEnrolled":
		student, err := argAddress(args, 0)
		if err != nil {
			return nil, err
		}
		courseID, err := argUint(args, 1)
		if err != nil {
			return nil, err
		}
		enrolled, err := b.store.IsEnrolled(student.String(), courseID)
		if err != nil {
			return nil, err
		}
		return []any{enrolled}, nil
	case "getAllExamIds":
		ids, err := b.store.ExamIDs()
		if err != nil {
			return nil, err
		}
		return []any{ids}, nil
	case "exams":
		id, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		e, err := b.store.ExamByID(id)
		if err != nil {
			return nil, revert(RevertInvalidExam)
		}
		return []any{e}, nil
	case "getCourseExamIds":
		courseID, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		ids, err := b.store.CourseExamIDs(courseID)
		if err != nil {
			return nil, err
		}
		return []any{ids}, nil
	case "getExamQuestions":
		id, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		qs, err := b.store.Questions(id)
		if err != nil {
			return nil, err
		}
		return []any{qs}, nil
	case "getExamSubmissions":
		id, err := argUint(args, 0)
		if err != nil {
			return nil, err
		}
		subs, err := b.store.Submissions(id)
		if err != nil {
			return nil, err
		}
		return []any{subs}, nil
	default:
		return nil, fmt.Errorf("unknown LMS read method %q", method)
	}
}

func (b *Backend) callExam(examID uint64, method string, args []any) ([]any, error) {
	exam, err := b.store.ExamByID(examID)
	if err != nil {
		return nil, revert(RevertInvalidExam)
	}
	switch method {
	case "getQuestions":
		qs, err := b.store.Questions(examID)
		if err != nil {
			return nil, err
		}
		return []any{qs}, nil
	case "startTime":
		return []any{uint64(exam.StartTime)}, nil
	case "duration":
		return []any{uint64(exam.Duration)}, nil
	default:
		return nil, fmt.Errorf("unknown exam read method %q", method)
	}
}

// SignAndSend implements wallet.Provider. The transaction is accepted
// immediately; execution and any revert surface at Wait, the way a real
// chain reports them with the receipt.
func (b *Backend) SignAndSend(ctx context.Context, tx wallet.Tx) (wallet.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.sendCount[tx.Method]++
	b.nonce++
	nonce := b.nonce
	b.mu.Unlock()

	hash := txHash(tx, nonce)
	b.logger.Debug("transaction broadcast", "method", tx.Method, "from", tx.From, "hash", hash)
	return &txHandle{backend: b, tx: tx, hash: hash}, nil
}

type txHandle struct {
	backend *Backend
	tx      wallet.Tx
	hash    core.Hash

	once    sync.Once
	receipt *wallet.Receipt
	err     error
}

func (h *txHandle) Hash() core.Hash {
	return h.hash
}

func (h *txHandle) Wait(ctx context.Context) (*wallet.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.once.Do(func() {
		h.receipt, h.err = h.backend.execute(h.tx, h.hash)
	})
	return h.receipt, h.err
}

func txHash(tx wallet.Tx, nonce uint64) core.Hash {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s:%d", tx.From, tx.To, tx.Method, nonce))
	return core.Hash(sum)
}

func (b *Backend) execute(tx wallet.Tx, hash core.Hash) (*wallet.Receipt, error) {
	var (
		events []wallet.Event
		err    error
	)
	if tx.To == b.lmsAddr {
		events, err = b.executeLMS(tx)
	} else if examID, ok := b.examIDForAddress(tx.To); ok {
		events, err = b.executeExam(examID, tx)
	} else {
		err = &wallet.Error{Code: wallet.CodeNetwork, Message: fmt.Sprintf("no contract at %s", tx.To)}
	}
	if err != nil {
		b.logger.Debug("transaction reverted", "method", tx.Method, "error", err)
		return nil, err
	}
	return &wallet.Receipt{TxHash: hash, BlockHeight: 0, Events: events}, nil
}

func (b *Backend) executeLMS(tx wallet.Tx) ([]wallet.Event, error) {
	switch tx.Method {
	case "registerUser":
		return b.registerUser(tx)
	case "createCourse":
		return b.createCourse(tx)
	case "createExam":
		return b.createExam(tx)
	case "addQuestion":
		return b.addQuestion(tx)
	case "addQuestionsBatch":
		examID, err := argUint(tx.Args, 0)
		if err != nil {
			return nil, err
		}
		return b.addQuestionsBatch(examID, tx.Args[1:])
	case "enrollInCourse":
		return b.enroll(tx)
	case "submitAnswers":
		examID, err := argUint(tx.Args, 0)
		if err != nil {
			return nil, err
		}
		answers, err := argInts(tx.Args, 1)
		if err != nil {
			return nil, err
		}
		return b.submitAnswers(examID, tx.From, answers)
	default:
		return nil, fmt.Errorf("unknown LMS write method %q", tx.Method)
	}
}

func (b *Backend) executeExam(examID uint64, tx wallet.Tx) ([]wallet.Event, error) {
	switch tx.Method {
	case "submitAnswers":
		answers, err := argInts(tx.Args, 0)
		if err != nil {
			return nil, err
		}
		return b.submitAnswers(examID, tx.From, answers)
	case "addQuestionsBatch":
		return b.addQuestionsBatch(examID, tx.Args)
	default:
		return nil, fmt.Errorf("unknown exam write method %q", tx.Method)
	}
}

func (b *Backend) registerUser(tx wallet.Tx) ([]wallet.Event, error) {
	name, _ := tx.Args[0].(string)
	matric, _ := tx.Args[1].(string)
	isLecturer, _ := tx.Args[2].(bool)
	mainCourse, _ := tx.Args[3].(string)

	if _, exists, err := b.store.Profile(tx.From.String()); err != nil {
		return nil, err
	} else if exists {
		return nil, revert(RevertAlreadyRegistered)
	}
	p := core.UserProfile{
		Wallet:       tx.From,
		Name:         name,
		MatricNumber: matric,
		IsLecturer:   isLecturer,
		MainCourse:   mainCourse,
	}
	if err := b.store.PutProfile(p); err != nil {
		return nil, err
	}
	return []wallet.Event{{
		Name:   "UserRegistered",
		Values: map[string]any{"user": tx.From, "name": name, "matricNumber": matric},
	}}, nil
}

func (b *Backend) createCourse(tx wallet.Tx) ([]wallet.Event, error) {
	title, _ := tx.Args[0].(string)
	description, _ := tx.Args[1].(string)

	p, exists, err := b.store.Profile(tx.From.String())
	if err != nil {
		return nil, err
	}
	if !exists || !p.IsLecturer {
		return nil, revert(RevertNotLecturer)
	}
	id, err := b.store.AppendCourse(core.Course{
		Title:        title,
		Description:  description,
		Lecturer:     tx.From,
		LecturerName: p.Name,
		CreationDate: b.clock().Unix(),
	})
	if err != nil {
		return nil, err
	}
	return []wallet.Event{{
		Name:   "CourseCreated",
		Values: map[string]any{"courseId": id, "lecturer": tx.From, "title": title},
	}}, nil
}

func (b *Backend) createExam(tx wallet.Tx) ([]wallet.Event, error) {
	courseID, err := argUint(tx.Args, 0)
	if err != nil {
		return nil, err
	}
	title, _ := tx.Args[1].(string)
	duration, err := argInt(tx.Args, 2)
	if err != nil {
		return nil, err
	}

	course, err := b.store.CourseAt(courseID)
	if err != nil {
		return nil, revert(RevertInvalidCourse)
	}
	if !course.Lecturer.Equal(tx.From) {
		return nil, revert(RevertNotCourseOwner)
	}
	id, err := b.store.AppendExam(core.Exam{
		Title:        title,
		Duration:     duration,
		StartTime:    b.clock().Unix(),
		CourseID:     courseID,
		Lecturer:     tx.From,
		LecturerName: course.LecturerName,
	})
	if err != nil {
		return nil, err
	}
	if err := b.store.IncExamCount(courseID); err != nil {
		return nil, err
	}
	return []wallet.Event{{
		Name:   "ExamCreated",
		Values: map[string]any{"examId": id, "courseId": courseID, "title": title},
	}}, nil
}

func (b *Backend) addQuestion(tx wallet.Tx) ([]wallet.Event, error) {
	examID, err := argUint(tx.Args, 0)
	if err != nil {
		return nil, err
	}
	text, _ := tx.Args[1].(string)
	options, err := argStrings(tx.Args, 2)
	if err != nil {
		return nil, err
	}
	correct, err := argInt(tx.Args, 3)
	if err != nil {
		return nil, err
	}
	if _, err := b.store.ExamByID(examID); err != nil {
		return nil, revert(RevertInvalidExam)
	}
	if correct < 0 || int(correct) >= len(options) {
		return nil, revert("Invalid correct option")
	}
	return nil, b.store.AppendQuestions(examID, []core.Question{{
		Text:          text,
		Options:       options,
		CorrectOption: int(correct),
	}})
}

// addQuestionsBatch is all-or-nothing: any malformed entry reverts the whole
// batch before a single question is stored.
func (b *Backend) addQuestionsBatch(examID uint64, args []any) ([]wallet.Event, error) {
	texts, err := argStrings(args, 0)
	if err != nil {
		return nil, err
	}
	optionLists, err := argStringMatrix(args, 1)
	if err != nil {
		return nil, err
	}
	correct, err := argInts(args, 2)
	if err != nil {
		return nil, err
	}
	if len(texts) != len(optionLists) || len(texts) != len(correct) {
		return nil, revert("Batch length mismatch")
	}
	if _, err := b.store.ExamByID(examID); err != nil {
		return nil, revert(RevertInvalidExam)
	}
	qs := make([]core.Question, len(texts))
	for i := range texts {
		if correct[i] < 0 || correct[i] >= len(optionLists[i]) {
			return nil, revert("Invalid correct option")
		}
		qs[i] = core.Question{
			Text:          texts[i],
			Options:       optionLists[i],
			CorrectOption: correct[i],
		}
	}
	return nil, b.store.AppendQuestions(examID, qs)
}

func (b *Backend) enroll(tx wallet.Tx) ([]wallet.Event, error) {
	courseID, err := argUint(tx.Args, 0)
	if err != nil {
		return nil, err
	}
	if _, err := b.store.CourseAt(courseID); err != nil {
		return nil, revert(RevertInvalidCourse)
	}
	enrolled, err := b.store.IsEnrolled(tx.From.String(), courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, revert(RevertAlreadyEnrolled)
	}
	if err := b.store.Enroll(tx.From.String(), courseID); err != nil {
		return nil, err
	}
	return []wallet.Event{{
		Name:   "StudentEnrolled",
		Values: map[string]any{"courseId": courseID, "student": tx.From},
	}}, nil
}

func (b *Backend) submitAnswers(examID uint64, student core.Address, answers []int) ([]wallet.Event, error) {
	exam, err := b.store.ExamByID(examID)
	if err != nil {
		return nil, revert(RevertInvalidExam)
	}
	enrolled, err := b.store.IsEnrolled(student.String(), exam.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, revert(RevertNotEnrolled)
	}
	if submitted, err := b.store.HasSubmission(examID, student.String()); err != nil {
		return nil, err
	} else if submitted {
		return nil, revert(RevertAlreadySubmitted)
	}
	now := b.clock()
	if exam.Ended(now) {
		return nil, revert(RevertExamEnded)
	}
	questions, err := b.store.Questions(examID)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(questions) {
		return nil, revert("Answer count mismatch")
	}
	var score uint64
	for i, q := range questions {
		if answers[i] == q.CorrectOption {
			score++
		}
	}
	profile, _, err := b.store.Profile(student.String())
	if err != nil {
		return nil, err
	}
	err = b.store.AppendSubmission(examID, core.Submission{
		Student:        student,
		StudentName:    profile.Name,
		MatricNumber:   profile.MatricNumber,
		Score:          score,
		SubmissionTime: now.Unix(),
	})
	if err != nil {
		return nil, err
	}
	return []wallet.Event{{
		Name: "ExamSubmitted",
		Values: map[string]any{
			"student":      student,
			"matricNumber": profile.MatricNumber,
			"score":        score,
		},
	}}, nil
}

func (b *Backend) clock() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now()
}

func argUint(args []any, i int) (uint64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch n := args[i].(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("argument %d: cannot decode %T as uint", i, args[i])
	}
}

func argInt(args []any, i int) (int64, error) {
	n, err := argUint(args, i)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func argAddress(args []any, i int) (core.Address, error) {
	if i >= len(args) {
		return core.ZeroAddress, fmt.Errorf("missing argument %d", i)
	}
	switch a := args[i].(type) {
	case core.Address:
		return a, nil
	case string:
		return core.ParseAddress(a)
	default:
		return core.ZeroAddress, fmt.Errorf("argument %d: cannot decode %T as address", i, args[i])
	}
}

func argStrings(args []any, i int) ([]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].([]string)
	if !ok {
		return nil, fmt.Errorf("argument %d: cannot decode %T as []string", i, args[i])
	}
	return s, nil
}

func argStringMatrix(args []any, i int) ([][]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].([][]string)
	if !ok {
		return nil, fmt.Errorf("argument %d: cannot decode %T as [][]string", i, args[i])
	}
	return s, nil
}

func argInts(args []any, i int) ([]int, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].([]int)
	if !ok {
		return nil, fmt.Errorf("argument %d: cannot decode %T as []int", i, args[i])
	}
	return s, nil
}
