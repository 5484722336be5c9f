package txflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlms-net/lms/chain"
	"github.com/chainlms-net/lms/chain/memory"
	"github.com/chainlms-net/lms/contract"
	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

func testAddr(b byte) core.Address {
	var a core.Address
	a[19] = b
	return a
}

var (
	lmsAddr      = testAddr(0x99)
	lecturerAddr = testAddr(1)
	studentAddr  = testAddr(2)
)

// actor is one connected account with its own provider view of the shared
// chain state.
type actor struct {
	backend *chain.Backend
	lms     *contract.LMSBinding
	source  contract.ExamSource
	flow    *Orchestrator
}

// connect binds an account to the shared store, the way two browser wallets
// would talk to the same deployment.
func connect(t *testing.T, store chain.Store, addr core.Address) *actor {
	t.Helper()
	backend := chain.NewBackend(store, lmsAddr, []core.Address{addr}, nil)
	session := wallet.NewSession(backend, nil)
	t.Cleanup(session.Close)

	id, err := session.Connect(context.Background())
	require.NoError(t, err)
	handle, err := contract.Aggregate(id, lmsAddr)
	require.NoError(t, err)
	lms := contract.NewLMSBinding(handle)

	source, err := contract.NewExamSource(contract.AggregateSource, id, lmsAddr)
	require.NoError(t, err)
	return &actor{backend: backend, lms: lms, source: source, flow: New(lms, source, nil)}
}

func registerLecturer(t *testing.T, a *actor) {
	t.Helper()
	res := a.flow.RegisterUser(context.Background(), RegisterInput{Name: "Dr. Grace", IsLecturer: true})
	require.True(t, res.OK(), "lecturer registration: %s", res.Message)
}

func registerStudent(t *testing.T, a *actor) {
	t.Helper()
	res := a.flow.RegisterUser(context.Background(), RegisterInput{
		Name:         "Ada",
		MatricNumber: "CSC/2021/001",
		MainCourse:   "Computer Science",
	})
	require.True(t, res.OK(), "student registration: %s", res.Message)
}

// createCourse returns the id of a fresh course owned by the lecturer.
func createCourse(t *testing.T, a *actor) uint64 {
	t.Helper()
	res := a.flow.CreateCourse(context.Background(), CreateCourseInput{Title: "Algorithms", Description: "Sorting and searching"})
	require.True(t, res.OK(), "create course: %s", res.Message)
	courses, err := a.lms.CourseCount(context.Background())
	require.NoError(t, err)
	return courses - 1
}

func TestRegisterAndProfileRoundTrip(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)

	res := lect.flow.RegisterUser(context.Background(), RegisterInput{Name: "Dr. Grace", IsLecturer: true})
	require.Equal(t, StateConfirmed, res.State)
	assert.NotEqual(t, core.Hash{}, res.TxHash)

	profile, err := lect.lms.Profile(context.Background(), lecturerAddr)
	require.NoError(t, err)
	assert.True(t, profile.Registered())
	assert.True(t, profile.IsLecturer)
	assert.Equal(t, "Dr. Grace", profile.Name)

	stud := connect(t, store, studentAddr)
	res = stud.flow.RegisterUser(context.Background(), RegisterInput{
		Name: "Ada", MatricNumber: "MAT001", MainCourse: "CS101",
	})
	require.Equal(t, StateConfirmed, res.State)

	profile, err = stud.lms.Profile(context.Background(), studentAddr)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "MAT001", profile.MatricNumber)
	assert.False(t, profile.IsLecturer)
	assert.Equal(t, "CS101", profile.MainCourse)
}

func TestRegisterValidationNeverReachesNetwork(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)

	// Missing name.
	res := lect.flow.RegisterUser(context.Background(), RegisterInput{MatricNumber: "X", MainCourse: "Y"})
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, CategoryValidation, res.Category)

	// Lecturer carrying student-only fields.
	res = lect.flow.RegisterUser(context.Background(), RegisterInput{
		Name: "Dr. Grace", IsLecturer: true, MatricNumber: "CSC/1",
	})
	assert.Equal(t, CategoryValidation, res.Category)

	assert.Zero(t, lect.backend.SendCount("registerUser"),
		"rejected input must not broadcast")
}

func TestStateTransitions(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)

	var states []State
	lect.flow.OnTransition = func(op string, s State) {
		states = append(states, s)
	}
	res := lect.flow.CreateCourse(context.Background(), CreateCourseInput{Title: "T", Description: "D"})
	require.Equal(t, StateConfirmed, res.State)
	assert.Equal(t, []State{StateSubmitting, StateAwaitingConfirmation, StateConfirmed}, states)
}

func TestCreateCourseRequiresLecturer(t *testing.T) {
	store := memory.NewStore()
	stud := connect(t, store, studentAddr)
	registerStudent(t, stud)

	res := stud.flow.CreateCourse(context.Background(), CreateCourseInput{Title: "T", Description: "D"})
	assert.Equal(t, StateFailed, res.State)
	assert.False(t, res.OK())
}

func TestCreateExamInfersNewID(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)
	courseID := createCourse(t, lect)

	res := lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: courseID, Title: "Midterm", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{courseID},
	})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, uint64(0), res.ExamID)

	res = lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: courseID, Title: "Final", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{courseID},
	})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, uint64(1), res.ExamID)
}

func TestCreateExamRejectsUnknownCourse(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)
	createCourse(t, lect)

	res := lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: 7, Title: "Midterm", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{0},
	})
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Zero(t, lect.backend.SendCount("createExam"))
}

func TestEnrollLifecycle(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)
	courseID := createCourse(t, lect)

	stud := connect(t, store, studentAddr)
	registerStudent(t, stud)

	in := EnrollInput{CourseID: courseID, KnownCourseIDs: []uint64{courseID}, Student: studentAddr}

	res := stud.flow.Enroll(context.Background(), in)
	require.Equal(t, StateConfirmed, res.State)
	assert.True(t, res.Enrolled)
	assert.Equal(t, 1, stud.backend.SendCount("enrollInCourse"))

	// The confirmed outcome is remembered: re-invoking resolves by read
	// without a second broadcast.
	res = stud.flow.Enroll(context.Background(), in)
	assert.Equal(t, CategoryAlreadyEnrolled, res.Category)
	assert.True(t, res.FromRead)
	assert.True(t, res.Enrolled)
	assert.Equal(t, 1, stud.backend.SendCount("enrollInCourse"))

	// A rebuilt orchestrator has no memory of the enrollment, like a fresh
	// process. Its first attempt reverts on chain as a benign already-done
	// state, after which it too resolves by read.
	reloaded := New(stud.lms, stud.source, nil)
	res = reloaded.Enroll(context.Background(), in)
	assert.Equal(t, CategoryAlreadyEnrolled, res.Category)
	assert.True(t, res.OK())
	assert.Equal(t, 2, stud.backend.SendCount("enrollInCourse"))

	res = reloaded.Enroll(context.Background(), in)
	assert.True(t, res.FromRead)
	assert.True(t, res.Enrolled)
	assert.Equal(t, 2, stud.backend.SendCount("enrollInCourse"))
}

func TestEnrollUnknownCourseIsValidation(t *testing.T) {
	store := memory.NewStore()
	stud := connect(t, store, studentAddr)
	registerStudent(t, stud)

	res := stud.flow.Enroll(context.Background(), EnrollInput{
		CourseID: 3, KnownCourseIDs: []uint64{0, 1}, Student: studentAddr,
	})
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Zero(t, stud.backend.SendCount("enrollInCourse"))
}

// seedExam builds a course with one exam and two questions, enrolls the
// student, and returns the exam ref.
func seedExam(t *testing.T, store chain.Store, lect, stud *actor) contract.ExamRef {
	t.Helper()
	registerLecturer(t, lect)
	courseID := createCourse(t, lect)

	res := lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: courseID, Title: "Midterm", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{courseID},
	})
	require.True(t, res.OK(), res.Message)
	ref := contract.ExamRef{ID: res.ExamID}

	drafts := []core.QuestionDraft{
		{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1},
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOption: 0},
	}
	res = lect.flow.AddQuestionsBatch(context.Background(), BatchAddInput{
		Ref: ref, Drafts: drafts, KnownExamIDs: []uint64{ref.ID},
	})
	require.True(t, res.OK(), res.Message)

	registerStudent(t, stud)
	enr := stud.flow.Enroll(context.Background(), EnrollInput{
		CourseID: courseID, KnownCourseIDs: []uint64{courseID}, Student: studentAddr,
	})
	require.True(t, enr.OK(), enr.Message)
	return ref
}

func TestSubmitAnswersScores(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)

	res := stud.flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: ref, Answers: []int{1, 1}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID},
	})
	require.Equal(t, StateConfirmed, res.State, res.Message)
	require.True(t, res.ScoreKnown)
	assert.Equal(t, uint64(1), res.Score, "one of two answers is correct")

	submitted, err := store.HasSubmission(ref.ID, studentAddr.String())
	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestSubmitAnswersValidation(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)

	// Unanswered question carried as -1.
	res := stud.flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: ref, Answers: []int{1, -1}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID},
	})
	assert.Equal(t, CategoryValidation, res.Category)

	res = stud.flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: ref, Answers: nil, Student: studentAddr, KnownExamIDs: []uint64{ref.ID},
	})
	assert.Equal(t, CategoryValidation, res.Category)

	assert.Zero(t, stud.backend.SendCount("submitAnswers"))
}

func TestSubmitAnswersEndedExamStopsLocally(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)

	stud.flow.SetClock(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	})
	res := stud.flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: ref, Answers: []int{1, 0}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID},
	})
	assert.Equal(t, CategoryExamEnded, res.Category)
	assert.Zero(t, stud.backend.SendCount("submitAnswers"),
		"closed window must be caught before broadcast")
}

func TestSetClockConcurrentWithSubmit(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)

	ended := func() time.Time { return time.Now().Add(2 * time.Hour) }
	stud.flow.SetClock(ended)
	in := SubmitInput{Ref: ref, Answers: []int{1, 0}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			stud.flow.SetClock(ended)
		}
	}()
	for i := 0; i < 100; i++ {
		res := stud.flow.SubmitAnswers(context.Background(), in)
		assert.Equal(t, CategoryExamEnded, res.Category)
	}
	<-done
}

func TestSubmitTwiceResolvesByRead(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)

	in := SubmitInput{Ref: ref, Answers: []int{1, 0}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID}}
	res := stud.flow.SubmitAnswers(context.Background(), in)
	require.Equal(t, StateConfirmed, res.State, res.Message)
	assert.Equal(t, 1, stud.backend.SendCount("submitAnswers"))

	// The confirmed submission is remembered: re-invoking fetches the
	// recorded submission instead of broadcasting again.
	res = stud.flow.SubmitAnswers(context.Background(), in)
	assert.True(t, res.FromRead)
	require.NotNil(t, res.Submission)
	assert.Equal(t, studentAddr, res.Submission.Student)
	assert.True(t, res.ScoreKnown)
	assert.Equal(t, 1, stud.backend.SendCount("submitAnswers"))

	// A rebuilt orchestrator broadcasts once, hits the benign revert, and
	// from then on resolves by read as well.
	reloaded := New(stud.lms, stud.source, nil)
	res = reloaded.SubmitAnswers(context.Background(), in)
	assert.Equal(t, CategoryAlreadySubmitted, res.Category)
	assert.True(t, res.OK())
	assert.Equal(t, 2, stud.backend.SendCount("submitAnswers"))

	res = reloaded.SubmitAnswers(context.Background(), in)
	assert.True(t, res.FromRead)
	assert.Equal(t, 2, stud.backend.SendCount("submitAnswers"))
}

func TestAddQuestionsBatchLeavesDraftsUntouched(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)
	courseID := createCourse(t, lect)
	res := lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: courseID, Title: "Midterm", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{courseID},
	})
	require.True(t, res.OK(), res.Message)

	drafts := []core.QuestionDraft{
		{Text: "Fine", Options: []string{"a", "b"}, CorrectOption: 0},
		{Text: "Broken", Options: []string{"a", "b"}, CorrectOption: 5},
	}
	want := make([]core.QuestionDraft, len(drafts))
	copy(want, drafts)

	out := lect.flow.AddQuestionsBatch(context.Background(), BatchAddInput{
		Ref: contract.ExamRef{ID: res.ExamID}, Drafts: drafts, KnownExamIDs: []uint64{res.ExamID},
	})
	assert.Equal(t, CategoryValidation, out.Category)
	assert.Equal(t, want, drafts, "failed batch must leave the drafts intact for retry")
	assert.Zero(t, lect.backend.SendCount("addQuestionsBatch"))

	qs, err := store.Questions(res.ExamID)
	require.NoError(t, err)
	assert.Empty(t, qs, "no partial batch may be stored")
}

func TestAddQuestion(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)
	courseID := createCourse(t, lect)
	res := lect.flow.CreateExam(context.Background(), CreateExamInput{
		CourseID: courseID, Title: "Midterm", DurationSeconds: 3600,
		KnownCourseIDs: []uint64{courseID},
	})
	require.True(t, res.OK(), res.Message)

	out := lect.flow.AddQuestion(context.Background(), AddQuestionInput{
		ExamID: res.ExamID, Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1,
		KnownExamIDs: []uint64{res.ExamID},
	})
	require.Equal(t, StateConfirmed, out.State, out.Message)

	qs, err := store.Questions(res.ExamID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, 1, qs[0].CorrectOption)

	// Out-of-range correct index is rejected before the network.
	out = lect.flow.AddQuestion(context.Background(), AddQuestionInput{
		ExamID: res.ExamID, Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 2,
		KnownExamIDs: []uint64{res.ExamID},
	})
	assert.Equal(t, CategoryValidation, out.Category)
}

func TestExamOpsRejectUnknownExam(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	registerLecturer(t, lect)

	// No exam with id 42 exists anywhere; the loaded exam list is empty.
	res := lect.flow.AddQuestion(context.Background(), AddQuestionInput{
		ExamID: 42, Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1,
	})
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Zero(t, lect.backend.SendCount("addQuestion"))

	res = lect.flow.AddQuestionsBatch(context.Background(), BatchAddInput{
		Ref:    contract.ExamRef{ID: 42},
		Drafts: []core.QuestionDraft{{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1}},
	})
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Zero(t, lect.backend.SendCount("addQuestionsBatch"))

	stud := connect(t, store, studentAddr)
	registerStudent(t, stud)
	res = stud.flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: contract.ExamRef{ID: 42}, Answers: []int{0}, Student: studentAddr,
		KnownExamIDs: []uint64{0, 1},
	})
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Zero(t, stud.backend.SendCount("submitAnswers"))
}

func TestStandaloneSourceSubmit(t *testing.T) {
	store := memory.NewStore()
	lect := connect(t, store, lecturerAddr)
	stud := connect(t, store, studentAddr)
	ref := seedExam(t, store, lect, stud)
	ref.Address = stud.backend.ExamContractAddress(ref.ID).String()

	// Rebuild the student's orchestrator over the standalone variant.
	session := wallet.NewSession(stud.backend, nil)
	t.Cleanup(session.Close)
	id, err := session.Connect(context.Background())
	require.NoError(t, err)
	source, err := contract.NewExamSource(contract.StandaloneSource, id, lmsAddr)
	require.NoError(t, err)
	flow := New(stud.lms, source, nil)

	res := flow.SubmitAnswers(context.Background(), SubmitInput{
		Ref: ref, Answers: []int{1, 0}, Student: studentAddr, KnownExamIDs: []uint64{ref.ID},
	})
	require.Equal(t, StateConfirmed, res.State, res.Message)
	assert.True(t, res.ScoreKnown)
	assert.Equal(t, uint64(1), res.Score)
}
