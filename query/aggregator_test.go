package query

import (
	"context"
	"fmt"
	"testing"

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
	lmsAddr  = testAddr(0x99)
	lecturer = testAddr(1)
	student  = testAddr(2)
)

// setupBinding seeds a simulated chain and returns a connected LMS binding
// over it.
func setupBinding(t *testing.T) (chain.Store, *contract.LMSBinding) {
	t.Helper()
	store := memory.NewStore()
	backend := chain.NewBackend(store, lmsAddr, []core.Address{student}, nil)
	session := wallet.NewSession(backend, nil)
	t.Cleanup(session.Close)

	id, err := session.Connect(context.Background())
	require.NoError(t, err)
	handle, err := contract.Aggregate(id, lmsAddr)
	require.NoError(t, err)
	return store, contract.NewLMSBinding(handle)
}

func seedCourses(t *testing.T, store chain.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.AppendCourse(core.Course{
			Title:        fmt.Sprintf("Course %d", i),
			Description:  "desc",
			Lecturer:     lecturer,
			LecturerName: "Dr. Grace",
		})
		require.NoError(t, err)
	}
}

func TestListAllCoursesOrder(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 25)

	courses, err := New(nil).ListAllCourses(context.Background(), lms)
	require.NoError(t, err)
	require.Len(t, courses, 25)
	for i, c := range courses {
		assert.Equal(t, uint64(i), c.CourseID)
		assert.Equal(t, fmt.Sprintf("Course %d", i), c.Title)
	}
}

func TestListAllCoursesEmpty(t *testing.T) {
	_, lms := setupBinding(t)

	courses, err := New(nil).ListAllCourses(context.Background(), lms)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}

func TestListAllCoursesNilBinding(t *testing.T) {
	courses, err := New(nil).ListAllCourses(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}

func TestListAllCoursesDegradesOnError(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	courses, err := New(nil).ListAllCourses(ctx, lms)
	require.NoError(t, err, "read failures degrade, never surface")
	assert.Empty(t, courses)
}

func TestListExamsForCourse(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 2)
	for i := 0; i < 4; i++ {
		_, err := store.AppendExam(core.Exam{
			Title:    fmt.Sprintf("Exam %d", i),
			CourseID: uint64(i % 2),
			Duration: 3600,
			Lecturer: lecturer,
		})
		require.NoError(t, err)
	}

	exams, err := New(nil).ListExamsForCourse(context.Background(), lms, 0)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, uint64(0), exams[0].ExamID)
	assert.Equal(t, uint64(2), exams[1].ExamID)

	none, err := New(nil).ListExamsForCourse(context.Background(), lms, 7)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAllExams(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 1)
	for i := 0; i < 3; i++ {
		_, err := store.AppendExam(core.Exam{Title: fmt.Sprintf("Exam %d", i), Duration: 60})
		require.NoError(t, err)
	}

	exams, err := New(nil).ListAllExams(context.Background(), lms)
	require.NoError(t, err)
	require.Len(t, exams, 3)
	for i, e := range exams {
		assert.Equal(t, uint64(i), e.ExamID)
	}
}

func TestListCoursesOwnedBy(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 2)
	_, err := store.AppendCourse(core.Course{Title: "Other", Lecturer: testAddr(5)})
	require.NoError(t, err)

	owned, err := New(nil).ListCoursesOwnedBy(context.Background(), lms, lecturer)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	for _, c := range owned {
		assert.Equal(t, lecturer, c.Lecturer)
	}
}

func TestEnrollmentStatus(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 3)
	require.NoError(t, store.Enroll(student.String(), 1))

	status := New(nil).EnrollmentStatus(context.Background(), lms, student, []uint64{0, 1, 2})
	assert.Equal(t, map[uint64]bool{0: false, 1: true, 2: false}, status)
}

func TestEnrollmentStatusFailsClosed(t *testing.T) {
	store, lms := setupBinding(t)
	seedCourses(t, store, 2)
	require.NoError(t, store.Enroll(student.String(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := New(nil).EnrollmentStatus(ctx, lms, student, []uint64{0, 1})
	assert.Equal(t, map[uint64]bool{0: false, 1: false}, status,
		"failed queries must read as not enrolled")
}
