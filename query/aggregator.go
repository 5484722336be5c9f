// Package query materializes collections from contracts that expose only
// count + indexed-getter primitives.
package query

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chainlms-net/lms/contract"
	"github.com/chainlms-net/lms/core"
)

// readConcurrency bounds the number of overlapping indexed reads per batch.
const readConcurrency = 8

// Aggregator performs bulk index-driven reads. Read failures degrade to
// empty collections plus a logged diagnostic; they never block the caller.
type Aggregator struct {
	logger *slog.Logger
}

// New creates an aggregator.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// ListAllCourses reads courseCount and fetches every course concurrently,
// returning them in index order. A nil binding (wallet not connected) or a
// failed count read yields an empty slice, not an error: the caller is
// simply not ready yet.
func (a *Aggregator) ListAllCourses(ctx context.Context, lms *contract.LMSBinding) ([]core.Course, error) {
	if lms == nil {
		a.logger.Warn("course listing skipped, no contract binding")
		return []core.Course{}, nil
	}
	count, err := lms.CourseCount(ctx)
	if err != nil {
		a.logger.Warn("course count read failed", "error", err)
		return []core.Course{}, nil
	}

	courses := make([]core.Course, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i := uint64(0); i < count; i++ {
		i := i
		g.Go(func() error {
			c, err := lms.CourseAt(gctx, i)
			if err != nil {
				return err
			}
			courses[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("course fetch failed", "error", err)
		return []core.Course{}, nil
	}
	return courses, nil
}

// ListExamsForCourse resolves the course's exam-id list and fetches each
// exam, preserving on-chain id order. A course with no exams yields an
// empty slice.
func (a *Aggregator) ListExamsForCourse(ctx context.Context, lms *contract.LMSBinding, courseID uint64) ([]core.Exam, error) {
	if lms == nil {
		a.logger.Warn("exam listing skipped, no contract binding")
		return []core.Exam{}, nil
	}
	ids, err := lms.CourseExamIDs(ctx, courseID)
	if err != nil {
		a.logger.Warn("course exam ids read failed", "course", courseID, "error", err)
		return []core.Exam{}, nil
	}
	return a.fetchExams(ctx, lms, ids)
}

// ListAllExams fetches every exam known to the contract in id-list order.
func (a *Aggregator) ListAllExams(ctx context.Context, lms *contract.LMSBinding) ([]core.Exam, error) {
	if lms == nil {
		a.logger.Warn("exam listing skipped, no contract binding")
		return []core.Exam{}, nil
	}
	ids, err := lms.AllExamIDs(ctx)
	if err != nil {
		a.logger.Warn("exam id list read failed", "error", err)
		return []core.Exam{}, nil
	}
	return a.fetchExams(ctx, lms, ids)
}

func (a *Aggregator) fetchExams(ctx context.Context, lms *contract.LMSBinding, ids []uint64) ([]core.Exam, error) {
	exams := make([]core.Exam, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			e, err := lms.ExamAt(gctx, id)
			if err != nil {
				return err
			}
			exams[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("exam fetch failed", "error", err)
		return []core.Exam{}, nil
	}
	return exams, nil
}

// ListCoursesOwnedBy filters the full course list down to a lecturer's own
// courses. The address match ignores hex case.
func (a *Aggregator) ListCoursesOwnedBy(ctx context.Context, lms *contract.LMSBinding, lecturer core.Address) ([]core.Course, error) {
	all, err := a.ListAllCourses(ctx, lms)
	if err != nil {
		return nil, err
	}
	owned := make([]core.Course, 0, len(all))
	for _, c := range all {
		if strings.EqualFold(c.Lecturer.String(), lecturer.String()) {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

// EnrollmentStatus issues one membership query per course and maps courseId
// to enrolled. A failed individual query counts as not enrolled (fail
// closed) and is logged, never surfaced as a blocking error.
func (a *Aggregator) EnrollmentStatus(ctx context.Context, lms *contract.LMSBinding, student core.Address, courseIDs []uint64) map[uint64]bool {
	status := make(map[uint64]bool, len(courseIDs))
	if lms == nil {
		a.logger.Warn("enrollment check skipped, no contract binding")
		for _, id := range courseIDs {
			status[id] = false
		}
		return status
	}
	results := make([]bool, len(courseIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, id := range courseIDs {
		i, id := i, id
		g.Go(func() error {
			enrolled, err := lms.IsEnrolled(gctx, student, id)
			if err != nil {
				a.logger.Warn("enrollment query failed, treating as not enrolled",
					"course", id, "student", student, "error", err)
				return nil
			}
			results[i] = enrolled
			return nil
		})
	}
	g.Wait()
	for i, id := range courseIDs {
		status[id] = results[i]
	}
	return status
}
