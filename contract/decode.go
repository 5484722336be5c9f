package contract

import (
	"fmt"
	"math"

	"github.com/chainlms-net/lms/core"
)

// Return-value decoding. The provider boundary hands back loosely typed
// values; these helpers normalize the numeric shapes different transports
// produce for the same contract type.

func firstResult(rets []any) (any, error) {
	if len(rets) == 0 {
		return nil, fmt.Errorf("empty contract return")
	}
	return rets[0], nil
}

func decodeUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for uint", n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for uint", n)
		}
		return uint64(n), nil
	case float64:
		if math.IsNaN(n) || n < 0 {
			return 0, fmt.Errorf("cannot decode %v as uint", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("cannot decode %T as uint64", v)
	}
}

func decodeInt64(v any) (int64, error) {
	n, err := decodeUint64(v)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func decodeBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("cannot decode %T as bool", v)
	}
	return b, nil
}

func decodeUint64Slice(v any) ([]uint64, error) {
	switch s := v.(type) {
	case []uint64:
		return s, nil
	case []any:
		out := make([]uint64, len(s))
		for i, e := range s {
			n, err := decodeUint64(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode %T as []uint64", v)
	}
}

func decodeCourse(v any) (core.Course, error) {
	c, ok := v.(core.Course)
	if !ok {
		return core.Course{}, fmt.Errorf("cannot decode %T as Course", v)
	}
	return c, nil
}

func decodeExam(v any) (core.Exam, error) {
	e, ok := v.(core.Exam)
	if !ok {
		return core.Exam{}, fmt.Errorf("cannot decode %T as Exam", v)
	}
	return e, nil
}

func decodeProfile(v any) (core.UserProfile, error) {
	p, ok := v.(core.UserProfile)
	if !ok {
		return core.UserProfile{}, fmt.Errorf("cannot decode %T as UserProfile", v)
	}
	return p, nil
}

func decodeQuestions(v any) ([]core.Question, error) {
	q, ok := v.([]core.Question)
	if !ok {
		return nil, fmt.Errorf("cannot decode %T as []Question", v)
	}
	return q, nil
}

func decodeSubmissions(v any) ([]core.Submission, error) {
	s, ok := v.([]core.Submission)
	if !ok {
		return nil, fmt.Errorf("cannot decode %T as []Submission", v)
	}
	return s, nil
}
