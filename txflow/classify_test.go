package txflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainlms-net/lms/wallet"
)

func TestClassifyRevertReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect Category
	}{
		{"nil", nil, CategoryNone},
		{"already enrolled", revertLike(wallet.CodeRevert, "Already enrolled"), CategoryAlreadyEnrolled},
		{"already submitted", revertLike(wallet.CodeRevert, "Already submitted"), CategoryAlreadySubmitted},
		{"exam ended", revertLike(wallet.CodeRevert, "Exam ended"), CategoryExamEnded},
		{"exam time has ended", revertLike(wallet.CodeRevert, "Exam time has ended"), CategoryExamEnded},
		{"not enrolled", revertLike(wallet.CodeRevert, "Not enrolled"), CategoryNotEnrolled},
		{"invalid course", revertLike(wallet.CodeRevert, "Invalid course"), CategoryInvalidCourse},
		{"case insensitive", revertLike(wallet.CodeRevert, "ALREADY ENROLLED"), CategoryAlreadyEnrolled},
		{"unknown revert", revertLike(wallet.CodeRevert, "Something odd"), CategoryUnknown},
		{"plain error", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Classify(tt.err))
		})
	}
}

func TestClassifyUserRejected(t *testing.T) {
	err := &wallet.Error{Code: wallet.CodeUserRejected, Message: "User rejected the request"}
	assert.Equal(t, CategoryUserRejected, Classify(err))
	assert.Equal(t, CategoryUserRejected, Classify(fmt.Errorf("send: %w", err)))
}

func TestClassifyValidationWins(t *testing.T) {
	// Validation failures classify as such even when the text would match
	// a revert rule.
	err := validationErr("already enrolled twice over", nil)
	assert.Equal(t, CategoryValidation, Classify(err))
}

func TestClassifyMessageFallback(t *testing.T) {
	// No structured reason: the nested provider message decides.
	err := &wallet.Error{Code: wallet.CodeRevert, Message: "execution reverted: Not enrolled"}
	assert.Equal(t, CategoryNotEnrolled, Classify(err))
}

func TestClassifyNetwork(t *testing.T) {
	err := &wallet.Error{Code: wallet.CodeNetwork, Message: "connection refused"}
	assert.Equal(t, CategoryNetwork, Classify(err))

	// A network-coded error carrying a revert reason is still a revert.
	err = &wallet.Error{Code: wallet.CodeNetwork, Reason: "Exam ended"}
	assert.Equal(t, CategoryExamEnded, Classify(err))
}

func TestClassifyWrappedErrors(t *testing.T) {
	inner := revertLike(wallet.CodeRevert, "Already submitted")
	assert.Equal(t, CategoryAlreadySubmitted, Classify(fmt.Errorf("submit: %w", inner)))
}

func TestBenign(t *testing.T) {
	assert.True(t, CategoryAlreadyEnrolled.Benign())
	assert.True(t, CategoryAlreadySubmitted.Benign())
	assert.False(t, CategoryExamEnded.Benign())
	assert.False(t, CategoryValidation.Benign())
	assert.False(t, CategoryNone.Benign())
}

func TestMessageFor(t *testing.T) {
	assert.Equal(t, "Already enrolled in this course", messageFor(CategoryAlreadyEnrolled, nil))
	assert.Equal(t, "bad input here", messageFor(CategoryValidation, validationErr("bad input here", nil)))
	assert.Equal(t, "boom", messageFor(CategoryUnknown, errors.New("boom")))
}
