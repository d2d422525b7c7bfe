package study

import "github.com/pkg/errors"

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrLanguageNotFound = errors.New("language not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrStudentNotFound  = errors.New("student not found")

	ErrSubjectExists      = errors.New("subject already exists")
	ErrLanguageExists     = errors.New("language already exists")
	ErrStudentExists      = errors.New("student already registered in this pool")
	ErrNotEnoughWaiting   = errors.New("not enough waiting students to form a group")
	ErrSameGroup          = errors.New("groups must be different")
	ErrIncompatibleGroups = errors.New("merged groups would not match the group composition")
	ErrEmptyGroup         = errors.New("group has no members")
	ErrRatingOutOfRange   = errors.New("rating out of range")
	ErrMarksOutOfRange    = errors.New("marks out of range")
	ErrInvalidStudentID   = errors.New("student ids must be positive")
	ErrInvalidGroupID     = errors.New("group ids must be positive")
	ErrInvalidCourseCode  = errors.New("invalid course code")
)

var notFoundErrs = []error{ErrSubjectNotFound, ErrLanguageNotFound, ErrGroupNotFound, ErrStudentNotFound}

// IsNotFound reports whether err is caused by a missing subject, language, group or student.
func IsNotFound(err error) bool {
	for _, nf := range notFoundErrs {
		if errors.Is(err, nf) {
			return true
		}
	}
	return false
}
