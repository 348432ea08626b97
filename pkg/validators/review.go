package validators

import (
	"errors"
	"unicode/utf8"
)

const maxCommentLength = 2000

var (
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrCommentTooLong   = errors.New("comment can't be longer than 2000 characters")
)

func RatingValidator(r int) error {
	if r < 1 || r > 5 {
		return ErrRatingOutOfRange
	}

	return nil
}

func CommentValidator(c string) error {
	if utf8.RuneCountInString(c) > maxCommentLength {
		return ErrCommentTooLong
	}

	return nil
}
