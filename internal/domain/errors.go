package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceUnavailable  = errors.New("record source unavailable")
	ErrIntegrityViolation = errors.New("embedding store integrity violation")
	ErrStoreMissing       = errors.New("embedding store not found, run 'bookrec build' first")
	ErrEncoderMismatch    = errors.New("encoder does not match embedding store")
	ErrInvalidStore       = errors.New("embedding store is misaligned")
)

// IntegrityError reports stored ids that could not be resolved against the
// current record source.
type IntegrityError struct {
	Unresolved int
	Total      int
	Sample     []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %d of %d stored isbns missing from record source (e.g. %v)",
		ErrIntegrityViolation, e.Unresolved, e.Total, e.Sample)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

type EncoderMismatchError struct {
	ArtifactModel     string
	EncoderModel      string
	ArtifactDimension int
	EncoderDimension  int
}

func (e *EncoderMismatchError) Error() string {
	return fmt.Sprintf("%s: artifact built with %q (dim %d), encoder is %q (dim %d)",
		ErrEncoderMismatch, e.ArtifactModel, e.ArtifactDimension, e.EncoderModel, e.EncoderDimension)
}

func (e *EncoderMismatchError) Is(target error) bool {
	return target == ErrEncoderMismatch
}
