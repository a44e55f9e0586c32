package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "proof not found"}
		s.Equal("proof not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeLegalHoldBlocked}
		s.Equal("legal_hold_blocked", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeExecutorFailure, Message: "executor unreachable", Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "subject not found"}
		err2 := &Error{Code: CodeNotFound, Message: "hold not found"}
		s.True(errors.Is(err1, err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeLegalHoldBlocked}
		err2 := &Error{Code: CodeVerificationFailed}
		s.False(errors.Is(err1, err2))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code", func() {
		inner := New(CodeLegalHoldBlocked, "hold hd_1 active")
		err := Wrap(inner, CodeInternal, "erasure gate failed")
		s.True(HasCode(err, CodeLegalHoldBlocked))
		s.False(HasCode(err, CodeInternal))
	})

	s.Run("applies code to plain errors", func() {
		err := Wrap(errors.New("dial tcp: timeout"), CodeTimeout, "locator timed out")
		s.True(HasCode(err, CodeTimeout))
	})

	s.Run("WrapWithCode overrides existing code", func() {
		inner := New(CodeInternal, "store unavailable")
		err := WrapWithCode(inner, CodeLegalHoldBlocked, "hold check failed closed")
		s.True(HasCode(err, CodeLegalHoldBlocked))
		s.ErrorIs(err, inner)
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})

	s.Run("finds code through wrapping layers", func() {
		inner := New(CodeInvariantViolation, "merkle root mismatch")
		outer := Wrap(inner, CodeInternal, "verification aborted")
		s.True(HasCode(outer, CodeInvariantViolation))
	})
}
