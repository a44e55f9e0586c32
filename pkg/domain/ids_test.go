package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "certus/pkg/domain-errors"
)

// IDsSuite exercises the typed identifier primitives.
//
// Justification: identifiers cross every boundary in the core; parse-time
// validation and nil semantics must stay stable.
type IDsSuite struct {
	suite.Suite
}

func TestIDsSuite(t *testing.T) {
	suite.Run(t, new(IDsSuite))
}

func (s *IDsSuite) TestParseRoundTrip() {
	raw := uuid.New().String()

	subjectID, err := ParseSubjectID(raw)
	s.Require().NoError(err)
	s.Equal(raw, subjectID.String())

	holdID, err := ParseHoldID(raw)
	s.Require().NoError(err)
	s.Equal(raw, holdID.String())
}

func (s *IDsSuite) TestParseRejectsEmpty() {
	_, err := ParseProofID("")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *IDsSuite) TestParseRejectsMalformed() {
	_, err := ParseTenantID("not-a-uuid")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *IDsSuite) TestNilSemantics() {
	var zero SubjectID
	s.True(zero.IsNil())

	// Nil UUIDs parse cleanly; services reject them via IsNil.
	parsed, err := ParseSubjectID(uuid.Nil.String())
	s.Require().NoError(err)
	s.True(parsed.IsNil())

	s.False(NewSubjectID().IsNil())
}

func (s *IDsSuite) TestNewIDsAreUnique() {
	seen := make(map[string]bool)
	for range 64 {
		id := NewProofID().String()
		s.False(seen[id], "duplicate proof ID generated")
		seen[id] = true
	}
}
