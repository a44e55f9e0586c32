// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "certus/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SubjectID where a HoldID is expected.
type (
	TenantID  uuid.UUID
	SubjectID uuid.UUID
	RequestID uuid.UUID
	ErasureID uuid.UUID
	ProofID   uuid.UUID
	HoldID    uuid.UUID
)

// New functions - mint fresh identifiers. Random UUIDv4 satisfies the
// "opaque, globally-unique" contract for every identifier in the core.

func NewTenantID() TenantID   { return TenantID(uuid.New()) }
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }
func NewRequestID() RequestID { return RequestID(uuid.New()) }
func NewErasureID() ErasureID { return ErasureID(uuid.New()) }
func NewProofID() ProofID     { return ProofID(uuid.New()) }
func NewHoldID() HoldID       { return HoldID(uuid.New()) }

// Parse functions - use at trust boundaries (callers, stored payloads).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseSubjectID(s string) (SubjectID, error) {
	id, err := parseUUID(s, "subject ID")
	return SubjectID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseErasureID(s string) (ErasureID, error) {
	id, err := parseUUID(s, "erasure request ID")
	return ErasureID(id), err
}

func ParseProofID(s string) (ProofID, error) {
	id, err := parseUUID(s, "proof ID")
	return ProofID(id), err
}

func ParseHoldID(s string) (HoldID, error) {
	id, err := parseUUID(s, "hold ID")
	return HoldID(id), err
}

// String methods - for logging and audit payloads.

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id ErasureID) String() string { return uuid.UUID(id).String() }
func (id ProofID) String() string   { return uuid.UUID(id).String() }
func (id HoldID) String() string    { return uuid.UUID(id).String() }

// Text marshalling - stored payloads and JSON encodings carry the canonical
// UUID string form, never the raw bytes.

func (id TenantID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id SubjectID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ErasureID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProofID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id HoldID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenantID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SubjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseSubjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(text []byte) error {
	parsed, err := ParseRequestID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ErasureID) UnmarshalText(text []byte) error {
	parsed, err := ParseErasureID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ProofID) UnmarshalText(text []byte) error {
	parsed, err := ParseProofID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *HoldID) UnmarshalText(text []byte) error {
	parsed, err := ParseHoldID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ErasureID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProofID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id HoldID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
