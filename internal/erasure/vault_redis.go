package erasure

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/sentinel"
)

const (
	proofKeyPrefix   = "certus:proofs:"
	unverifiedSetKey = "certus:proofs:unverified"
)

// RedisVault persists proofs in Redis. Proofs are written with SETNX so an
// existing proof can never be overwritten; the unverified set indexes proofs
// awaiting a passing verification for the re-verification worker.
type RedisVault struct {
	client redis.Cmdable
}

// NewRedisVault constructs a Redis-backed proof vault.
func NewRedisVault(client redis.Cmdable) *RedisVault {
	return &RedisVault{client: client}
}

func proofKey(tenantID id.TenantID, proofID id.ProofID) string {
	return proofKeyPrefix + tenantID.String() + ":" + proofID.String()
}

func unverifiedMember(tenantID id.TenantID, proofID id.ProofID) string {
	return tenantID.String() + "/" + proofID.String()
}

func (v *RedisVault) Store(ctx context.Context, proof *Proof) error {
	payload, err := json.Marshal(proof)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode proof")
	}
	stored, err := v.client.SetNX(ctx, proofKey(proof.TenantID, proof.ID), payload, 0).Result()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store proof")
	}
	if !stored {
		return dErrors.New(dErrors.CodeConflict, "proof "+proof.ID.String()+" already stored; proofs are append-only")
	}
	if proof.Verification == nil || !proof.Verification.Result {
		if err := v.client.SAdd(ctx, unverifiedSetKey, unverifiedMember(proof.TenantID, proof.ID)).Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "index unverified proof")
		}
	}
	return nil
}

func (v *RedisVault) Get(ctx context.Context, tenantID id.TenantID, proofID id.ProofID) (*Proof, error) {
	payload, err := v.client.Get(ctx, proofKey(tenantID, proofID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load proof")
	}
	var proof Proof
	if err := json.Unmarshal(payload, &proof); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode proof")
	}
	return &proof, nil
}

func (v *RedisVault) SetVerification(ctx context.Context, tenantID id.TenantID, proofID id.ProofID, outcome VerificationOutcome) error {
	proof, err := v.Get(ctx, tenantID, proofID)
	if err != nil {
		return err
	}
	proof.Verification = &outcome

	payload, err := json.Marshal(proof)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode proof")
	}
	// Plain SET is fine here: the proof body is immutable once stored, so
	// concurrent writers can only race on the verification record itself.
	if err := v.client.Set(ctx, proofKey(tenantID, proofID), payload, 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update proof verification")
	}

	member := unverifiedMember(tenantID, proofID)
	if outcome.Result {
		err = v.client.SRem(ctx, unverifiedSetKey, member).Err()
	} else {
		err = v.client.SAdd(ctx, unverifiedSetKey, member).Err()
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "index proof verification state")
	}
	return nil
}

func (v *RedisVault) ListUnverified(ctx context.Context) ([]*Proof, error) {
	members, err := v.client.SMembers(ctx, unverifiedSetKey).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list unverified proofs")
	}
	proofs := make([]*Proof, 0, len(members))
	for _, member := range members {
		tenantRaw, proofRaw, ok := strings.Cut(member, "/")
		if !ok {
			continue
		}
		tenantID, err := id.ParseTenantID(tenantRaw)
		if err != nil {
			continue
		}
		proofID, err := id.ParseProofID(proofRaw)
		if err != nil {
			continue
		}
		proof, err := v.Get(ctx, tenantID, proofID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, proof)
	}
	return proofs, nil
}
