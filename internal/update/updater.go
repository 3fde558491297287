// Package update is the transactional updater: spec §4.4's core that
// flips a credential's status bit, re-signs the status credential, and
// appends to the event log, all inside a single store.ExecuteTransaction
// call.
//
// Grounded on internal/statuslist/manager.go's UpdateStatus (decode
// bitstring, flip bit, re-encode, persist, invalidate cache), extended
// from a single-table update to the full five-table transactional write
// spec §4.4 requires.
package update

import (
	"context"

	"github.com/google/uuid"

	"github.com/ParichayaHQ/credence/internal/codec"
	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/signer"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const op = "update"

// Options configures an Updater's signing behavior.
type Options struct {
	// SignStatusCredential re-signs a status credential after every bit
	// flip. The zero value (false) leaves it unsigned.
	SignStatusCredential bool
}

// Updater is the transactional core of spec §4.4.
type Updater struct {
	store store.Store
	sign  *signer.Adapter
	opts  Options
}

// New builds an Updater over s, signing with sign per opts.
func New(s store.Store, sign *signer.Adapter, opts Options) *Updater {
	return &Updater{store: s, sign: sign, opts: opts}
}

// UpdateStatus runs spec §4.4's algorithm inside a single transaction
// and returns the status credential after the flip (unchanged if the
// call was a no-op).
func (u *Updater) UpdateStatus(ctx context.Context, credentialID, statusPurpose string, invalidate bool) (*vc.VerifiableCredential, error) {
	var result *vc.VerifiableCredential
	err := u.store.ExecuteTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		out, err := u.updateInTx(ctx, tx, credentialID, statusPurpose, invalidate)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevokeCredential is updateStatus(id, revocation, true).
func (u *Updater) RevokeCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return u.UpdateStatus(ctx, credentialID, vc.PurposeRevocation, true)
}

// SuspendCredential is updateStatus(id, suspension, true).
func (u *Updater) SuspendCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return u.UpdateStatus(ctx, credentialID, vc.PurposeSuspension, true)
}

// UnsuspendCredential is updateStatus(id, suspension, false).
func (u *Updater) UnsuspendCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return u.UpdateStatus(ctx, credentialID, vc.PurposeSuspension, false)
}

// GetStatus reads a UserCredential's statusInfo map.
func (u *Updater) GetStatus(ctx context.Context, credentialID string) (map[string]store.StatusEntry, error) {
	rec, err := u.store.GetUserCredentialByID(ctx, nil, credentialID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, merrors.New(merrors.KindNotFound, op+".GetStatus", "no credential with id "+credentialID)
	}
	return rec.StatusInfo, nil
}

func (u *Updater) updateInTx(ctx context.Context, tx store.Tx, credentialID, statusPurpose string, invalidate bool) (*vc.VerifiableCredential, error) {
	// Step 1: read UserCredential.
	userCred, err := u.store.GetUserCredentialByID(ctx, tx, credentialID)
	if err != nil {
		return nil, err
	}
	if userCred == nil {
		return nil, merrors.New(merrors.KindNotFound, op, "no credential with id "+credentialID)
	}

	// Step 2: reject an unknown purpose for this credential.
	entry, ok := userCred.StatusInfo[statusPurpose]
	if !ok {
		return nil, merrors.New(merrors.KindBadRequest, op, "credential has no status entry for purpose "+statusPurpose)
	}

	// Step 3: a revoked credential can never be re-activated, for any
	// purpose.
	if revocation, ok := userCred.StatusInfo[vc.PurposeRevocation]; ok && !revocation.Valid {
		if statusPurpose != vc.PurposeRevocation || invalidate == false {
			return nil, merrors.New(merrors.KindBadRequest, op, "credential is revoked and cannot be reactivated")
		}
	}

	// Step 4: no-op if already in the requested state.
	if entry.Valid == !invalidate {
		return u.currentStatusCredential(ctx, tx, entry.StatusCredentialID)
	}

	// Step 5: read the StatusCredential row.
	statusCredRec, err := u.store.GetStatusCredentialByID(ctx, tx, entry.StatusCredentialID)
	if err != nil {
		return nil, err
	}
	if statusCredRec == nil {
		return nil, merrors.New(merrors.KindBadRequest, op, "status credential not found: "+entry.StatusCredentialID)
	}
	if vc.IsCompactJWT(statusCredRec.Credential) {
		return nil, merrors.New(merrors.KindBadRequest, op, "status credential is a compact JWT, not supported")
	}
	statusCred, err := asCredential(statusCredRec.Credential)
	if err != nil {
		return nil, err
	}

	// Step 6: decode, flip the bit, re-encode.
	list, err := vc.DecodedList(statusCred)
	if err != nil {
		return nil, err
	}
	if err := list.SetStatus(entry.StatusListIndex, invalidate); err != nil {
		return nil, err
	}
	encoded, err := codec.EncodeList(list)
	if err != nil {
		return nil, err
	}

	// Step 7: re-compose (update validFrom) and optionally re-sign.
	vc.SetEncodedList(statusCred, encoded)
	statusCred.ValidFrom = vc.NowISO8601()
	statusCred.Proof = nil
	if u.opts.SignStatusCredential && u.sign != nil {
		if err := u.sign.Sign(statusCred); err != nil {
			return nil, err
		}
	}

	// Step 8: update the StatusCredential row.
	statusCredRec.Credential = statusCred
	if err := u.store.UpdateStatusCredential(ctx, tx, entry.StatusCredentialID, statusCredRec); err != nil {
		return nil, err
	}

	// Step 9: update the UserCredential row.
	entry.Valid = !invalidate
	userCred.StatusInfo[statusPurpose] = entry
	if err := u.store.UpdateUserCredential(ctx, tx, credentialID, userCred); err != nil {
		return nil, err
	}

	// Step 10: append a new Event and replace the CredentialEvent index.
	eventID := uuid.NewString()
	if err := u.store.CreateEvent(ctx, tx, &store.EventRecord{
		ID:            eventID,
		Timestamp:     vc.NowISO8601(),
		CredentialID:  credentialID,
		StatusPurpose: statusPurpose,
		Valid:         entry.Valid,
	}); err != nil {
		return nil, err
	}
	if err := u.store.ReplaceCredentialEvent(ctx, tx, &store.CredentialEventRecord{CredentialID: credentialID, EventID: eventID}); err != nil {
		return nil, err
	}

	// Step 11.
	return statusCred, nil
}

func (u *Updater) currentStatusCredential(ctx context.Context, tx store.Tx, scid string) (*vc.VerifiableCredential, error) {
	rec, err := u.store.GetStatusCredentialByID(ctx, tx, scid)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, merrors.New(merrors.KindBadRequest, op, "status credential not found: "+scid)
	}
	return asCredential(rec.Credential)
}

// asCredential normalizes a StatusCredentialRecord.Credential field,
// which round-trips through JSON as map[string]interface{} once it has
// been persisted and re-read, back into a *vc.VerifiableCredential.
func asCredential(raw interface{}) (*vc.VerifiableCredential, error) {
	switch v := raw.(type) {
	case *vc.VerifiableCredential:
		return v, nil
	case vc.VerifiableCredential:
		return &v, nil
	default:
		data, err := vc.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var credential vc.VerifiableCredential
		if err := vc.Unmarshal(data, &credential); err != nil {
			return nil, err
		}
		return &credential, nil
	}
}
