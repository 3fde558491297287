package statusmanager

import (
	"context"

	"github.com/google/uuid"

	"github.com/ParichayaHQ/credence/internal/alloc"
	"github.com/ParichayaHQ/credence/internal/integrity"
	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/signer"
	"github.com/ParichayaHQ/credence/internal/statuslog"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/update"
	"github.com/ParichayaHQ/credence/internal/vc"
)

var log = statuslog.For("statusmanager")

var allPurposes = []string{vc.PurposeRevocation, vc.PurposeSuspension}

// Manager is the status-manager facade: createStatusManager's return
// value, carrying the store, signer, allocator, updater, and the
// in-process concurrency limiter described in spec §5.
type Manager struct {
	store   store.Store
	sign    *signer.Adapter
	alloc   *alloc.Allocator
	update  *update.Updater
	limiter *limiter
	origin  string
}

// New bootstraps a Manager: opens the store, creates the schema and
// Config row if the deployment is empty, else verifies integrity and
// the immutability of statusCredentialSiteOrigin (invariant 6).
func New(ctx context.Context, opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s, err := store.New(storeConfig(&opts))
	if err != nil {
		return nil, err
	}

	sign, err := signer.New(signer.Options{
		DIDMethod: opts.DIDMethod,
		DIDSeed:   opts.DIDSeed,
		DIDWebURL: opts.DIDWebURL,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store: s,
		sign:  sign,
		alloc: alloc.New(s, sign, alloc.Options{
			Origin:               opts.StatusCredentialSiteOrigin,
			SignStatusCredential: opts.SignStatusCredential,
			SignUserCredential:   opts.SignUserCredential,
			IndexAllocation:      opts.IndexAllocation,
		}),
		update: update.New(s, sign, update.Options{
			SignStatusCredential: opts.SignStatusCredential,
		}),
		limiter: newLimiter(opts.ConcurrencyLimit),
		origin:  opts.StatusCredentialSiteOrigin,
	}

	if err := m.bootstrap(ctx, &opts); err != nil {
		s.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) bootstrap(ctx context.Context, opts *Options) error {
	cfg, err := m.store.GetConfig(ctx, nil)
	if err != nil {
		return err
	}
	if cfg == nil {
		log.WithField("origin", opts.StatusCredentialSiteOrigin).Info("bootstrapping empty deployment")
		return m.bootstrapEmpty(ctx, opts)
	}

	log.Info("verifying existing deployment")
	if cfg.StatusCredentialSiteOrigin != opts.StatusCredentialSiteOrigin {
		return merrors.New(merrors.KindInvalidDatabaseState, op+".New",
			"configured origin does not match the persisted statusCredentialSiteOrigin; origin is immutable for the lifetime of a deployment")
	}

	state, err := integrity.GetDatabaseState(ctx, m.store, opts.StatusCredentialSiteOrigin)
	if err != nil {
		return err
	}
	if !state.Valid {
		return merrors.New(merrors.KindInvalidDatabaseState, op+".New", "integrity check failed: "+state.Error)
	}
	return nil
}

func (m *Manager) bootstrapEmpty(ctx context.Context, opts *Options) error {
	cfg := &store.ConfigRecord{
		ID:                         uuid.NewString(),
		StatusCredentialSiteOrigin: opts.StatusCredentialSiteOrigin,
		StatusCredentialInfo:       make(map[string]store.PurposeCounters, len(allPurposes)),
	}

	issuerDID := ""
	if m.sign != nil {
		issuerDID = m.sign.IssuerDID()
	}

	return m.store.ExecuteTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, purpose := range allPurposes {
			scid, err := alloc.RandomID()
			if err != nil {
				return err
			}
			credential, err := vc.ComposeStatusCredential(opts.StatusCredentialSiteOrigin, issuerDID, scid, purpose, nil, alloc.ListSize)
			if err != nil {
				return err
			}
			if opts.SignStatusCredential && m.sign != nil {
				if err := m.sign.Sign(credential); err != nil {
					return err
				}
			}
			if err := m.store.CreateStatusCredential(ctx, tx, &store.StatusCredentialRecord{ID: scid, Purpose: purpose, Credential: credential}); err != nil {
				return err
			}
			cfg.StatusCredentialInfo[purpose] = store.PurposeCounters{LatestStatusCredentialID: scid, StatusCredentialsCounter: 1}
		}
		return m.store.CreateConfig(ctx, tx, cfg)
	})
}

// AllocateStatus is allocate(credential, purposes). credential is
// interface{} rather than *vc.VerifiableCredential because the
// programmatic surface spec §6 describes receives credentials in
// whatever shape a caller handed them across process boundaries
// (parsed JSON-LD object, or a compact-JWT string); this is the one
// place that distinction matters, since the Allocator itself only ever
// operates on an already-typed *vc.VerifiableCredential (spec
// Non-goals: this module is not a verifier and does not support
// compact-JWT credentials).
func (m *Manager) AllocateStatus(ctx context.Context, credential interface{}, purposes []string) (*vc.VerifiableCredential, error) {
	if vc.IsCompactJWT(credential) {
		return nil, merrors.New(merrors.KindBadRequest, op+".AllocateStatus", "compact-JWT credentials are not supported")
	}
	typed, err := asVerifiableCredential(credential)
	if err != nil {
		return nil, err
	}

	var out *vc.VerifiableCredential
	err = m.limiter.Execute(ctx, func() error {
		result, err := m.alloc.Allocate(ctx, typed, purposes)
		out = result
		return err
	})
	return out, err
}

// AllocateRevocationStatus is allocate(credential, [revocation]).
func (m *Manager) AllocateRevocationStatus(ctx context.Context, credential interface{}) (*vc.VerifiableCredential, error) {
	return m.AllocateStatus(ctx, credential, []string{vc.PurposeRevocation})
}

// AllocateSuspensionStatus is allocate(credential, [suspension]).
func (m *Manager) AllocateSuspensionStatus(ctx context.Context, credential interface{}) (*vc.VerifiableCredential, error) {
	return m.AllocateStatus(ctx, credential, []string{vc.PurposeSuspension})
}

// AllocateSupportedStatuses is allocate(credential, [revocation, suspension]).
func (m *Manager) AllocateSupportedStatuses(ctx context.Context, credential interface{}) (*vc.VerifiableCredential, error) {
	return m.AllocateStatus(ctx, credential, allPurposes)
}

// asVerifiableCredential normalizes credential, which may already be a
// *vc.VerifiableCredential or a map[string]interface{} decoded from
// JSON, into the typed shape the Allocator operates on. Compact-JWT
// input is expected to have already been rejected by the caller.
func asVerifiableCredential(credential interface{}) (*vc.VerifiableCredential, error) {
	switch v := credential.(type) {
	case *vc.VerifiableCredential:
		return v, nil
	case vc.VerifiableCredential:
		return &v, nil
	case map[string]interface{}:
		data, err := vc.Marshal(v)
		if err != nil {
			return nil, err
		}
		var typed vc.VerifiableCredential
		if err := vc.Unmarshal(data, &typed); err != nil {
			return nil, err
		}
		return &typed, nil
	default:
		return nil, merrors.New(merrors.KindBadRequest, op+".AllocateStatus", "credential has an unrecognized shape")
	}
}

// RevokeCredential is updateStatus(id, revocation, true).
func (m *Manager) RevokeCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return m.UpdateStatus(ctx, credentialID, vc.PurposeRevocation, true)
}

// SuspendCredential is updateStatus(id, suspension, true).
func (m *Manager) SuspendCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return m.UpdateStatus(ctx, credentialID, vc.PurposeSuspension, true)
}

// UnsuspendCredential is updateStatus(id, suspension, false).
func (m *Manager) UnsuspendCredential(ctx context.Context, credentialID string) (*vc.VerifiableCredential, error) {
	return m.UpdateStatus(ctx, credentialID, vc.PurposeSuspension, false)
}

// UpdateStatus is updateStatus({id, purpose, invalidate}).
func (m *Manager) UpdateStatus(ctx context.Context, credentialID, statusPurpose string, invalidate bool) (*vc.VerifiableCredential, error) {
	var out *vc.VerifiableCredential
	err := m.limiter.Execute(ctx, func() error {
		result, err := m.update.UpdateStatus(ctx, credentialID, statusPurpose, invalidate)
		out = result
		return err
	})
	return out, err
}

// GetStatus is getStatus(id).
func (m *Manager) GetStatus(ctx context.Context, credentialID string) (map[string]store.StatusEntry, error) {
	return m.update.GetStatus(ctx, credentialID)
}

// GetCredentialInfo is getCredentialInfo(id).
func (m *Manager) GetCredentialInfo(ctx context.Context, credentialID string) (*store.UserCredentialRecord, error) {
	rec, err := m.store.GetUserCredentialByID(ctx, nil, credentialID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, merrors.New(merrors.KindNotFound, op+".GetCredentialInfo", "no credential with id "+credentialID)
	}
	return rec, nil
}

// GetStatusCredential fetches the named status credential, the store
// behind cmd/statusmanagerd's GET /{statusCredentialId} endpoint.
func (m *Manager) GetStatusCredential(ctx context.Context, statusCredentialID string) (*store.StatusCredentialRecord, error) {
	rec, err := m.store.GetStatusCredentialByID(ctx, nil, statusCredentialID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, merrors.New(merrors.KindNotFound, op+".GetStatusCredential", "no status credential with id "+statusCredentialID)
	}
	return rec, nil
}

// GetDatabaseState is getDatabaseState().
func (m *Manager) GetDatabaseState(ctx context.Context) (*integrity.State, error) {
	return integrity.GetDatabaseState(ctx, m.store, m.origin)
}

// Close releases the Manager's backing store connection.
func (m *Manager) Close() error {
	return m.store.Close()
}
