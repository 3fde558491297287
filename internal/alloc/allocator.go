// Package alloc is the transactional allocator: the core of spec §4.3
// that attaches a credentialStatus coordinate to a new credential,
// persists all five record kinds atomically inside a single
// store.ExecuteTransaction call, and rolls a fresh status credential
// once the current one has assigned all LIST_SIZE positions.
//
// Grounded on internal/statuslist/manager.go's AllocateIndex bookkeeping
// (a mutex-guarded nextIndex map, scan-then-expand on exhaustion),
// generalized from a single in-memory counter to per-purpose counters
// persisted in the Config row, with true multi-table transactional
// writes in place of the teacher's single in-memory map.
package alloc

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ParichayaHQ/credence/internal/did"
	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/signer"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const op = "alloc"

// ListSize is the fixed number of positions in every bitstring list.
const ListSize = 100_000

// MaxCredentialIDLength bounds UserCredential.id (spec §3 supplemental:
// the distilled spec bounds the field but never states the bound).
const MaxCredentialIDLength = 2048

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const idLength = 20

var supportedPurposes = []string{vc.PurposeRevocation, vc.PurposeSuspension}

// IndexAllocation selects how an Allocator picks the next free index
// within the current status list (spec §5 "optional index-allocator
// optimization").
type IndexAllocation string

const (
	// IndexAllocationSequential is the default: post-increment a single
	// counter under the Config row. What S1-S7 assume.
	IndexAllocationSequential IndexAllocation = "sequential"
	// IndexAllocationRandom samples uniformly from the remaining free
	// indices, for high-contention deployments where many concurrent
	// allocators would otherwise all race to increment the same
	// counter. Grounded in 48963270_EbonyLouis-ssi-service's
	// randomUniqueNum/GetNextStatusListRandomIndex Fisher-Yates sampler.
	IndexAllocationRandom IndexAllocation = "random"
)

// Options configures an Allocator's behavior.
type Options struct {
	// Origin is statusCredentialSiteOrigin, the URL prefix every
	// composed id is published under.
	Origin string
	// SignStatusCredential signs freshly rolled status credentials. The
	// zero value (false) leaves them unsigned.
	SignStatusCredential bool
	// SignUserCredential signs the caller's credential in place before
	// returning it. Defaults false.
	SignUserCredential bool
	// IndexAllocation selects the index-picking strategy. Defaults to
	// IndexAllocationSequential.
	IndexAllocation IndexAllocation
}

// Allocator is the transactional core of spec §4.3.
type Allocator struct {
	store store.Store
	sign  *signer.Adapter
	opts  Options
	pool  *indexPool
}

// New builds an Allocator over s, signing with sign per opts.
func New(s store.Store, sign *signer.Adapter, opts Options) *Allocator {
	if opts.IndexAllocation == "" {
		opts.IndexAllocation = IndexAllocationSequential
	}
	return &Allocator{store: s, sign: sign, opts: opts, pool: newIndexPool()}
}

var structValidator = validator.New()

// credentialShape is the minimal schema spec §4.3 step 3 checks.
type credentialShape struct {
	Context           []string    `validate:"required,min=1"`
	Type              []string    `validate:"required,min=1"`
	Issuer            interface{} `validate:"required"`
	CredentialSubject interface{} `validate:"required"`
}

// Allocate runs spec §4.3's algorithm inside a single transaction and
// returns credential with credentialStatus attached. Compact-JWT input
// is expected to already have been rejected by the caller (internal/
// statusmanager), since a JWT arrives as a bare string, not a
// *vc.VerifiableCredential.
func (a *Allocator) Allocate(ctx context.Context, credential *vc.VerifiableCredential, statusPurposes []string) (*vc.VerifiableCredential, error) {
	if len(statusPurposes) == 0 {
		return nil, merrors.New(merrors.KindBadRequest, op+".Allocate", "at least one status purpose is required")
	}
	for _, p := range statusPurposes {
		if p != vc.PurposeRevocation && p != vc.PurposeSuspension {
			return nil, merrors.New(merrors.KindBadRequest, op+".Allocate", "unknown status purpose: "+p)
		}
	}

	var result *vc.VerifiableCredential
	err := a.store.ExecuteTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		out, err := a.allocateInTx(ctx, tx, credential, statusPurposes)
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

// AllocateRevocationStatus is allocate(credential, [revocation]).
func (a *Allocator) AllocateRevocationStatus(ctx context.Context, credential *vc.VerifiableCredential) (*vc.VerifiableCredential, error) {
	return a.Allocate(ctx, credential, []string{vc.PurposeRevocation})
}

// AllocateSuspensionStatus is allocate(credential, [suspension]).
func (a *Allocator) AllocateSuspensionStatus(ctx context.Context, credential *vc.VerifiableCredential) (*vc.VerifiableCredential, error) {
	return a.Allocate(ctx, credential, []string{vc.PurposeSuspension})
}

// AllocateSupportedStatuses is allocate(credential, [revocation, suspension]).
func (a *Allocator) AllocateSupportedStatuses(ctx context.Context, credential *vc.VerifiableCredential) (*vc.VerifiableCredential, error) {
	return a.Allocate(ctx, credential, supportedPurposes)
}

func (a *Allocator) allocateInTx(ctx context.Context, tx store.Tx, input *vc.VerifiableCredential, statusPurposes []string) (*vc.VerifiableCredential, error) {
	// Step 2: strip any existing credentialStatus/proof; assign or
	// validate the credential id.
	credential := input.Clone()
	if credential.ID == "" {
		credential.ID = "urn:uuid:" + uuid.NewString()
	} else if len(credential.ID) > MaxCredentialIDLength {
		return nil, merrors.New(merrors.KindBadRequest, op, "credential id exceeds MAX_CREDENTIAL_ID_LENGTH")
	} else if !isShapedCredentialID(credential.ID) {
		return nil, merrors.New(merrors.KindBadRequest, op, "credential id is not a URL, UUID, or DID")
	}

	// Step 3: validate credential shape.
	shape := credentialShape{Context: credential.Context, Type: credential.Type, Issuer: credential.Issuer, CredentialSubject: credential.CredentialSubject}
	if err := structValidator.Struct(shape); err != nil {
		return nil, merrors.Wrap(merrors.KindBadRequest, op, "credential fails shape validation", err)
	}

	// Step 4: read Config; if a UserCredential already exists for this
	// id, compose credentialStatus from its existing statusInfo and
	// return without mutating any table.
	cfg, err := a.store.GetConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, merrors.New(merrors.KindMissingDatabase, op, "Config row is missing; bootstrap has not run")
	}

	existing, err := a.store.GetUserCredentialByID(ctx, tx, credential.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		credential.CredentialStatus = composeCredentialStatus(a.opts.Origin, existing.StatusInfo, statusPurposes)
		return credential, nil
	}

	// Step 5: allocate a coordinate per requested purpose, rolling over
	// to a fresh status credential when the current one is full.
	type allocation struct {
		purpose   string
		scid      string
		index     int
		isNewSCID bool
	}
	allocations := make([]allocation, 0, len(statusPurposes))

	for _, purpose := range statusPurposes {
		info, ok := cfg.StatusCredentialInfo[purpose]
		if !ok {
			return nil, merrors.New(merrors.KindBadRequest, op, "status purpose not configured: "+purpose)
		}

		isNew := false
		if info.LatestCredentialsIssuedCounter >= ListSize {
			isNew = true
			info.LatestCredentialsIssuedCounter = 0
			freshID, err := RandomID()
			if err != nil {
				return nil, err
			}
			info.LatestStatusCredentialID = freshID
			info.StatusCredentialsCounter++
		}

		info.LatestCredentialsIssuedCounter++
		counter := info.LatestCredentialsIssuedCounter
		index := counter
		if a.opts.IndexAllocation == IndexAllocationRandom {
			index = a.pool.indexForCounter(info.LatestStatusCredentialID, counter)
		}

		cfg.StatusCredentialInfo[purpose] = info
		allocations = append(allocations, allocation{purpose: purpose, scid: info.LatestStatusCredentialID, index: index, isNewSCID: isNew})
	}

	// Step 6: compose credentialStatus.
	statusInfo := make(map[string]store.StatusEntry, len(allocations))
	for _, alc := range allocations {
		statusInfo[alc.purpose] = store.StatusEntry{StatusCredentialID: alc.scid, StatusListIndex: alc.index, Valid: true}
	}
	credential.CredentialStatus = composeCredentialStatus(a.opts.Origin, statusInfo, statusPurposes)

	// Step 7: increment Config.credentialsIssuedCounter.
	cfg.CredentialsIssuedCounter++

	// Step 8: sign the caller's credential if configured to.
	if a.opts.SignUserCredential && a.sign != nil {
		if err := a.sign.Sign(credential); err != nil {
			return nil, err
		}
	}

	// Step 9: for every purpose that rolled over, compose and persist a
	// fresh status credential.
	for _, alc := range allocations {
		if !alc.isNewSCID {
			continue
		}
		issuerDID := ""
		if a.sign != nil {
			issuerDID = a.sign.IssuerDID()
		}
		statusCred, err := vc.ComposeStatusCredential(a.opts.Origin, issuerDID, alc.scid, alc.purpose, nil, ListSize)
		if err != nil {
			return nil, err
		}
		if a.opts.SignStatusCredential && a.sign != nil {
			if err := a.sign.Sign(statusCred); err != nil {
				return nil, err
			}
		}
		if err := a.store.CreateStatusCredential(ctx, tx, &store.StatusCredentialRecord{ID: alc.scid, Purpose: alc.purpose, Credential: statusCred}); err != nil {
			return nil, err
		}
	}

	// Step 10: create the UserCredential row.
	issuer, _ := credential.Issuer.(string)
	subject := ""
	if subj, ok := credential.CredentialSubject.(map[string]interface{}); ok {
		if id, ok := subj["id"].(string); ok {
			subject = id
		}
	}
	if err := a.store.CreateUserCredential(ctx, tx, &store.UserCredentialRecord{
		ID:         credential.ID,
		Issuer:     issuer,
		Subject:    subject,
		StatusInfo: statusInfo,
	}); err != nil {
		return nil, err
	}

	// Step 11: append an Event and create the CredentialEvent index for
	// each requested purpose (this credential is new, so always create).
	for _, purpose := range statusPurposes {
		eventID := uuid.NewString()
		if err := a.store.CreateEvent(ctx, tx, &store.EventRecord{
			ID:            eventID,
			Timestamp:     vc.NowISO8601(),
			CredentialID:  credential.ID,
			StatusPurpose: purpose,
			Valid:         true,
		}); err != nil {
			return nil, err
		}
		if err := a.store.CreateCredentialEvent(ctx, tx, &store.CredentialEventRecord{CredentialID: credential.ID, EventID: eventID}); err != nil {
			return nil, err
		}
	}

	// Step 12: persist Config.
	if err := a.store.UpdateConfig(ctx, tx, cfg); err != nil {
		return nil, err
	}

	// Step 13.
	return credential, nil
}

// isShapedCredentialID reports whether a caller-supplied credential id
// (spec §4.3 step 2) is URL-shaped, UUID-shaped, or DID-shaped. A bare
// opaque token is rejected even when it fits MaxCredentialIDLength.
func isShapedCredentialID(id string) bool {
	if strings.HasPrefix(id, "did:") {
		return did.IsValidDID(id)
	}
	if rest, ok := strings.CutPrefix(id, "urn:uuid:"); ok {
		_, err := uuid.Parse(rest)
		return err == nil
	}
	if _, err := uuid.Parse(id); err == nil {
		return true
	}
	if parsed, err := url.Parse(id); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return true
	}
	return false
}

// composeCredentialStatus builds the on-wire credentialStatus field per
// spec §6: a single object when exactly one purpose is present, else an
// array, ordered the same as requestedOrder.
func composeCredentialStatus(origin string, statusInfo map[string]store.StatusEntry, requestedOrder []string) interface{} {
	entries := make([]vc.CredentialStatus, 0, len(requestedOrder))
	for _, purpose := range requestedOrder {
		entry, ok := statusInfo[purpose]
		if !ok {
			continue
		}
		entries = append(entries, vc.CredentialStatus{
			ID:                   origin + "/" + entry.StatusCredentialID + "#" + strconv.Itoa(entry.StatusListIndex),
			Type:                 vc.TypeStatusEntry,
			StatusPurpose:        purpose,
			StatusListCredential: origin + "/" + entry.StatusCredentialID,
			StatusListIndex:      strconv.Itoa(entry.StatusListIndex),
		})
	}
	if len(entries) == 1 {
		return entries[0]
	}
	return entries
}

// RandomID draws the spec's 20-char mixed-case status-credential id
// uniformly from [A-Za-z0-9]; Store.Create still guards with a unique
// key constraint since collisions, though astronomically unlikely,
// aren't impossible. Exported so internal/statusmanager's bootstrap can
// mint the initial per-purpose status credentials the same way
// roll-over does.
func RandomID() (string, error) {
	var b strings.Builder
	b.Grow(idLength)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", merrors.Wrap(merrors.KindInternalServer, op, "failed to generate random id", err)
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String(), nil
}
