package alloc

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/signer"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const testSeed = "DsnrHBHFQP0ab59dQELh3uEwy7i5ArcOTwxkwRO2hM87CBRGWBEChPO7AjmwkAZ2"
const testOrigin = "https://credentials.example.edu/status"

func newTestAllocator(t *testing.T) (*Allocator, store.Store) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "alloc_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.NewSQLiteStore(tmpDir, 200)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sgn, err := signer.New(signer.Options{DIDMethod: "key", DIDSeed: testSeed})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.CreateConfig(ctx, nil, &store.ConfigRecord{
		ID:                         "cfg-1",
		StatusCredentialSiteOrigin: testOrigin,
		StatusCredentialInfo: map[string]store.PurposeCounters{
			vc.PurposeRevocation: {StatusCredentialsCounter: 1, LatestStatusCredentialID: mustRandomID(t)},
			vc.PurposeSuspension: {StatusCredentialsCounter: 1, LatestStatusCredentialID: mustRandomID(t)},
		},
	}))

	a := New(s, sgn, Options{Origin: testOrigin, SignStatusCredential: true})
	return a, s
}

func mustRandomID(t *testing.T) string {
	t.Helper()
	id, err := RandomID()
	require.NoError(t, err)
	return id
}

func credentialFixture(id, subjectDID string) *vc.VerifiableCredential {
	return &vc.VerifiableCredential{
		Context: []string{vc.Context20},
		ID:      id,
		Type:    []string{vc.TypeVC},
		Issuer:  "did:key:zissuer",
		CredentialSubject: map[string]interface{}{
			"id": subjectDID,
		},
	}
}

func TestAllocateAssignsFirstIndex(t *testing.T) {
	a, _ := newTestAllocator(t)
	ctx := context.Background()

	out, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/3732", "did:example:abcdef"))
	require.NoError(t, err)

	status, ok := out.CredentialStatus.(vc.CredentialStatus)
	require.True(t, ok, "expected a single credentialStatus object")
	assert.Equal(t, "1", status.StatusListIndex)
	assert.Equal(t, vc.TypeStatusEntry, status.Type)
	assert.Equal(t, vc.PurposeRevocation, status.StatusPurpose)
}

func TestAllocateRejectsOpaqueCredentialID(t *testing.T) {
	a, _ := newTestAllocator(t)
	ctx := context.Background()

	_, err := a.AllocateRevocationStatus(ctx, credentialFixture("not-a-url-uuid-or-did", "did:example:abcdef"))
	assert.Error(t, err)
	assert.True(t, merrors.IsBadRequest(err))
}

func TestAllocateAcceptsDIDAndUUIDShapedIDs(t *testing.T) {
	a, _ := newTestAllocator(t)
	ctx := context.Background()

	_, err := a.AllocateRevocationStatus(ctx, credentialFixture("did:key:z6Mkexample", "did:example:abcdef"))
	require.NoError(t, err)

	_, err = a.AllocateSuspensionStatus(ctx, credentialFixture(uuid.NewString(), "did:example:abcdef"))
	require.NoError(t, err)

	_, err = a.AllocateSuspensionStatus(ctx, credentialFixture("urn:uuid:"+uuid.NewString(), "did:example:ghijkl"))
	require.NoError(t, err)
}

func TestAllocateThreeCredentialsMonotonicIndices(t *testing.T) {
	a, _ := newTestAllocator(t)
	ctx := context.Background()

	ids := []string{"3732", "6274", "0285"}
	var scid string
	for i, id := range ids {
		out, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/"+id, "did:example:"+id))
		require.NoError(t, err)
		status := out.CredentialStatus.(vc.CredentialStatus)
		assert.Equal(t, []string{"1", "2", "3"}[i], status.StatusListIndex)
		if i == 0 {
			scid = status.StatusListCredential
		} else {
			assert.Equal(t, scid, status.StatusListCredential)
		}
	}
}

func TestAllocateReAllocationIsNoOp(t *testing.T) {
	a, s := newTestAllocator(t)
	ctx := context.Background()

	for _, id := range []string{"3732", "6274", "0285"} {
		_, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/"+id, "did:example:"+id))
		require.NoError(t, err)
	}

	out, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/6274", "did:example:6274"))
	require.NoError(t, err)
	status := out.CredentialStatus.(vc.CredentialStatus)
	assert.Equal(t, "2", status.StatusListIndex)

	cfg, err := s.GetConfig(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CredentialsIssuedCounter)
}

func TestAllocateRollsOverAtCapacity(t *testing.T) {
	a, s := newTestAllocator(t)
	ctx := context.Background()

	cfg, err := s.GetConfig(ctx, nil)
	require.NoError(t, err)
	info := cfg.StatusCredentialInfo[vc.PurposeRevocation]
	require.NoError(t, s.CreateStatusCredential(ctx, nil, &store.StatusCredentialRecord{ID: info.LatestStatusCredentialID, Purpose: vc.PurposeRevocation}))
	info.LatestCredentialsIssuedCounter = ListSize
	cfg.StatusCredentialInfo[vc.PurposeRevocation] = info
	require.NoError(t, s.UpdateConfig(ctx, nil, cfg))

	out, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/overflow", "did:example:overflow"))
	require.NoError(t, err)
	status := out.CredentialStatus.(vc.CredentialStatus)
	assert.Equal(t, "1", status.StatusListIndex)

	all, err := s.GetAllStatusCredentialsByPurpose(ctx, nil, vc.PurposeRevocation)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAllocateConcurrent(t *testing.T) {
	a, s := newTestAllocator(t)
	ctx := context.Background()

	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			id := "https://credentials.example.edu/concurrent-" + strconv.Itoa(i)
			_, err := a.AllocateRevocationStatus(ctx, credentialFixture(id, "did:example:concurrent"))
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	cfg, err := s.GetConfig(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, n, cfg.CredentialsIssuedCounter)
}
