package integrity

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParichayaHQ/credence/internal/alloc"
	"github.com/ParichayaHQ/credence/internal/signer"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/update"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const testSeed = "DsnrHBHFQP0ab59dQELh3uEwy7i5ArcOTwxkwRO2hM87CBRGWBEChPO7AjmwkAZ2"
const testOrigin = "https://credentials.example.edu/status"

func newTestStore(t *testing.T) (store.Store, *alloc.Allocator, *update.Updater) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "integrity_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.NewSQLiteStore(tmpDir, 200)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sgn, err := signer.New(signer.Options{DIDMethod: "key", DIDSeed: testSeed})
	require.NoError(t, err)

	ctx := context.Background()
	info := map[string]store.PurposeCounters{}
	for _, purpose := range []string{vc.PurposeRevocation, vc.PurposeSuspension} {
		scid, err := alloc.RandomID()
		require.NoError(t, err)
		credential, err := vc.ComposeStatusCredential(testOrigin, sgn.IssuerDID(), scid, purpose, nil, alloc.ListSize)
		require.NoError(t, err)
		require.NoError(t, s.CreateStatusCredential(ctx, nil, &store.StatusCredentialRecord{ID: scid, Purpose: purpose, Credential: credential}))
		info[purpose] = store.PurposeCounters{StatusCredentialsCounter: 1, LatestStatusCredentialID: scid}
	}
	require.NoError(t, s.CreateConfig(ctx, nil, &store.ConfigRecord{
		ID:                         "cfg-1",
		StatusCredentialSiteOrigin: testOrigin,
		StatusCredentialInfo:       info,
	}))

	a := alloc.New(s, sgn, alloc.Options{Origin: testOrigin, SignStatusCredential: true})
	u := update.New(s, sgn, update.Options{SignStatusCredential: true})
	return s, a, u
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

func TestGetDatabaseStateValidOnCleanDeployment(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	state, err := GetDatabaseState(ctx, s, testOrigin)
	require.NoError(t, err)
	assert.True(t, state.Valid)
}

func TestGetDatabaseStateValidAfterAllocateAndRevoke(t *testing.T) {
	s, a, u := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"3732", "6274", "0285"} {
		_, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/"+id, "did:example:"+id))
		require.NoError(t, err)
	}
	_, err := u.RevokeCredential(ctx, "https://credentials.example.edu/3732")
	require.NoError(t, err)

	state, err := GetDatabaseState(ctx, s, testOrigin)
	require.NoError(t, err)
	assert.True(t, state.Valid, state.Error)
}

func TestGetDatabaseStateDetectsOriginMismatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	state, err := GetDatabaseState(ctx, s, "https://wrong.example.org/status")
	require.NoError(t, err)
	assert.False(t, state.Valid)
	assert.Contains(t, state.Error, "origin")
}

func TestGetDatabaseStateDetectsCounterMismatch(t *testing.T) {
	s, a, _ := newTestStore(t)
	ctx := context.Background()

	_, err := a.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/1111", "did:example:1111"))
	require.NoError(t, err)

	cfg, err := s.GetConfig(ctx, nil)
	require.NoError(t, err)
	cfg.CredentialsIssuedCounter = 99
	require.NoError(t, s.UpdateConfig(ctx, nil, cfg))

	state, err := GetDatabaseState(ctx, s, testOrigin)
	require.NoError(t, err)
	assert.False(t, state.Valid)
	assert.Contains(t, state.Error, "credentialsIssuedCounter")
}
