package statusmanager

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParichayaHQ/credence/internal/vc"
)

const testSeed = "DsnrHBHFQP0ab59dQELh3uEwy7i5ArcOTwxkwRO2hM87CBRGWBEChPO7AjmwkAZ2"
const testOrigin = "https://credentials.example.edu/status"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "statusmanager_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	m, err := New(context.Background(), Options{
		StatusCredentialSiteOrigin: testOrigin,
		DataDir:                    tmpDir,
		DIDMethod:                  "key",
		DIDSeed:                    testSeed,
		SignStatusCredential:       true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
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

func TestNewBootstrapsEmptyDeploymentCleanly(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	state, err := m.GetDatabaseState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Valid, state.Error)
}

func TestNewRejectsOriginChangeOnReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "statusmanager_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	m, err := New(context.Background(), Options{
		StatusCredentialSiteOrigin: testOrigin,
		DataDir:                    tmpDir,
		DIDMethod:                  "key",
		DIDSeed:                    testSeed,
	})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = New(context.Background(), Options{
		StatusCredentialSiteOrigin: "https://different.example.org/status",
		DataDir:                    tmpDir,
		DIDMethod:                  "key",
		DIDSeed:                    testSeed,
	})
	assert.Error(t, err)
}

func TestManagerEndToEndAllocateRevokeVerify(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	issued, err := m.AllocateRevocationStatus(ctx, credentialFixture("https://credentials.example.edu/3732", "did:example:abcdef"))
	require.NoError(t, err)
	status := issued.CredentialStatus.(vc.CredentialStatus)
	assert.Equal(t, "1", status.StatusListIndex)

	_, err = m.RevokeCredential(ctx, issued.ID)
	require.NoError(t, err)

	info, err := m.GetStatus(ctx, issued.ID)
	require.NoError(t, err)
	assert.False(t, info[vc.PurposeRevocation].Valid)

	credInfo, err := m.GetCredentialInfo(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, credInfo.ID)

	state, err := m.GetDatabaseState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Valid, state.Error)
}

func TestManagerRejectsCompactJWT(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AllocateStatus(ctx, "header.payload.signature", []string{vc.PurposeRevocation})
	assert.Error(t, err)
}

func TestManagerAcceptsJSONDecodedCredential(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	raw := map[string]interface{}{
		"@context": []interface{}{vc.Context20},
		"id":       "https://credentials.example.edu/json-decoded",
		"type":     []interface{}{vc.TypeVC},
		"issuer":   "did:key:zissuer",
		"credentialSubject": map[string]interface{}{
			"id": "did:example:json-decoded",
		},
	}

	out, err := m.AllocateRevocationStatus(ctx, raw)
	require.NoError(t, err)
	status := out.CredentialStatus.(vc.CredentialStatus)
	assert.Equal(t, vc.PurposeRevocation, status.StatusPurpose)
}
