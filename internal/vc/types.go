// Package vc carries the W3C Verifiable Credential shapes this module
// issues credentialStatus entries into and the status-credential factory
// that composes BitstringStatusList credentials.
//
// Grounded on the teacher's internal/vc/types.go VerifiableCredential
// struct, extended to the VC 2.0 field set (validFrom/validUntil in place
// of issuanceDate) and the richer CredentialStatus shape found in
// _examples/other_examples/63aa0f50_dc4eu-vc__...credential.go.go, which
// matches this module's on-wire credentialStatus exactly. JWT
// representation, Selective Disclosure JWT, presentation exchange, and
// verification are dropped: this module is not a verifier and does not
// support compact-JWT credentials (see spec Non-goals).
package vc

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/ParichayaHQ/credence/internal/merrors"
)

const (
	Context20          = "https://www.w3.org/ns/credentials/v2"
	TypeVC             = "VerifiableCredential"
	TypeStatusListCred = "BitstringStatusListCredential"
	TypeStatusListSub  = "BitstringStatusList"
	TypeStatusEntry    = "BitstringStatusListEntry"

	PurposeRevocation = "revocation"
	PurposeSuspension = "suspension"
)

// VerifiableCredential is the subset of the VC 2.0 data model this module
// reads and writes. Issuer/CredentialSubject are left as interface{}
// because callers may pass either a bare DID string or an object form.
type VerifiableCredential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id,omitempty"`
	Type              []string          `json:"type"`
	Issuer            interface{}       `json:"issuer"`
	ValidFrom         string            `json:"validFrom,omitempty"`
	ValidUntil        string            `json:"validUntil,omitempty"`
	CredentialSubject interface{}       `json:"credentialSubject"`
	CredentialStatus  interface{}       `json:"credentialStatus,omitempty"`
	CredentialSchema  interface{}       `json:"credentialSchema,omitempty"`
	Proof             interface{}       `json:"proof,omitempty"`
}

// CredentialStatus is one entry of the BitstringStatusList profile's
// credentialStatus object, matching spec §6's on-wire shape exactly.
type CredentialStatus struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	StatusPurpose        string `json:"statusPurpose"`
	StatusListIndex      string `json:"statusListIndex"`
	StatusListCredential string `json:"statusListCredential"`
}

// StatusListSubject is credentialSubject for a status credential.
type StatusListSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose"`
	EncodedList   string `json:"encodedList"`
}

// Clone returns a deep-enough copy of the credential for the Allocator's
// "strip any existing credentialStatus and proof" step: the slices/maps a
// caller could still hold a reference to are not mutated in place.
func (vc *VerifiableCredential) Clone() *VerifiableCredential {
	clone := *vc
	clone.Context = append([]string{}, vc.Context...)
	clone.Type = append([]string{}, vc.Type...)
	clone.CredentialStatus = nil
	clone.Proof = nil
	return &clone
}

// IsCompactJWT reports whether raw is a string, the form a compact-JWT
// credential takes, rather than a JSON-LD object; it does not inspect
// the string's segments. internal/statusmanager's AllocateStatus and the
// Updater reject these with BadRequest.
func IsCompactJWT(raw interface{}) bool {
	_, isString := raw.(string)
	return isString
}

// Marshal/Unmarshal route every credential (de)serialization through
// goccy/go-json, a drop-in faster codec than encoding/json for the
// credential-marshal workload on the allocate/update hot path.
func Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, "vc.Marshal", "failed to marshal", err)
	}
	return data, nil
}

func Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return merrors.Wrap(merrors.KindInternalServer, "vc.Unmarshal", "failed to unmarshal", err)
	}
	return nil
}

// NowISO8601 returns the current instant formatted as validFrom/Event
// timestamps are: RFC3339 in UTC.
func NowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
