// Package signer is the signing adapter: given (didMethod, didSeed,
// didWebUrl?) it derives {issuerDid, verificationMethod} once at bootstrap
// and signs credentials in place afterward. Grounded in
// internal/did/key.go's KeyMethodResolver for did:key and extended with
// did:web in internal/did/web.go.
package signer

import (
	"context"
	"crypto/ed25519"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ParichayaHQ/credence/internal/did"
	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const op = "signer"

// Adapter signs credentials on behalf of a single configured issuer
// identity, derived once at construction from didMethod/didSeed(/didWebUrl).
type Adapter struct {
	issuerDID          string
	verificationMethod string
	privateKey         ed25519.PrivateKey
	keyManager         did.KeyManager
}

// Options configures a signing adapter; mirrors spec §6's bootstrap
// signing options.
type Options struct {
	DIDMethod string // "key" or "web"
	DIDSeed   string // multibase, >= 32 bytes once decoded
	DIDWebURL string // required when DIDMethod == "web"
}

// New derives the issuer DID and signing key from opts.
func New(opts Options) (*Adapter, error) {
	seed, err := did.DecodeSeed(opts.DIDSeed)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInvalidDidSeed, op, "failed to decode didSeed", err)
	}
	if len(seed) < ed25519.SeedSize {
		return nil, merrors.New(merrors.KindInvalidDidSeed, op, "didSeed decodes to fewer than 32 bytes")
	}
	seed = seed[:ed25519.SeedSize]

	keyManager := did.NewDefaultKeyManager()

	switch opts.DIDMethod {
	case "key":
		resolver := did.NewKeyMethodResolver(keyManager)
		result, err := resolver.Create(context.Background(), &did.CreationOptions{
			KeyType: did.KeyTypeEd25519,
			Seed:    seed,
		})
		if err != nil {
			return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to create did:key identity", err)
		}
		return &Adapter{
			issuerDID:          result.DID,
			verificationMethod: result.DIDDocument.VerificationMethod[0].ID,
			privateKey:         result.PrivateKey.(ed25519.PrivateKey),
			keyManager:         keyManager,
		}, nil

	case "web":
		if opts.DIDWebURL == "" {
			return nil, merrors.New(merrors.KindBadRequest, op, "didWebUrl is required when didMethod is web")
		}
		resolver := did.NewWebMethodResolver(keyManager)
		result, err := resolver.Create(context.Background(), &did.CreationOptions{
			KeyType: did.KeyTypeEd25519,
			Seed:    seed,
			WebURL:  opts.DIDWebURL,
		})
		if err != nil {
			return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to create did:web identity", err)
		}
		return &Adapter{
			issuerDID:          result.DID,
			verificationMethod: result.DIDDocument.VerificationMethod[0].ID,
			privateKey:         result.PrivateKey.(ed25519.PrivateKey),
			keyManager:         keyManager,
		}, nil

	default:
		return nil, merrors.New(merrors.KindBadRequest, op, "unsupported didMethod: "+opts.DIDMethod)
	}
}

// IssuerDID returns the configured issuer DID.
func (a *Adapter) IssuerDID() string {
	return a.issuerDID
}

// VerificationMethod returns the key id used to sign.
func (a *Adapter) VerificationMethod() string {
	return a.verificationMethod
}

// Sign attaches a Data Integrity proof to credential in place, covering
// the credential's canonical JSON bytes (excluding any existing proof).
func (a *Adapter) Sign(credential *vc.VerifiableCredential) error {
	credential.Proof = nil
	payload, err := json.Marshal(credential)
	if err != nil {
		return merrors.Wrap(merrors.KindInternalServer, op, "failed to marshal credential for signing", err)
	}

	signature := ed25519.Sign(a.privateKey, payload)

	credential.Proof = map[string]interface{}{
		"type":               "DataIntegrityProof",
		"cryptosuite":        "eddsa-rdfc-2022",
		"created":            time.Now().UTC().Format(time.RFC3339),
		"verificationMethod": a.verificationMethod,
		"proofPurpose":       "assertionMethod",
		"proofValue":         encodeProofValue(signature),
	}
	return nil
}

// encodeProofValue multibase-encodes a raw signature the same way
// did:key encodes public keys: base58btc with a 'z' prefix.
func encodeProofValue(signature []byte) string {
	return did.EncodeMultibase(signature)
}
