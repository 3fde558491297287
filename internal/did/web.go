package did

import (
	"context"
	"crypto/ed25519"
	"net/url"
	"strings"
	"time"
)

// WebMethodResolver implements the did:web method. Unlike did:key, the
// public key is not embedded in the identifier: it lives in a DID document
// hosted at https://{domain}/.well-known/did.json (or a path-qualified
// variant). Resolve requires fetching that document over HTTP, which this
// module treats as an external collaborator and therefore does not
// perform; Create is fully supported since it only needs the signing key
// the caller already holds.
type WebMethodResolver struct {
	keyManager KeyManager
}

// NewWebMethodResolver creates a new did:web method resolver.
func NewWebMethodResolver(keyManager KeyManager) *WebMethodResolver {
	if keyManager == nil {
		keyManager = NewDefaultKeyManager()
	}
	return &WebMethodResolver{keyManager: keyManager}
}

// Resolve is unsupported: dereferencing a did:web document requires an
// HTTP fetch, which lives outside this module's scope.
func (r *WebMethodResolver) Resolve(ctx context.Context, did string, options *DIDResolutionOptions) (*DIDResolutionResult, error) {
	return nil, NewDIDError(ErrorMethodNotSupported, "did:web resolution requires an external HTTP fetch, not performed by this module")
}

// Create derives a did:web identifier from options.WebURL and a signing
// key (generated, from a seed, or supplied directly).
func (r *WebMethodResolver) Create(ctx context.Context, options *CreationOptions) (*CreationResult, error) {
	if options == nil || options.WebURL == "" {
		return nil, NewDIDError(ErrorInvalidDID, "did:web requires a webUrl")
	}

	identifier, err := webIdentifierFromURL(options.WebURL)
	if err != nil {
		return nil, err
	}
	didStr := "did:web:" + identifier

	var privateKey interface{}
	if options.PrivateKey != nil {
		privateKey = options.PrivateKey
	} else if options.Seed != nil {
		if len(options.Seed) != ed25519.SeedSize {
			return nil, NewDIDError(ErrorInvalidKey, "invalid seed size")
		}
		privateKey = ed25519.NewKeyFromSeed(options.Seed)
	} else {
		privateKey, err = r.keyManager.GenerateKey(KeyTypeEd25519)
		if err != nil {
			return nil, NewDIDErrorWithCause(ErrorInternalError, "failed to generate key", err)
		}
	}

	publicKey, err := r.keyManager.GetPublicKey(privateKey)
	if err != nil {
		return nil, NewDIDErrorWithCause(ErrorInternalError, "failed to get public key", err)
	}
	ed25519Key, ok := publicKey.(ed25519.PublicKey)
	if !ok {
		return nil, NewDIDError(ErrorInvalidKey, "only Ed25519 keys are supported for did:web")
	}

	prefixed := append([]byte{0xed, 0x01}, ed25519Key...)
	multibaseKey := "z" + base58Encode(prefixed)
	methodID := didStr + "#key-1"

	now := time.Now().UTC()
	document := &DIDDocument{
		Context: []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/suites/ed25519-2020/v1",
		},
		ID: didStr,
		VerificationMethod: []VerificationMethod{{
			ID:                 methodID,
			Type:               string(KeyTypeEd25519),
			Controller:         didStr,
			PublicKeyMultibase: &multibaseKey,
		}},
		Authentication:       []interface{}{methodID},
		AssertionMethod:      []interface{}{methodID},
		CapabilityInvocation: []interface{}{methodID},
		CapabilityDelegation: []interface{}{methodID},
		Created:              &now,
	}

	privateKeyJWK, _ := r.keyManager.KeyToJWK(privateKey)

	return &CreationResult{
		DID:           didStr,
		DIDDocument:   document,
		PrivateKey:    privateKey,
		PrivateKeyJWK: privateKeyJWK,
		MethodMetadata: map[string]string{"verificationMethod": methodID},
	}, nil
}

// Update is not supported: changing a did:web document means publishing a
// new did.json at the issuer's own web origin, outside this module.
func (r *WebMethodResolver) Update(ctx context.Context, did string, document *DIDDocument, options *UpdateOptions) (*UpdateResult, error) {
	return nil, NewDIDError(ErrorMethodNotSupported, "did:web documents are updated by publishing a new did.json, not by this module")
}

// Deactivate is not supported for the same reason as Update.
func (r *WebMethodResolver) Deactivate(ctx context.Context, did string, options *DeactivationOptions) (*DeactivationResult, error) {
	return nil, NewDIDError(ErrorMethodNotSupported, "did:web documents cannot be deactivated by this module")
}

// webIdentifierFromURL turns a configured HTTPS origin into the
// colon-separated did:web identifier per the did:web method spec:
// domain (with port percent-encoded as %3A) followed by any path
// segments, each colon-joined.
func webIdentifierFromURL(webURL string) (string, error) {
	parsed, err := url.Parse(webURL)
	if err != nil {
		return "", NewDIDErrorWithCause(ErrorInvalidDID, "invalid webUrl", err)
	}
	if parsed.Host == "" {
		return "", NewDIDError(ErrorInvalidDID, "webUrl must include a host")
	}

	host := strings.ReplaceAll(parsed.Host, ":", "%3A")
	identifier := host

	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		identifier += ":" + strings.ReplaceAll(path, "/", ":")
	}

	return identifier, nil
}
