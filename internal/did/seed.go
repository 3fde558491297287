package did

// DecodeSeed turns a bootstrap didSeed into raw key-seed bytes.
//
// The seed is expected as a multibase string: a leading 'z' marks
// base58btc per the multibase table, matched by the same decoder did:key
// identifiers use; a seed with no recognized multibase prefix is treated
// as a bare base58btc string for compatibility with seeds copied from
// tooling that omits the prefix.
func DecodeSeed(seed string) ([]byte, error) {
	if seed == "" {
		return nil, NewDIDError(ErrorInvalidKey, "empty did seed")
	}

	if seed[0] == 'z' {
		decoded, err := base58Decode(seed[1:])
		if err != nil {
			return nil, NewDIDErrorWithCause(ErrorInvalidKey, "failed to decode multibase seed", err)
		}
		return decoded, nil
	}

	decoded, err := base58Decode(seed)
	if err != nil {
		return nil, NewDIDErrorWithCause(ErrorInvalidKey, "failed to decode seed", err)
	}
	return decoded, nil
}

// EncodeMultibase base58btc-encodes arbitrary bytes with the 'z' multibase
// prefix, the same encoding did:key identifiers and proof values use.
func EncodeMultibase(data []byte) string {
	return "z" + base58Encode(data)
}
