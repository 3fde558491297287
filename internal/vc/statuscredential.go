package vc

import (
	"github.com/ParichayaHQ/credence/internal/codec"
)

// ComposeStatusCredential builds the status credential for a given
// statusCredentialId and purpose, grounded in spec §4.2. If list is nil a
// fresh all-valid bitstring of length LIST_SIZE is created.
func ComposeStatusCredential(origin, issuerDID, statusCredentialID, statusPurpose string, list *codec.List, listSize int) (*VerifiableCredential, error) {
	if list == nil {
		list = codec.CreateList(listSize)
	}

	encoded, err := codec.EncodeList(list)
	if err != nil {
		return nil, err
	}

	subjectID := origin + "/" + statusCredentialID

	return &VerifiableCredential{
		Context: []string{Context20},
		ID:      subjectID,
		Type:    []string{TypeVC, TypeStatusListCred},
		Issuer:  issuerDID,
		CredentialSubject: StatusListSubject{
			ID:            subjectID,
			Type:          TypeStatusListSub,
			StatusPurpose: statusPurpose,
			EncodedList:   encoded,
		},
		ValidFrom: NowISO8601(),
	}, nil
}

// DecodedList extracts and decodes the bitstring carried by a status
// credential's credentialSubject.encodedList, tolerating both the struct
// form ComposeStatusCredential produces and the map[string]interface{}
// form a credential round-tripped through JSON unmarshaling takes.
func DecodedList(credential *VerifiableCredential) (*codec.List, error) {
	encoded, err := EncodedList(credential)
	if err != nil {
		return nil, err
	}
	return codec.DecodeList(encoded)
}

// EncodedList reads the encodedList string out of a status credential's
// credentialSubject without decoding it.
func EncodedList(credential *VerifiableCredential) (string, error) {
	switch subject := credential.CredentialSubject.(type) {
	case StatusListSubject:
		return subject.EncodedList, nil
	case *StatusListSubject:
		return subject.EncodedList, nil
	case map[string]interface{}:
		if v, ok := subject["encodedList"].(string); ok {
			return v, nil
		}
	}
	return "", nil
}

// SetEncodedList replaces the encodedList string in place, preserving the
// rest of the credentialSubject shape.
func SetEncodedList(credential *VerifiableCredential, encoded string) {
	switch subject := credential.CredentialSubject.(type) {
	case StatusListSubject:
		subject.EncodedList = encoded
		credential.CredentialSubject = subject
	case *StatusListSubject:
		subject.EncodedList = encoded
	case map[string]interface{}:
		subject["encodedList"] = encoded
	}
}
