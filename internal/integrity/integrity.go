// Package integrity is the database-state checker: spec §4.5's four
// consistency checks, run at bootstrap against a non-empty store and
// exposed as getDatabaseState for callers who want to audit a running
// deployment.
//
// Grounded on internal/statuslist/manager.go's periodic self-check
// pattern (walk the store, compare derived counts against persisted
// counters), generalized from a single in-memory structure to the five
// persisted tables.
package integrity

import (
	"context"
	"fmt"

	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/store"
	"github.com/ParichayaHQ/credence/internal/vc"
)

const op = "integrity"

// State is the result of a database-state check: {valid, error?} per
// spec §6.
type State struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

var checkedPurposes = []string{vc.PurposeRevocation, vc.PurposeSuspension}

// GetDatabaseState runs spec §4.5's four checks against s and reports
// the first violation found, or Valid=true if none.
func GetDatabaseState(ctx context.Context, s store.Store, configuredOrigin string) (*State, error) {
	cfg, err := s.GetConfig(ctx, nil)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, merrors.New(merrors.KindMissingDatabase, op, "Config row is missing; bootstrap has not run")
	}

	// Check 1: origin match.
	if cfg.StatusCredentialSiteOrigin != configuredOrigin {
		return &State{Valid: false, Error: fmt.Sprintf(
			"configured origin %q does not match persisted statusCredentialSiteOrigin %q",
			configuredOrigin, cfg.StatusCredentialSiteOrigin)}, nil
	}

	// Check 2: per-purpose StatusCredential shape and latest-id presence.
	for _, purpose := range checkedPurposes {
		info, ok := cfg.StatusCredentialInfo[purpose]
		if !ok {
			continue
		}
		if info.LatestStatusCredentialID == "" {
			return &State{Valid: false, Error: "purpose " + purpose + " has no latestStatusCredentialId"}, nil
		}

		rows, err := s.GetAllStatusCredentialsByPurpose(ctx, nil, purpose)
		if err != nil {
			return nil, err
		}

		foundLatest := false
		for _, row := range rows {
			if row.Purpose != purpose {
				return &State{Valid: false, Error: "status credential " + row.ID + " has purpose " + row.Purpose + ", expected " + purpose}, nil
			}
			if err := checkShape(row); err != nil {
				return &State{Valid: false, Error: err.Error()}, nil
			}
			if row.ID == info.LatestStatusCredentialID {
				foundLatest = true
			}
		}
		if !foundLatest {
			return &State{Valid: false, Error: "latestStatusCredentialId " + info.LatestStatusCredentialID + " for purpose " + purpose + " has no matching row"}, nil
		}
	}

	// Check 3: |UserCredential rows| == Config.credentialsIssuedCounter.
	count, err := s.CountUserCredentials(ctx, nil)
	if err != nil {
		return nil, err
	}
	if count != cfg.CredentialsIssuedCounter {
		return &State{Valid: false, Error: fmt.Sprintf(
			"UserCredential row count %d does not match credentialsIssuedCounter %d", count, cfg.CredentialsIssuedCounter)}, nil
	}

	// Check 4: credentialsIssuedCounter <= sum over purposes of
	// (statusCredentialsCounter[p]-1)*LIST_SIZE + latestCredentialsIssuedCounter[p].
	bound := 0
	for _, info := range cfg.StatusCredentialInfo {
		if info.StatusCredentialsCounter > 0 {
			bound += (info.StatusCredentialsCounter-1)*listSize + info.LatestCredentialsIssuedCounter
		}
	}
	if cfg.CredentialsIssuedCounter > bound {
		return &State{Valid: false, Error: fmt.Sprintf(
			"credentialsIssuedCounter %d exceeds the capacity bound %d implied by status-credential counters",
			cfg.CredentialsIssuedCounter, bound)}, nil
	}

	return &State{Valid: true}, nil
}

// listSize mirrors internal/alloc.ListSize; duplicated as a constant
// here rather than imported to keep internal/integrity independent of
// internal/alloc's allocation-strategy internals.
const listSize = 100_000

func checkShape(row *store.StatusCredentialRecord) error {
	subject, err := subjectMap(row.Credential)
	if err != nil {
		return err
	}
	if subject["type"] != vc.TypeStatusListSub {
		return fmt.Errorf("status credential %s has credentialSubject.type %v, expected %s", row.ID, subject["type"], vc.TypeStatusListSub)
	}
	if _, ok := subject["encodedList"].(string); !ok {
		return fmt.Errorf("status credential %s is missing credentialSubject.encodedList", row.ID)
	}
	purpose, _ := subject["statusPurpose"].(string)
	if purpose != row.Purpose {
		return fmt.Errorf("status credential %s credentialSubject.statusPurpose %q does not match row purpose %q", row.ID, purpose, row.Purpose)
	}
	return nil
}

func subjectMap(raw interface{}) (map[string]interface{}, error) {
	credential, ok := raw.(map[string]interface{})
	if ok {
		if subject, ok := credential["credentialSubject"].(map[string]interface{}); ok {
			return subject, nil
		}
	}
	if vcPtr, ok := raw.(*vc.VerifiableCredential); ok {
		return structSubject(vcPtr.CredentialSubject)
	}
	if vcVal, ok := raw.(vc.VerifiableCredential); ok {
		return structSubject(vcVal.CredentialSubject)
	}
	return nil, merrors.New(merrors.KindInvalidDatabaseState, op, "status credential row has an unrecognized shape")
}

func structSubject(raw interface{}) (map[string]interface{}, error) {
	switch subject := raw.(type) {
	case vc.StatusListSubject:
		return map[string]interface{}{"type": subject.Type, "encodedList": subject.EncodedList, "statusPurpose": subject.StatusPurpose}, nil
	case *vc.StatusListSubject:
		return map[string]interface{}{"type": subject.Type, "encodedList": subject.EncodedList, "statusPurpose": subject.StatusPurpose}, nil
	case map[string]interface{}:
		return subject, nil
	default:
		return nil, merrors.New(merrors.KindInvalidDatabaseState, op, "credentialSubject has an unrecognized shape")
	}
}
