// Package statuslist2021 is the legacy StatusList2021 interop surface
// spec §9a calls for: a type converter from this module's
// BitstringStatusList credentialStatus entries to the older
// StatusList2021Entry shape, for relying parties that have not yet
// migrated off the 2021 profile. It is never consulted on the
// allocate/update path; BitstringStatusList is the only codec this
// module actually writes.
//
// Grounded on the teacher's internal/statuslist/types.go StatusList2021/
// StatusListEntry shapes, trimmed to the fields this converter needs —
// the teacher's in-memory manager/cache/provider machinery around them
// (DefaultStatusListManager, InMemoryStatusListCache, HTTPStatusListProvider)
// has no counterpart here since internal/statusmanager/internal/store
// already own that lifecycle for the BitstringStatusList profile.
package statuslist2021

import "github.com/ParichayaHQ/credence/internal/vc"

// Entry is the legacy StatusList2021Entry shape.
type Entry struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	StatusPurpose        string `json:"statusPurpose"`
	StatusListIndex      string `json:"statusListIndex"`
	StatusListCredential string `json:"statusListCredential"`
}

// ToBitstringEntry converts a legacy StatusList2021Entry into this
// module's current vc.CredentialStatus shape; the two profiles share
// the same field set, only the entry `type` differs.
func ToBitstringEntry(legacy Entry) vc.CredentialStatus {
	return vc.CredentialStatus{
		ID:                   legacy.ID,
		Type:                 vc.TypeStatusEntry,
		StatusPurpose:        legacy.StatusPurpose,
		StatusListIndex:      legacy.StatusListIndex,
		StatusListCredential: legacy.StatusListCredential,
	}
}

// FromBitstringEntry converts the other direction, for a caller that
// still needs to hand a StatusList2021Entry to an unmigrated relying
// party.
func FromBitstringEntry(current vc.CredentialStatus) Entry {
	return Entry{
		ID:                   current.ID,
		Type:                 "StatusList2021Entry",
		StatusPurpose:        current.StatusPurpose,
		StatusListIndex:      current.StatusListIndex,
		StatusListCredential: current.StatusListCredential,
	}
}
