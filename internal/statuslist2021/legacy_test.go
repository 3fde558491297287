package statuslist2021

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ParichayaHQ/credence/internal/vc"
)

func TestToBitstringEntryRoundTrips(t *testing.T) {
	legacy := Entry{
		ID:                   "https://credentials.example.edu/status/scid1#1",
		Type:                 "StatusList2021Entry",
		StatusPurpose:        vc.PurposeRevocation,
		StatusListIndex:      "1",
		StatusListCredential: "https://credentials.example.edu/status/scid1",
	}

	current := ToBitstringEntry(legacy)
	assert.Equal(t, vc.TypeStatusEntry, current.Type)
	assert.Equal(t, legacy.StatusPurpose, current.StatusPurpose)
	assert.Equal(t, legacy.StatusListIndex, current.StatusListIndex)
	assert.Equal(t, legacy.StatusListCredential, current.StatusListCredential)

	back := FromBitstringEntry(current)
	assert.Equal(t, "StatusList2021Entry", back.Type)
	assert.Equal(t, legacy.StatusPurpose, back.StatusPurpose)
	assert.Equal(t, legacy.StatusListIndex, back.StatusListIndex)
	assert.Equal(t, legacy.StatusListCredential, back.StatusListCredential)
}
