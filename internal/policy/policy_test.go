package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fundledger/pkg/identity"
)

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"open", "owner_only", "allowlist"} {
		mode, err := ParseMode(valid)
		assert.NoError(t, err)
		assert.Equal(t, Mode(valid), mode)
	}
	_, err := ParseMode("anyone")
	assert.Error(t, err)
}

func TestDefaultPolicy(t *testing.T) {
	a := Default("owner")

	assert.True(t, a.CanCreate("anyone"))
	assert.True(t, a.CanCreate("owner"))

	assert.True(t, a.CanSettle("owner"))
	assert.False(t, a.CanSettle("anyone"))
	assert.False(t, a.CanSettle(""))
}

func TestAllowlist(t *testing.T) {
	a := New(ModeAllowlist, ModeAllowlist, "owner", []identity.Address{"alice", "bob"})

	assert.True(t, a.CanSettle("alice"))
	assert.True(t, a.CanSettle("bob"))
	// owner is always allowed
	assert.True(t, a.CanSettle("owner"))
	assert.False(t, a.CanSettle("mallory"))
	assert.False(t, a.CanCreate(""))
}

func TestOwnerOnlyRejectsZeroOwner(t *testing.T) {
	// a zero owner must not make everyone the owner
	a := New(ModeOwnerOnly, ModeOwnerOnly, "", nil)
	assert.False(t, a.CanSettle(""))
	assert.False(t, a.CanSettle("anyone"))
}
