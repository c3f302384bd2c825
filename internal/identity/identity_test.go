package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferraro/gridswap/internal/identity"
)

func TestSignAndVerify(t *testing.T) {
	id, err := identity.New("ElectraGrid")
	require.NoError(t, err)

	payload := []byte("candidate transition bytes")
	sig := id.Sign(payload)

	assert.True(t, identity.Verify(id.Party(), payload, sig))
	assert.False(t, identity.Verify(id.Party(), []byte("tampered"), sig))

	other, err := identity.New("GreenVolt")
	require.NoError(t, err)

	assert.False(t, identity.Verify(other.Party(), payload, sig))
}

func TestRegistry_Lookup(t *testing.T) {
	reg := identity.NewRegistry()

	id, err := identity.New("ElectraGrid")
	require.NoError(t, err)

	reg.Register(id.Party())

	got, err := reg.Lookup("ElectraGrid")
	require.NoError(t, err)
	assert.True(t, got.Equal(id.Party()))

	_, err = reg.Lookup("Nimbus")

	var unknown *identity.ErrUnknownParty
	require.ErrorAs(t, err, &unknown)
}

func TestRegistry_PeersSortedAndExcluding(t *testing.T) {
	reg := identity.NewRegistry()

	for _, org := range []string{"Sman", "ElectraGrid", "GreenVolt"} {
		id, err := identity.New(org)
		require.NoError(t, err)
		reg.Register(id.Party())
	}

	peers := reg.Peers("GreenVolt")
	require.Len(t, peers, 2)
	assert.Equal(t, "ElectraGrid", peers[0].Name)
	assert.Equal(t, "Sman", peers[1].Name)
}
