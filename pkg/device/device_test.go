package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []ConnectionState{Disconnected, Discovered, Connecting, AwaitingConfirm, Connected}

func TestConnectionState_String(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range allStates {
		name := s.String()
		assert.NotEqual(t, "unknown", name, "state %d has no name", s)
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true
	}
	assert.Equal(t, "unknown", ConnectionState(99).String())
}

func TestConnectionState_Authenticating(t *testing.T) {
	expected := map[ConnectionState]bool{
		Disconnected:    false,
		Discovered:      false,
		Connecting:      true,
		AwaitingConfirm: true,
		Connected:       false,
	}
	for _, s := range allStates {
		assert.Equal(t, expected[s], s.Authenticating(), s.String())
	}
}

func TestRemoteDevice_Updated(t *testing.T) {
	d := New("A", "Pixel 7", Connecting)

	awaiting := AwaitingConfirm
	updated := d.Updated("4821", &awaiting)
	assert.Equal(t, "4821", updated.AuthenticationToken)
	assert.Equal(t, AwaitingConfirm, updated.ConnectionState)
	assert.Equal(t, Connecting, d.ConnectionState, "receiver must not change")

	kept := updated.Updated("", nil)
	assert.Equal(t, updated, kept)
}

func TestRemoteDevice_WithName(t *testing.T) {
	d := New("A", "Pixel 7", Disconnected)
	assert.Equal(t, "Pixel 7", d.WithName("").Name)
	assert.Equal(t, "Pixel 8", d.WithName("Pixel 8").Name)
	assert.Equal(t, "A", New("A", "", Disconnected).DisplayName())
}
