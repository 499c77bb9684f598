package exchange

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/nearbyExchanger/pkg/device"
)

func TestState_SetDeviceUpsertsAndSorts(t *testing.T) {
	s := NewState().
		SetDevice(device.New("b", "Zeta", device.Disconnected)).
		SetDevice(device.New("a", "Alpha", device.Disconnected)).
		SetDevice(device.New("b", "Beta", device.Connected))

	require.Len(t, s.Devices, 2)
	assert.Equal(t, "Alpha", s.Devices[0].Name)
	assert.Equal(t, "Beta", s.Devices[1].Name)
	assert.Equal(t, device.Connected, s.Devices[1].ConnectionState)
}

func TestState_SetDeviceRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"Pixel 7", "Galaxy", "iPhone", "ThinkPad", "Nokia"}

	for round := 0; round < 50; round++ {
		s := NewState()
		last := make(map[string]device.RemoteDevice)
		for i := 0; i < 30; i++ {
			d := device.New(
				fmt.Sprintf("ep-%d", rng.Intn(6)),
				names[rng.Intn(len(names))],
				device.ConnectionState(rng.Intn(5)),
			)
			s = s.SetDevice(d)
			last[d.EndpointID] = d
		}

		assert.Len(t, s.Devices, len(last))
		seen := make(map[string]bool)
		for i, d := range s.Devices {
			assert.False(t, seen[d.EndpointID], "duplicate endpoint %s", d.EndpointID)
			seen[d.EndpointID] = true
			assert.Equal(t, last[d.EndpointID], d, "last write must win")
			if i > 0 {
				assert.LessOrEqual(t, s.Devices[i-1].Name, d.Name)
			}
		}
	}
}

func TestState_RemoveDevice(t *testing.T) {
	s := NewState().
		SetDevice(device.New("a", "Alpha", device.Connected)).
		SetDevice(device.New("b", "Beta", device.Disconnected))

	for _, id := range []string{"a", "a", "missing"} {
		s = s.RemoveDevice(id)
		_, ok := s.Device(id)
		assert.False(t, ok)
	}
	assert.Len(t, s.Devices, 1)
}

func TestState_OperationsDoNotMutateReceiver(t *testing.T) {
	base := NewState().SetDevice(device.New("a", "Alpha", device.Disconnected))
	_ = base.SetDevice(device.New("a", "Alpha", device.Connected))
	_ = base.RemoveDevice("a")
	_ = base.WithMode(Running{Role: Discoverer})

	d, ok := base.Device("a")
	require.True(t, ok)
	assert.Equal(t, device.Disconnected, d.ConnectionState)
	assert.Equal(t, Stopped{}, base.Mode)
}

func TestState_AnyConnected(t *testing.T) {
	s := NewState()
	assert.False(t, s.AnyConnected())
	s = s.SetDevice(device.New("a", "Alpha", device.AwaitingConfirm))
	assert.False(t, s.AnyConnected())
	s = s.SetDevice(device.New("b", "Beta", device.Connected))
	assert.True(t, s.AnyConnected())
	assert.Len(t, s.Connected(), 1)
	assert.Empty(t, s.WithoutDevices().Devices)
}

func TestModeVariants(t *testing.T) {
	code := 8001
	modes := []Mode{
		Stopped{},
		Running{Role: Advertiser},
		Failed{Message: "no radio", ErrorCode: &code, Cause: errors.New("x")},
	}
	for _, m := range modes {
		switch m := m.(type) {
		case Stopped:
			assert.False(t, IsRunning(m))
		case Running:
			assert.True(t, IsRunning(m))
			assert.Equal(t, "running(advertiser)", m.String())
		case Failed:
			assert.Contains(t, m.String(), "8001")
		default:
			t.Fatalf("unhandled mode %T", m)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{Advertiser, Discoverer} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRole("observer")
	assert.Error(t, err)
}
