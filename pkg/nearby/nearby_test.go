package nearby

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationDigits(t *testing.T) {
	token := AuthenticationDigits("endpoint-a", "endpoint-b")
	assert.Len(t, token, 4)
	assert.Equal(t, token, AuthenticationDigits("endpoint-b", "endpoint-a"))
	assert.Regexp(t, `^[0-9]{4}$`, token)
}

func TestStatusCode(t *testing.T) {
	err := fmt.Errorf("start: %w", NewStatusError(StatusAlreadyAdvertising, errors.New("busy")))
	code, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, StatusAlreadyAdvertising, code)
	assert.Contains(t, err.Error(), "8001")

	code, ok = StatusCode(NewStatusError(StatusErrorCode, errors.New("closed")))
	require.True(t, ok)
	assert.Equal(t, 13, code)

	_, ok = StatusCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyPointToPoint, StrategyStar, StrategyCluster} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStrategy("mesh")
	assert.Error(t, err)
}

func TestPayloadKinds(t *testing.T) {
	for _, k := range []PayloadKind{PayloadBytes, PayloadFile, PayloadStream} {
		parsed, err := ParsePayloadKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	p := NewBytesPayload([]byte("hello"))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, int64(5), p.Size)
	assert.True(t, Resolution{StatusCode: StatusOK}.Success())
	assert.False(t, Resolution{StatusCode: StatusConnectionRejected}.Success())
}
