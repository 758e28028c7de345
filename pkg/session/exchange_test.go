package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/v2gtp"
)

func TestExchangeRequestSlot(t *testing.T) {
	var ex Exchange
	assert.Nil(t, ex.PeekRequest())
	assert.Nil(t, ex.PullRequest())

	first := &message.SessionSetupRequest{EVCCID: "A"}
	second := &message.SessionSetupRequest{EVCCID: "B"}
	ex.SetRequest(v2gtp.PayloadCommon, first)
	ex.SetRequest(v2gtp.PayloadCommon, second)

	assert.Same(t, second, ex.PeekRequest())
	assert.Same(t, second, ex.PullRequest())
	assert.Nil(t, ex.PullRequest())
}

func TestExchangeResponseOnce(t *testing.T) {
	var ex Exchange
	_, _, ok := ex.CheckAndClearResponse()
	assert.False(t, ok)

	res := &message.SessionSetupResponse{EVSEID: "DE*PNX*E12345*1"}
	require.NoError(t, ex.SetResponse(res))

	pt, payload, ok := ex.CheckAndClearResponse()
	require.True(t, ok)
	assert.Equal(t, v2gtp.PayloadCommon, pt)

	decoded, err := message.Decode(pt, payload)
	require.NoError(t, err)
	assert.Equal(t, res, decoded)

	_, _, ok = ex.CheckAndClearResponse()
	assert.False(t, ok, "response is handed out once")
	assert.Same(t, res, ex.LastResponse())
}

func TestExchangeSerializeError(t *testing.T) {
	var ex Exchange
	err := ex.SetResponse(nil)

	assert.ErrorIs(t, err, ErrSerialize)
	assert.ErrorIs(t, ex.Err(), ErrSerialize)
	_, _, ok := ex.CheckAndClearResponse()
	assert.False(t, ok)

	ex.SetRequest(v2gtp.PayloadCommon, &message.SessionSetupRequest{})
	assert.NoError(t, ex.Err(), "a new request clears the failure")
	assert.Nil(t, ex.LastResponse())
}
