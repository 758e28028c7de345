package session

import (
	"github.com/evse-go/iso15118/pkg/d20"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// Exchange holds at most one pending request and one ready response.
type Exchange struct {
	request            message.Message
	requestPayloadType v2gtp.PayloadType

	response            message.Message
	responsePayload     []byte
	responsePayloadType v2gtp.PayloadType

	err error
}

// SetRequest stores a decoded request, replacing any unconsumed one. The
// previous response and encoding failure are forgotten.
func (e *Exchange) SetRequest(payloadType v2gtp.PayloadType, msg message.Message) {
	e.request = msg
	e.requestPayloadType = payloadType
	e.response = nil
	e.err = nil
}

// PeekRequest returns the pending request without consuming it.
func (e *Exchange) PeekRequest() message.Message {
	return e.request
}

// PullRequest returns and clears the pending request.
func (e *Exchange) PullRequest() message.Message {
	req := e.request
	e.request = nil
	return req
}

// SetResponse encodes msg and stores it for transmission. An encoding
// failure leaves no response ready.
func (e *Exchange) SetResponse(msg message.Message) error {
	payload, err := message.Encode(msg)
	if err != nil {
		e.clearResponse()
		e.err = wrap(ErrSerialize, err)
		return e.err
	}
	e.response = msg
	e.responsePayload = payload
	e.responsePayloadType = msg.Type().PayloadType()
	return nil
}

// CheckAndClearResponse returns the ready response payload exactly once.
func (e *Exchange) CheckAndClearResponse() (v2gtp.PayloadType, []byte, bool) {
	if e.responsePayload == nil {
		return 0, nil, false
	}
	pt, payload := e.responsePayloadType, e.responsePayload
	e.clearResponse()
	return pt, payload, true
}

// Err returns the last encoding failure, if any.
func (e *Exchange) Err() error {
	return e.err
}

// LastResponse returns the response to the current request, even after it
// was cleared for transmission.
func (e *Exchange) LastResponse() message.Message {
	return e.response
}

func (e *Exchange) clearResponse() {
	e.responsePayload = nil
	e.responsePayloadType = 0
}

var _ d20.Exchange = (*Exchange)(nil)
