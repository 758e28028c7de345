package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Log files are read back by tools, possibly while still being written or
// after a crash, so decoding bounds nesting and container sizes.
var (
	eventEncMode cbor.EncMode
	eventDecMode cbor.DecMode
)

func init() {
	enc := cbor.CoreDetEncOptions()
	enc.Time = cbor.TimeRFC3339Nano
	enc.NilContainers = cbor.NilContainerAsNull
	eventEncMode = mustMode(enc.EncMode())

	dec := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyQuiet,
		MaxNestedLevels:  32,
		MaxArrayElements: 4096,
		MaxMapPairs:      4096,
	}
	eventDecMode = mustMode(dec.DecMode())
}

func mustMode[M any](mode M, err error) M {
	if err != nil {
		panic(fmt.Sprintf("log: invalid CBOR options: %v", err))
	}
	return mode
}

// EncodeEvent returns the CBOR record for event.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent parses a single CBOR record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func newEventDecoder(r io.Reader) *cbor.Decoder {
	return eventDecMode.NewDecoder(r)
}
