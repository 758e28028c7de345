package d20

import (
	"fmt"

	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/timeout"
)

// StateID identifies a protocol state.
type StateID uint8

const (
	StateSupportedAppProtocol StateID = iota + 1
	StateSessionSetup
	StateAuthorizationSetup
	StateAuthorization
	StateServiceDiscovery
	StateServiceDetail
	StateServiceSelection
	StateDCChargeParameterDiscovery
	StateACChargeParameterDiscovery
	StateScheduleExchange
	StateDCCableCheck
	StateDCPreCharge
	StatePowerDelivery
	StateDCChargeLoop
	StateACChargeLoop
	StateDCWeldingDetection
	StateSessionStop
	StateClosed
)

var stateNames = map[StateID]string{
	StateSupportedAppProtocol:       "SupportedAppProtocol",
	StateSessionSetup:               "SessionSetup",
	StateAuthorizationSetup:         "AuthorizationSetup",
	StateAuthorization:              "Authorization",
	StateServiceDiscovery:           "ServiceDiscovery",
	StateServiceDetail:              "ServiceDetail",
	StateServiceSelection:           "ServiceSelection",
	StateDCChargeParameterDiscovery: "DC_ChargeParameterDiscovery",
	StateACChargeParameterDiscovery: "AC_ChargeParameterDiscovery",
	StateScheduleExchange:           "ScheduleExchange",
	StateDCCableCheck:               "DC_CableCheck",
	StateDCPreCharge:                "DC_PreCharge",
	StatePowerDelivery:              "PowerDelivery",
	StateDCChargeLoop:               "DC_ChargeLoop",
	StateACChargeLoop:               "AC_ChargeLoop",
	StateDCWeldingDetection:         "DC_WeldingDetection",
	StateSessionStop:                "SessionStop",
	StateClosed:                     "Closed",
}

// String returns the state name.
func (s StateID) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// EventType is the class of an FSM event.
type EventType uint8

const (
	EventV2GTPMessage EventType = iota + 1
	EventControlMessage
	EventTimeout
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventV2GTPMessage:
		return "V2GTP_MESSAGE"
	case EventControlMessage:
		return "CONTROL_MESSAGE"
	case EventTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("EVENT(%d)", uint8(t))
	}
}

// Event is fed to the state machine.
type Event struct {
	Type    EventType
	Timeout timeout.Kind // set for EventTimeout
}

// Convenience events.
var (
	V2GTPMessage   = Event{Type: EventV2GTPMessage}
	ControlMessage = Event{Type: EventControlMessage}
)

// TimeoutEvent returns the event for an expired timer.
func TimeoutEvent(kind timeout.Kind) Event {
	return Event{Type: EventTimeout, Timeout: kind}
}

// maxRedispatch bounds the hand-overs of one request between states.
const maxRedispatch = 4

// transition is the result of a state handler. The zero value stays.
type transition struct {
	next StateID
	// refeed hands the same event to the next state.
	refeed bool
}

func stay() transition { return transition{} }

func goTo(next StateID) transition { return transition{next: next} }

func handOver(next StateID) transition { return transition{next: next, refeed: true} }

// local is per-state scratch data, reset on every transition.
type local struct {
	ongoingStarted  bool
	ongoingExpired  bool
	signalled       bool
	chargeLoopEntry bool
}

// FSM sequences the ISO 15118-20 exchange of one session.
type FSM struct {
	ctx   *Context
	state StateID
	local local
}

// New creates a state machine in SupportedAppProtocol.
func New(ctx *Context) *FSM {
	return &FSM{ctx: ctx, state: StateSupportedAppProtocol}
}

// State returns the current state.
func (f *FSM) State() StateID {
	return f.state
}

// Context returns the context the machine operates on.
func (f *FSM) Context() *Context {
	return f.ctx
}

// Feed dispatches ev to the current state and applies the resulting
// transition.
func (f *FSM) Feed(ev Event) {
	for range maxRedispatch {
		if f.state == StateClosed {
			return
		}

		if ev.Type == EventTimeout && ev.Timeout == timeout.KindCommunicationSetup && f.state <= StateSessionSetup {
			f.ctx.log.Warn("communication setup timeout", "state", f.state)
			f.ctx.Stop()
			f.setState(StateClosed)
			return
		}

		if ev.Type == EventV2GTPMessage && f.state > StateSessionSetup && f.state != StateSessionStop {
			if _, ok := f.ctx.PeekRequest().(*message.SessionStopRequest); ok {
				f.setState(StateSessionStop)
				continue
			}
		}

		tr := f.dispatch(ev)
		if f.ctx.Done() {
			f.setState(StateClosed)
			return
		}
		if tr.next == 0 {
			return
		}
		f.setState(tr.next)
		if !tr.refeed {
			return
		}
	}
	f.ctx.log.Error("request handed over too often", "state", f.state)
	f.ctx.Stop()
	f.setState(StateClosed)
}

func (f *FSM) setState(next StateID) {
	if next == f.state {
		return
	}
	f.ctx.log.Debug("state change", "from", f.state, "to", next)
	f.state = next
	f.local = local{}
	if next == StateDCChargeLoop || next == StateACChargeLoop {
		f.local.chargeLoopEntry = true
	}
}

func (f *FSM) dispatch(ev Event) transition {
	switch f.state {
	case StateSupportedAppProtocol:
		return f.supportedAppProtocol(ev)
	case StateSessionSetup:
		return f.sessionSetup(ev)
	case StateAuthorizationSetup:
		return f.authorizationSetup(ev)
	case StateAuthorization:
		return f.authorization(ev)
	case StateServiceDiscovery:
		return f.serviceDiscovery(ev)
	case StateServiceDetail:
		return f.serviceDetail(ev)
	case StateServiceSelection:
		return f.serviceSelection(ev)
	case StateDCChargeParameterDiscovery:
		return f.dcChargeParameterDiscovery(ev)
	case StateACChargeParameterDiscovery:
		return f.acChargeParameterDiscovery(ev)
	case StateScheduleExchange:
		return f.scheduleExchange(ev)
	case StateDCCableCheck:
		return f.dcCableCheck(ev)
	case StateDCPreCharge:
		return f.dcPreCharge(ev)
	case StatePowerDelivery:
		return f.powerDelivery(ev)
	case StateDCChargeLoop:
		return f.dcChargeLoop(ev)
	case StateACChargeLoop:
		return f.acChargeLoop(ev)
	case StateDCWeldingDetection:
		return f.dcWeldingDetection(ev)
	case StateSessionStop:
		return f.sessionStop(ev)
	default:
		return stay()
	}
}

// pull consumes the pending request for a V2GTP event.
func (f *FSM) pull(ev Event) message.Message {
	if ev.Type != EventV2GTPMessage {
		return nil
	}
	return f.ctx.PullRequest()
}
