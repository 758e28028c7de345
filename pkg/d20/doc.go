// Package d20 implements the ISO 15118-20 station side state machine.
//
// The state machine is a closed set of StateIDs with a single Feed
// dispatch. Each Feed consumes one event: a decoded request waiting in the
// message exchange, a drained control event, or an expired timeout. A state
// answers a request with exactly one response and either stays or names
// the next state. Per-state scratch data is discarded on every transition.
//
//	SupportedAppProtocol -> SessionSetup -> AuthorizationSetup -> Authorization
//	  -> ServiceDiscovery -> ServiceDetail -> ServiceSelection
//	  -> DC_ChargeParameterDiscovery -> ScheduleExchange -> DC_CableCheck
//	     -> DC_PreCharge -> PowerDelivery -> DC_ChargeLoop -> DC_WeldingDetection
//	  -> AC_ChargeParameterDiscovery -> ScheduleExchange -> PowerDelivery
//	     -> AC_ChargeLoop
//	  -> SessionStop -> Closed
//
// A SessionStopReq is accepted in every state after SessionSetup. Any
// response with a code of FAILED or above stops the session.
//
// The Context is owned by the session goroutine. It is not safe for
// concurrent use.
package d20
