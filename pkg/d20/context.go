package d20

import (
	"log/slog"
	"slices"
	"time"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/timeout"
)

// Exchange is the single slot mailbox between the frame layer and the state
// machine.
type Exchange interface {
	// PeekRequest returns the pending request without consuming it.
	PeekRequest() message.Message
	// PullRequest returns and clears the pending request.
	PullRequest() message.Message
	// SetResponse encodes and stores the response for transmission.
	SetResponse(msg message.Message) error
}

// Cache holds the latest control event values. Values may arrive before
// the state that consumes them.
type Cache struct {
	DynamicParameters *control.UpdateDynamicModeParameters
	ACTargetPower     *control.ACTargetPower
	ACPresentPower    *control.ACPresentPower
	PresentVoltage    float64
	PresentCurrent    float64
	Stop              bool
	Pause             bool
	CableCheck        *bool
	Authorization     *bool
}

// Context is the mutable protocol state of one session.
type Context struct {
	Config  SessionConfig
	Session Session
	Cache   Cache

	feedback   *feedback.Feedback
	log        *slog.Logger
	timeouts   *timeout.Manager
	exchange   Exchange
	pauseStore PauseStore
	clock      func() time.Time

	certHash []byte
	control  control.Event

	stopped bool
	paused  bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithFeedback sets the feedback sink.
func WithFeedback(fb *feedback.Feedback) ContextOption {
	return func(c *Context) { c.feedback = fb }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) { c.log = l }
}

// WithTimeouts shares the session's timeout manager.
func WithTimeouts(m *timeout.Manager) ContextOption {
	return func(c *Context) { c.timeouts = m }
}

// WithPauseStore sets the store used for session resumption.
func WithPauseStore(s PauseStore) ContextOption {
	return func(c *Context) { c.pauseStore = s }
}

// WithClock replaces time.Now for header timestamps.
func WithClock(clock func() time.Time) ContextOption {
	return func(c *Context) { c.clock = clock }
}

// NewContext creates a context answering through ex.
func NewContext(ex Exchange, config SessionConfig, opts ...ContextOption) *Context {
	c := &Context{
		Config:   config,
		exchange: ex,
		log:      slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeouts == nil {
		c.timeouts = timeout.NewManager(timeout.WithClock(c.clock))
	}
	return c
}

// SetVehicleCertHash records the SHA-512 digest of the certificate the
// vehicle presented in the TLS handshake.
func (c *Context) SetVehicleCertHash(hash []byte) {
	c.certHash = slices.Clone(hash)
}

// VehicleCertHash returns the digest recorded by SetVehicleCertHash.
func (c *Context) VehicleCertHash() []byte {
	return c.certHash
}

// PeekRequest returns the pending request without consuming it.
func (c *Context) PeekRequest() message.Message {
	return c.exchange.PeekRequest()
}

// PullRequest consumes the pending request.
func (c *Context) PullRequest() message.Message {
	req := c.exchange.PullRequest()
	if req != nil {
		c.feedback.V2GMessage(req.Type())
	}
	return req
}

// Respond hands res to the exchange. A failure code or an encoding error
// stops the session.
func (c *Context) Respond(res message.Message) {
	if err := c.exchange.SetResponse(res); err != nil {
		c.log.Error("failed to set response", "type", res.Type(), "error", err)
		c.stopped = true
		return
	}
	c.feedback.V2GMessage(res.Type())

	if r, ok := res.(message.Response); ok {
		code := r.Base().ResponseCode
		c.feedback.ResponseCode(res.Type(), code)
		if code.IsFailure() {
			c.log.Warn("session stopped by failure response", "type", res.Type(), "code", code)
			c.stopped = true
		}
	}
}

// RespondSequenceError answers req with FAILED_SequenceError and stops the
// session.
func (c *Context) RespondSequenceError(req message.Message) {
	c.log.Warn("unexpected request", "type", req.Type())
	res := message.NewResponse(req.Type())
	switch r := res.(type) {
	case message.Response:
		r.Base().Header = c.header()
		r.Base().ResponseCode = message.ResponseFailedSequenceError
		c.Respond(r)
	case *message.SupportedAppProtocolResponse:
		r.ResponseCode = message.SAPFailedNoNegotiation
		c.Respond(r)
	}
	c.stopped = true
}

// header returns a response header for the current session.
func (c *Context) header() message.Header {
	return message.Header{
		SessionID: c.Session.ID,
		Timestamp: uint64(c.clock().Unix()),
	}
}

// checkHeader fills the response header and reports whether req belongs to
// the current session. On mismatch res carries FAILED_UnknownSession.
func (c *Context) checkHeader(req message.Request, res message.Response) bool {
	base := res.Base()
	base.Header = c.header()
	if req.RequestHeader().SessionID != c.Session.ID {
		base.ResponseCode = message.ResponseFailedUnknownSession
		return false
	}
	return true
}

// ApplyControlEvent records ev in the session configuration or the caches
// and makes it the current control event.
func (c *Context) ApplyControlEvent(ev control.Event) {
	c.control = ev

	switch e := ev.(type) {
	case control.DCTransferLimits:
		if e.Discharge == nil {
			e.Discharge = c.Config.DCLimits.Discharge
		}
		c.Config.DCLimits = e
	case control.ACTransferLimits:
		if e.Discharge == nil {
			e.Discharge = c.Config.ACLimits.Discharge
		}
		c.Config.ACLimits = e
	case control.EnergyServices:
		c.Config.SupportedEnergyServices = slices.Clone(e.Services)
	case control.SupportedVASs:
		c.Config.VASServices = slices.Clone(e.Services)
	case control.ACTargetPower:
		c.Cache.ACTargetPower = &e
	case control.ACPresentPower:
		c.Cache.ACPresentPower = &e
	case control.UpdateDynamicModeParameters:
		c.Cache.DynamicParameters = &e
	case control.PresentVoltageCurrent:
		c.Cache.PresentVoltage = e.Voltage
		c.Cache.PresentCurrent = e.Current
	case control.StopCharging:
		c.Cache.Stop = e.Stop
	case control.PauseCharging:
		c.Cache.Pause = e.Pause
	case control.CableCheckFinished:
		c.Cache.CableCheck = &e.Success
	case control.AuthorizationResponse:
		c.Cache.Authorization = &e.Accepted
	}
}

// ControlEvent returns the control event being fed, if any.
func (c *Context) ControlEvent() control.Event {
	return c.control
}

// Stop marks the session for termination.
func (c *Context) Stop() {
	c.stopped = true
}

// Stopped reports whether the session was marked for termination.
func (c *Context) Stopped() bool {
	return c.stopped
}

// Paused reports whether the vehicle paused the session.
func (c *Context) Paused() bool {
	return c.paused
}

// Done reports whether the session ended either way.
func (c *Context) Done() bool {
	return c.stopped || c.paused
}

// Now returns the context clock reading.
func (c *Context) Now() time.Time {
	return c.clock()
}

func (c *Context) startTimeout(kind timeout.Kind, d time.Duration) {
	if err := c.timeouts.Start(kind, d); err != nil {
		c.log.Error("failed to start timeout", "kind", kind, "error", err)
	}
}

func (c *Context) stopTimeout(kind timeout.Kind) {
	c.timeouts.Stop(kind)
}

// takePauseContext loads and clears the stored pause context. A stored
// context is consumed by every SessionSetup, matching or not.
func (c *Context) takePauseContext() (PauseContext, bool) {
	if c.pauseStore == nil {
		return PauseContext{}, false
	}
	pc, ok, err := c.pauseStore.Load()
	if err != nil {
		c.log.Error("failed to load pause context", "error", err)
		return PauseContext{}, false
	}
	if !ok {
		return PauseContext{}, false
	}
	if err := c.pauseStore.Clear(); err != nil {
		c.log.Error("failed to clear pause context", "error", err)
	}
	return pc, true
}

func (c *Context) savePauseContext() error {
	if c.pauseStore == nil {
		return nil
	}
	return c.pauseStore.Save(PauseContext{
		SessionID: c.Session.ID,
		CertHash:  slices.Clone(c.certHash),
		Selected:  c.Session.Selected,
		PausedAt:  c.clock(),
	})
}
