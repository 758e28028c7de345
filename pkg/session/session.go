package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/d20"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/log"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/metrics"
	"github.com/evse-go/iso15118/pkg/timeout"
	"github.com/evse-go/iso15118/pkg/transport"
	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// Default driver settings.
const (
	DefaultCloseLinger      = 5 * time.Second
	DefaultIdleCeiling      = 1 * time.Second
	DefaultControlQueueSize = control.DefaultCapacity
)

// Config configures a Session.
type Config struct {
	// Setup is the EVSE configuration every session starts from.
	Setup d20.EvseSetupConfig

	// PauseStore keeps a paused session across connections (optional).
	PauseStore d20.PauseStore

	// Callbacks receive session feedback.
	Callbacks feedback.Callbacks

	// SequenceTimeout bounds the wait for the next request
	// (default: 40s).
	SequenceTimeout time.Duration

	// CommunicationSetupTimeout bounds the time from TLS open to
	// SessionSetupReq (default: 20s).
	CommunicationSetupTimeout time.Duration

	// CloseLinger delays closing the transport after the session ended
	// (default: 5s).
	CloseLinger time.Duration

	// IdleCeiling is the longest Poll lets the reactor sleep (default: 1s).
	IdleCeiling time.Duration

	// ControlQueueSize bounds pending control events.
	ControlQueueSize int

	// MaxPayloadSize bounds received V2GTP payloads.
	MaxPayloadSize uint32

	// ProtocolLogger receives message and state events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational messages (optional).
	Logger *slog.Logger

	// Clock replaces time.Now.
	Clock func() time.Time
}

func (c *Config) applyDefaults() {
	if c.SequenceTimeout == 0 {
		c.SequenceTimeout = timeout.SequenceTimeout
	}
	if c.CommunicationSetupTimeout == 0 {
		c.CommunicationSetupTimeout = timeout.CommunicationSetupTimeout
	}
	if c.CloseLinger == 0 {
		c.CloseLinger = DefaultCloseLinger
	}
	if c.IdleCeiling == 0 {
		c.IdleCeiling = DefaultIdleCeiling
	}
	if c.ControlQueueSize == 0 {
		c.ControlQueueSize = DefaultControlQueueSize
	}
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = v2gtp.DefaultMaxPayloadSize
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Session drives the protocol for one connection.
type Session struct {
	config Config
	conn   transport.Connection
	log    *slog.Logger

	fsm      *d20.FSM
	ctx      *d20.Context
	exchange *Exchange
	timeouts *timeout.Manager
	queue    *control.Queue
	frame    *v2gtp.Frame
	feedback *feedback.Feedback

	// pending holds connection events Run received while waiting.
	pending []transport.Event

	started     time.Time
	open        bool
	connClosed  bool
	frameFailed bool
	err         error

	closing  bool
	closeAt  time.Time
	outcome  string
	finished bool
}

// New creates a session for conn. The state machine starts in
// SupportedAppProtocol.
func New(conn transport.Connection, config Config) *Session {
	config.applyDefaults()

	s := &Session{
		config:   config,
		conn:     conn,
		log:      config.Logger.With("conn_id", conn.ID()),
		exchange: &Exchange{},
		queue:    control.NewQueue(config.ControlQueueSize),
		frame:    v2gtp.NewFrameWithMaxSize(config.MaxPayloadSize),
		feedback: feedback.New(config.Callbacks),
		started:  config.Clock(),
	}
	s.timeouts = timeout.NewManager(timeout.WithClock(config.Clock))
	s.ctx = d20.NewContext(s.exchange, d20.NewSessionConfig(config.Setup),
		d20.WithFeedback(s.feedback),
		d20.WithLogger(s.log),
		d20.WithTimeouts(s.timeouts),
		d20.WithPauseStore(config.PauseStore),
		d20.WithClock(config.Clock),
	)
	s.fsm = d20.New(s.ctx)

	metrics.RecordSessionStart()
	return s
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.conn.ID()
}

// Push queues a control event. It is safe to call from any goroutine.
func (s *Session) Push(ev control.Event) error {
	return s.queue.Push(ev)
}

// State returns the state machine state. Only call it from the session
// goroutine or after the session finished.
func (s *Session) State() d20.StateID {
	return s.fsm.State()
}

// Err returns the error that ended the session, or nil for a session that
// ended by protocol.
func (s *Session) Err() error {
	return s.err
}

// Finished reports whether the transport was torn down.
func (s *Session) Finished() bool {
	return s.finished
}

// Outcome returns the metrics outcome of a closing session, or "" while
// it runs.
func (s *Session) Outcome() string {
	return s.outcome
}

// SessionID returns the negotiated session id. It is zero before
// SessionSetup.
func (s *Session) SessionID() message.SessionID {
	return s.ctx.Session.ID
}

// Poll advances the session as far as possible without blocking and
// returns when it wants to be polled again.
func (s *Session) Poll(now time.Time) time.Time {
	if s.finished {
		return now.Add(s.config.IdleCeiling)
	}

	s.drainConnection()
	if s.closing {
		return s.closeSequence(now)
	}

	s.readFrame()
	s.drainControl()

	if s.checkTimeouts(now) {
		s.handleFrame()
		s.sendResponse()
		// Bytes of the next frame may already be buffered and no further
		// NEW_DATA will announce them.
		if s.err == nil && !s.ctx.Done() {
			s.readFrame()
		}
	}

	if s.err != nil || s.ctx.Done() {
		return s.closeSequence(now)
	}
	return s.nextDeadline(now)
}

// Run polls until the session is finished or ctx is cancelled. A cancelled
// session is closed without linger.
func (s *Session) Run(ctx context.Context) error {
	timer := time.NewTimer(s.config.IdleCeiling)
	defer timer.Stop()

	for {
		next := s.Poll(s.config.Clock())
		if s.finished {
			return s.err
		}

		timer.Reset(max(next.Sub(s.config.Clock()), 0))
		select {
		case <-ctx.Done():
			s.shutdown(s.config.Clock())
			return s.err
		case ev := <-s.conn.Events():
			s.pending = append(s.pending, ev)
		case <-s.queue.Notify():
		case <-timer.C:
		}
	}
}

func (s *Session) drainConnection() {
	for _, ev := range s.pending {
		s.handleConnectionEvent(ev)
	}
	s.pending = s.pending[:0]

	for {
		select {
		case ev := <-s.conn.Events():
			s.handleConnectionEvent(ev)
		default:
			return
		}
	}
}

func (s *Session) handleConnectionEvent(ev transport.Event) {
	switch ev.Type {
	case transport.EventOpen:
		s.open = true
		s.ctx.SetVehicleCertHash(s.conn.PeerCertHash())
		if err := s.timeouts.Start(timeout.KindCommunicationSetup, s.config.CommunicationSetupTimeout); err != nil {
			s.log.Error("failed to start communication setup timeout", "error", err)
		}
		metrics.RecordConnection("open")
		s.log.Debug("connection open", "vehicle_cert", s.conn.PeerCertHash() != nil)

	case transport.EventClosed:
		s.connClosed = true
		if !s.open {
			metrics.RecordConnection("handshake_failed")
		}
		if s.closing {
			return
		}
		if ev.Err != nil {
			s.fail(wrap(ErrTransport, ev.Err))
		} else if !s.ctx.Done() {
			s.fail(wrap(ErrTransport, v2gtp.ErrConnectionClosed))
		}
	}
}

// readFrame advances the frame reader. A complete frame stays in place
// until handleFrame consumes it.
func (s *Session) readFrame() {
	if s.frameFailed || s.connClosed && !s.open || s.frame.Complete() {
		return
	}
	if _, err := s.frame.ReadFrom(s.conn); err != nil {
		s.frameFailed = true
		switch {
		case errors.Is(err, v2gtp.ErrInvalidHeader),
			errors.Is(err, v2gtp.ErrPayloadTooLarge),
			errors.Is(err, v2gtp.ErrInvalidState):
			s.fail(wrap(ErrDeserialize, err))
		default:
			s.fail(wrap(ErrTransport, err))
		}
	}
}

func (s *Session) drainControl() {
	for {
		ev, ok := s.queue.Pop()
		if !ok {
			return
		}
		metrics.RecordControlEvent(ev.Kind().String())
		s.ctx.ApplyControlEvent(ev)
		s.feed(d20.ControlMessage)
		if s.ctx.Done() {
			return
		}
	}
}

// checkTimeouts feeds expired timers to the state machine. It returns false
// once the sequence timer expired.
func (s *Session) checkTimeouts(now time.Time) bool {
	for _, kind := range s.timeouts.Check(now) {
		metrics.RecordTimeout(kind.String())
		if kind == timeout.KindSequence {
			s.log.Warn("sequence timeout", "state", s.fsm.State())
			s.fail(ErrSequenceTimeout)
			return false
		}
		s.feed(d20.TimeoutEvent(kind))
	}
	return true
}

func (s *Session) handleFrame() {
	if !s.frame.Complete() || s.ctx.Done() {
		return
	}
	pt := s.frame.Header.PayloadType
	payload := s.frame.Payload
	s.frame.Reset()

	s.logFrame(log.DirectionIn, pt, payload)

	msg, err := message.Decode(pt, payload)
	if err != nil {
		s.frameFailed = true
		s.fail(wrap(ErrDeserialize, err))
		return
	}
	s.timeouts.Stop(timeout.KindSequence)
	metrics.RecordMessage(msg.Type().String(), metrics.DirectionIn)
	s.logMessage(log.DirectionIn, msg, nil)

	s.exchange.SetRequest(pt, msg)
	received := s.config.Clock()
	s.feed(d20.V2GTPMessage)
	s.afterRequest(msg, received)
}

// afterRequest records what the state machine made of msg.
func (s *Session) afterRequest(msg message.Message, received time.Time) {
	if err := s.exchange.Err(); err != nil {
		s.fail(err)
		return
	}

	res := s.exchange.LastResponse()
	if res == nil {
		return
	}
	elapsed := s.config.Clock().Sub(received)
	s.logMessage(log.DirectionOut, res, &elapsed)

	r, ok := res.(message.Response)
	if !ok {
		return
	}
	code := r.Base().ResponseCode
	if code.IsFailure() {
		metrics.RecordFailureResponse(code.String())
		if code == message.ResponseFailedSequenceError {
			s.fail(wrap(ErrProtocolViolation, errors.New(msg.Type().String())))
		}
	}
	if req, ok := msg.(*message.SessionSetupRequest); ok && !req.RequestHeader().SessionID.IsZero() {
		metrics.RecordResumption(code == message.ResponseOKOldSessionJoined)
	}
}

func (s *Session) sendResponse() {
	pt, payload, ok := s.exchange.CheckAndClearResponse()
	if !ok {
		return
	}

	buf := make([]byte, v2gtp.FrameSize(len(payload)))
	v2gtp.PutHeader(buf, pt, uint32(len(payload)))
	copy(buf[v2gtp.HeaderSize:], payload)

	if err := s.conn.Write(buf); err != nil {
		s.fail(wrap(ErrTransport, err))
		return
	}
	if res := s.exchange.LastResponse(); res != nil {
		metrics.RecordMessage(res.Type().String(), metrics.DirectionOut)
	}
	s.logFrame(log.DirectionOut, pt, payload)

	if err := s.timeouts.Start(timeout.KindSequence, s.config.SequenceTimeout); err != nil {
		s.log.Error("failed to start sequence timeout", "error", err)
	}
}

// feed dispatches ev and logs the resulting state change.
func (s *Session) feed(ev d20.Event) {
	before := s.fsm.State()
	s.fsm.Feed(ev)
	if after := s.fsm.State(); after != before {
		s.logState(before, after, ev.Type.String())
	}
}

// fail records the first error and stops the protocol.
func (s *Session) fail(err error) {
	if s.err == nil {
		s.err = err
		s.log.Warn("session failed", "state", s.fsm.State(), "error", err)
		s.logError(err)
	}
	s.ctx.Stop()
}

// shutdown ends the session immediately, without linger.
func (s *Session) shutdown(now time.Time) {
	if !s.closing {
		s.ctx.Stop()
		s.beginClose(now)
	}
	s.closeAt = now
	s.closeSequence(now)
}

// closeSequence emits the terminal signal once, waits out the linger and
// tears the transport down.
func (s *Session) closeSequence(now time.Time) time.Time {
	if !s.closing {
		s.beginClose(now)
	}
	if now.Before(s.closeAt) {
		return s.closeAt
	}

	if !s.finished {
		s.finished = true
		s.queue.Close()
		if err := s.conn.Close(); err != nil {
			s.log.Debug("close failed", "error", err)
		}
		metrics.RecordSessionEnd(s.outcome, now.Sub(s.started).Seconds())
		s.log.Info("session finished", "outcome", s.outcome, "state", s.fsm.State())
	}
	return now.Add(s.config.IdleCeiling)
}

func (s *Session) beginClose(now time.Time) {
	s.closing = true

	signal := feedback.SignalDLinkTerminate
	s.outcome = metrics.OutcomeTerminate
	switch {
	case errors.Is(s.err, ErrTransport), errors.Is(s.err, ErrDeserialize):
		signal = feedback.SignalDLinkError
		s.outcome = metrics.OutcomeError
	case s.err != nil:
		s.outcome = metrics.OutcomeError
	case s.ctx.Paused():
		signal = feedback.SignalDLinkPause
		s.outcome = metrics.OutcomePause
	}
	s.feedback.Signal(signal)

	s.closeAt = now.Add(s.config.CloseLinger)
	if s.connClosed {
		s.closeAt = now
	}
	s.log.Debug("closing session", "signal", signal, "linger", s.closeAt.Sub(now))
}

func (s *Session) nextDeadline(now time.Time) time.Time {
	if s.frame.Complete() {
		return now
	}
	next := now.Add(s.config.IdleCeiling)
	if d, ok := s.timeouts.NextDeadline(); ok && d.Before(next) {
		next = d
	}
	return next
}

func (s *Session) sessionID() string {
	if s.ctx.Session.ID.IsZero() {
		return ""
	}
	return s.ctx.Session.ID.String()
}

func (s *Session) logFrame(dir log.Direction, pt v2gtp.PayloadType, payload []byte) {
	frame := make([]byte, v2gtp.FrameSize(len(payload)))
	v2gtp.PutHeader(frame, pt, uint32(len(payload)))
	copy(frame[v2gtp.HeaderSize:], payload)

	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    s.config.Clock(),
		ConnectionID: s.conn.ID(),
		SessionID:    s.sessionID(),
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame:        log.NewFrameEvent(uint16(pt), frame),
	})
}

func (s *Session) logMessage(dir log.Direction, msg message.Message, processing *time.Duration) {
	ev := log.NewMessageEvent(msg)
	ev.ProcessingTime = processing
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    s.config.Clock(),
		ConnectionID: s.conn.ID(),
		SessionID:    s.sessionID(),
		Direction:    dir,
		Layer:        log.LayerMessage,
		Category:     log.CategoryMessage,
		Message:      ev,
	})
}

func (s *Session) logState(from, to d20.StateID, cause string) {
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    s.config.Clock(),
		ConnectionID: s.conn.ID(),
		SessionID:    s.sessionID(),
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProtocol,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   cause,
		},
	})
}

func (s *Session) logError(err error) {
	layer, where := classify(err)
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    s.config.Clock(),
		ConnectionID: s.conn.ID(),
		SessionID:    s.sessionID(),
		Layer:        layer,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: where,
		},
	})
}
