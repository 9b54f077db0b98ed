package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cagent-dev/claude-agent-sdk-go/internal/errors"
)

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by the CLITransport but allows for testing
// with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan map[string]any, <-chan error)
	SendMessage(ctx context.Context, data []byte) error
}

// awaitingResponse tracks one outstanding outbound control request.
type awaitingResponse struct {
	subtype  string
	deliver  chan *ControlResponse
	deadline time.Time
}

// responseTable is the set of outbound control requests awaiting a
// control_response, keyed by request ID.
type responseTable struct {
	mu      sync.RWMutex
	waiting map[string]*awaitingResponse
}

func newResponseTable() *responseTable {
	return &responseTable{waiting: make(map[string]*awaitingResponse, 10)}
}

func (t *responseTable) add(requestID string, w *awaitingResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.waiting[requestID] = w
}

// take removes and returns the waiter for requestID, if any.
func (t *responseTable) take(requestID string) (*awaitingResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.waiting[requestID]
	if ok {
		delete(t.waiting, requestID)
	}

	return w, ok
}

func (t *responseTable) drop(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.waiting, requestID)
}

// runningOp tracks one incoming control request currently being handled by a
// registered RequestHandler, so a later control_cancel_request can reach it.
type runningOp struct {
	subtype   string
	cancel    context.CancelFunc
	startedAt time.Time
	done      bool
}

// opTable is the set of in-flight incoming operations, keyed by request ID.
type opTable struct {
	mu  sync.Mutex
	ops map[string]*runningOp
}

func newOpTable() *opTable {
	return &opTable{ops: make(map[string]*runningOp, 10)}
}

func (t *opTable) start(requestID, subtype string, cancel context.CancelFunc) *runningOp {
	op := &runningOp{subtype: subtype, cancel: cancel, startedAt: time.Now()}

	t.mu.Lock()
	t.ops[requestID] = op
	t.mu.Unlock()

	return op
}

func (t *opTable) finish(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if op, ok := t.ops[requestID]; ok {
		op.done = true
		op.cancel()

		delete(t.ops, requestID)
	}
}

// requestCancel cancels the running operation for requestID, reporting
// whether it existed and whether it had already finished.
func (t *opTable) requestCancel(requestID string) (found, alreadyDone bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[requestID]
	if !ok {
		return false, false
	}

	if !op.done {
		op.cancel()
	}

	return true, op.done
}

func (t *opTable) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, op := range t.ops {
		if !op.done {
			op.cancel()
		}
	}
}

// Controller manages bidirectional control message communication with the Claude CLI.
//
// The Controller handles:
//   - Sending control_request messages with unique request IDs
//   - Receiving and routing control_response messages to waiting requests
//   - Request timeout enforcement
//   - Handler registration for incoming control_request messages from the CLI
//   - Forwarding non-control messages to consumers via the Messages channel
//
// The Controller must be started with Start() before use and manages its own
// goroutine for reading and routing messages.
type Controller struct {
	log       *slog.Logger
	transport Transport

	awaiting *responseTable
	running  *opTable

	handlersMu sync.RWMutex
	handlers   map[string]RequestHandler

	// Non-control messages forwarded to consumers.
	messages chan map[string]any

	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewController creates a new protocol controller.
//
// The logger will receive debug, info, warn, and error messages during
// protocol operations. The transport must be connected before calling Start().
func NewController(log *slog.Logger, transport Transport) *Controller {
	return &Controller{
		log:       log.With("component", "protocol"),
		transport: transport,
		awaiting:  newResponseTable(),
		running:   newOpTable(),
		handlers:  make(map[string]RequestHandler, 10),
		messages:  make(chan map[string]any, 100), // buffered to avoid blocking during initialization
		done:      make(chan struct{}),
	}
}

func (c *Controller) closeDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins reading messages from the transport and routing control messages.
//
// This method spawns a goroutine that reads from the transport and routes
// control_request and control_response messages. The goroutine stops when
// the context is cancelled or the transport is closed.
//
// Start must be called before SendRequest or any handlers will work.
func (c *Controller) Start(ctx context.Context) error {
	c.log.Debug("Starting protocol controller")

	messages, errs := c.transport.ReadMessages(ctx)

	c.wg.Add(1)

	go c.readLoop(ctx, messages, errs)

	c.log.Info("Protocol controller started")

	return nil
}

// Stop gracefully shuts down the controller.
//
// This method signals the read loop to stop, cancels all in-flight operations,
// and waits for completion. It's safe to call Stop multiple times.
func (c *Controller) Stop() {
	c.log.Debug("Stopping protocol controller")

	c.closeDone()

	c.CancelAllInFlight()
	c.wg.Wait()
	c.log.Info("Protocol controller stopped")
}

// Messages returns a channel for receiving non-control messages.
//
// The controller acts as a multiplexer: it reads all messages from the transport,
// handles control messages internally, and forwards regular messages through this
// channel. Consumers should read from this channel instead of calling
// transport.ReadMessages() directly.
//
// The channel is closed when the controller stops or the transport closes.
// Use Done() and FatalError() to detect and retrieve transport errors.
func (c *Controller) Messages() <-chan map[string]any {
	return c.messages
}

// SendRequest sends a control request and waits for the response.
//
// The timeout parameter bounds how long SendRequest waits for a
// control_response; use context cancellation for the overall operation
// deadline. Returns an error if the request fails to send, times out, the
// controller stops first, or the CLI replies with an error response.
func (c *Controller) SendRequest(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	timeout time.Duration,
) (*ControlResponse, error) {
	requestID := ulid.Make().String()

	c.log.Debug("Sending control request", "request_id", requestID, "subtype", subtype)

	deliver := make(chan *ControlResponse, 1)
	c.awaiting.add(requestID, &awaitingResponse{subtype: subtype, deliver: deliver, deadline: time.Now().Add(timeout)})

	req := newControlRequest(requestID, subtype, payload)

	data, err := json.Marshal(req)
	if err != nil {
		c.awaiting.drop(requestID)

		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		c.awaiting.drop(requestID)

		return nil, fmt.Errorf("send request: %w", err)
	}

	return c.awaitResponse(ctx, requestID, subtype, deliver, timeout)
}

// awaitResponse blocks until requestID's response arrives, the controller
// stops, the timeout elapses, or ctx is cancelled — cleaning up the pending
// entry on every path but the first.
func (c *Controller) awaitResponse(
	ctx context.Context,
	requestID, subtype string,
	deliver <-chan *ControlResponse,
	timeout time.Duration,
) (*ControlResponse, error) {
	select {
	case resp := <-deliver:
		if resp.IsError() {
			errMsg := resp.ErrorMessage()
			c.log.Warn("Control request returned error", "request_id", requestID, "error", errMsg)

			return nil, fmt.Errorf("request error: %s", errMsg)
		}

		c.log.Debug("Received control response", "request_id", requestID)

		return resp, nil

	case <-c.done:
		c.awaiting.drop(requestID)

		if err := c.FatalError(); err != nil {
			return nil, fmt.Errorf("transport error: %w", err)
		}

		return nil, &errors.ControlRequestClosed{RequestID: requestID, Subtype: subtype}

	case <-time.After(timeout):
		c.awaiting.drop(requestID)
		c.log.Warn("Control request timed out", "request_id", requestID, "timeout", timeout)

		return nil, &errors.ControlRequestTimeout{RequestID: requestID, Subtype: subtype, Deadline: timeout}

	case <-ctx.Done():
		c.awaiting.drop(requestID)

		return nil, ctx.Err()
	}
}

// RegisterHandler registers a handler for incoming control requests.
//
// When the CLI sends a control_request with the specified subtype, the handler
// will be invoked. The handler should return a payload map or an error.
//
// Only one handler can be registered per subtype. Registering a handler for
// the same subtype twice will override the previous handler.
func (c *Controller) RegisterHandler(subtype string, handler RequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.log.Debug("Registering control request handler", "subtype", subtype)
	c.handlers[subtype] = handler
}

func (c *Controller) readLoop(
	ctx context.Context,
	messages <-chan map[string]any,
	errs <-chan error,
) {
	defer c.wg.Done()
	defer close(c.messages)
	defer c.log.Debug("Protocol read loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Message channel closed")

				return
			}

			c.dispatch(ctx, msg)

		case err, ok := <-errs:
			if !ok {
				c.log.Debug("Error channel closed")

				return
			}

			if err != nil {
				// An undecodable or oversized stdout line is reported as a
				// CLIJSONDecodeError; the transport has already moved past it.
				if decodeErr, isDecode := err.(*errors.CLIJSONDecodeError); isDecode {
					c.log.Warn("Skipping undecodable CLI output line", "error", decodeErr)

					continue
				}

				c.log.Debug("Transport error in protocol", "error", err)
				c.SetFatalError(err)

				return
			}

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return

		case <-ctx.Done():
			c.log.Debug("Context cancelled in protocol read loop")

			return
		}
	}
}

// dispatch routes one decoded frame from the transport by its "type" field.
func (c *Controller) dispatch(ctx context.Context, msg map[string]any) {
	switch msgType, _ := msg["type"].(string); msgType {
	case "control_response":
		c.resolveResponse(msg)

	case "control_request":
		c.serveRequest(ctx, msg)

	case "control_cancel_request":
		c.serveCancel(ctx, msg)

	default:
		select {
		case c.messages <- msg:
		case <-c.done:
		case <-ctx.Done():
		}
	}
}

// resolveResponse delivers an incoming control_response to its waiter.
func (c *Controller) resolveResponse(msg map[string]any) {
	responseData, ok := msg["response"].(map[string]any)
	if !ok {
		c.log.Warn("Control response missing 'response' field")

		return
	}

	requestID, ok := responseData["request_id"].(string)
	if !ok {
		c.log.Warn("Control response missing request_id in response")

		return
	}

	waiter, ok := c.awaiting.take(requestID)
	if !ok {
		c.log.Warn("No pending request for control response", "request_id", requestID)

		return
	}

	waiter.deliver <- &ControlResponse{Type: "control_response", Response: responseData}
}

// serveRequest looks up and runs the handler for an incoming control_request,
// replying with a success or error control_response.
func (c *Controller) serveRequest(ctx context.Context, msg map[string]any) {
	requestID, ok := msg["request_id"].(string)
	if !ok {
		c.log.Warn("Control request missing request_id")

		return
	}

	requestData, ok := msg["request"].(map[string]any)
	if !ok {
		c.log.Warn("Control request missing 'request' field")

		return
	}

	req := &ControlRequest{Type: "control_request", RequestID: requestID, Request: requestData}
	subtype := req.Subtype()

	c.log.Debug("Received control request from CLI", "request_id", requestID, "subtype", subtype)

	c.handlersMu.RLock()
	handler, exists := c.handlers[subtype]
	c.handlersMu.RUnlock()

	if !exists {
		c.log.Warn("No handler registered for control request subtype", "subtype", subtype)
		c.reply(ctx, newErrorResponse(requestID, "no handler registered"))

		return
	}

	opCtx, cancel := context.WithCancel(ctx)
	c.running.start(requestID, subtype, cancel)

	// Run the handler on its own goroutine so the read loop stays free to
	// process a control_cancel_request for it in the meantime.
	c.wg.Go(func() {
		defer c.running.finish(requestID)

		payload, err := handler(opCtx, req)

		if opCtx.Err() == context.Canceled {
			c.log.Debug("Handler was cancelled", "request_id", requestID)
			c.reply(ctx, newErrorResponse(requestID, errors.ErrOperationCancelled.Error()))

			return
		}

		if err != nil {
			c.log.Warn("Handler returned error", "request_id", requestID, "error", err.Error())
			c.reply(ctx, newErrorResponse(requestID, err.Error()))

			return
		}

		c.reply(ctx, newSuccessResponse(requestID, payload))
	})
}

// serveCancel handles a control_cancel_request from the CLI, cancelling the
// named in-flight operation if it is still running.
func (c *Controller) serveCancel(ctx context.Context, msg map[string]any) {
	requestID, ok := msg["request_id"].(string)
	if !ok {
		c.log.Warn("Cancel request missing request_id")

		return
	}

	found, alreadyDone := c.running.requestCancel(requestID)

	c.log.Debug("Cancel request processed",
		"request_id", requestID,
		"found", found,
		"already_completed", alreadyDone,
	)

	c.reply(ctx, newCancelAcknowledgment(requestID, found, alreadyDone))
}

// reply marshals and sends a control_response, logging (rather than
// returning) any failure since replies are fire-and-forget from the read
// loop's perspective.
func (c *Controller) reply(ctx context.Context, resp *ControlResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("Failed to marshal control response", "error", err)

		return
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		if ctx.Err() != nil {
			c.log.Debug("Could not send control response during shutdown", "error", err)

			return
		}

		c.log.Error("Failed to send control response", "error", err)
	}
}

// CancelAllInFlight cancels all in-flight operations.
// This is called during Stop() to ensure clean shutdown.
func (c *Controller) CancelAllInFlight() {
	c.running.cancelAll()
}
