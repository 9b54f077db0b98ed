package claudesdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cagent-dev/claude-agent-sdk-go/internal/config"
	sdkerrors "github.com/cagent-dev/claude-agent-sdk-go/internal/errors"
	internalmcp "github.com/cagent-dev/claude-agent-sdk-go/internal/mcp"
	"github.com/cagent-dev/claude-agent-sdk-go/internal/message"
	"github.com/cagent-dev/claude-agent-sdk-go/internal/protocol"
	"github.com/cagent-dev/claude-agent-sdk-go/internal/subprocess"
)

// streamCloseTimeoutEnvVar overrides how long QueryStream waits for a result
// message before closing stdin when hooks/MCP/permission callbacks are active.
const streamCloseTimeoutEnvVar = "CLAUDE_CODE_STREAM_CLOSE_TIMEOUT"

const defaultStreamCloseTimeout = 60 * time.Second

func streamCloseTimeout() time.Duration {
	raw := os.Getenv(streamCloseTimeoutEnvVar)
	if raw == "" {
		return defaultStreamCloseTimeout
	}

	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return defaultStreamCloseTimeout
	}

	return time.Duration(secs) * time.Second
}

func componentLogger(options *ClaudeAgentOptions, component string) *slog.Logger {
	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	return log.With("component", component)
}

// prepareOptions applies functional options and rejects incompatible
// combinations before a run is attempted.
func prepareOptions(opts []Option) (*ClaudeAgentOptions, error) {
	options := applyAgentOptions(opts)

	if err := validateAndConfigureOptions(options); err != nil {
		return nil, err
	}

	return options, nil
}

// validateAndConfigureOptions rejects incompatible option combinations and,
// on success, may mutate options in place — e.g. deriving
// PermissionPromptToolName from a configured CanUseTool callback.
func validateAndConfigureOptions(options *ClaudeAgentOptions) error {
	if options.CanUseTool != nil && options.PermissionPromptToolName != "" {
		return fmt.Errorf("can_use_tool callback cannot be used with permission_prompt_tool_name")
	}

	if options.CanUseTool != nil {
		options.PermissionPromptToolName = "stdio"
	}

	return nil
}

// registersSDKServer reports whether any configured MCP server is an
// in-process SDK server, which forces streaming mode regardless of the
// caller's Query/QueryStream choice.
func registersSDKServer(options *ClaudeAgentOptions) bool {
	for _, entry := range options.MCPServers {
		sdkConfig, ok := entry.(*internalmcp.SdkServerConfig)
		if !ok || sdkConfig == nil {
			continue
		}

		if _, ok := sdkConfig.Instance.(internalmcp.ServerInstance); ok {
			return true
		}
	}

	return false
}

// needsBidirectionalStdin reports whether a one-shot Query must be upgraded
// to streaming mode, because --print mode has no channel for the CLI to ask
// the SDK anything mid-turn (hook decisions, permission prompts, agent
// selection, or in-process tool calls).
func needsBidirectionalStdin(options *ClaudeAgentOptions) bool {
	if options == nil {
		return false
	}

	return len(options.Hooks) > 0 ||
		options.CanUseTool != nil ||
		len(options.Agents) > 0 ||
		registersSDKServer(options)
}

// queryRuntime owns the transport/controller/session triple shared by Query
// and QueryStream once options have been resolved, plus the logic to drain
// the controller's message channel into a Message/error iterator.
type queryRuntime struct {
	log        *slog.Logger
	transport  config.Transport
	controller *protocol.Controller
	session    *protocol.Session
}

func startRuntime(ctx context.Context, log *slog.Logger, transport config.Transport, options *ClaudeAgentOptions) (*queryRuntime, error) {
	if err := transport.Start(ctx); err != nil {
		return nil, err
	}

	controller := protocol.NewController(log, transport)
	if err := controller.Start(ctx); err != nil {
		_ = transport.Close()

		return nil, fmt.Errorf("start protocol controller: %w", err)
	}

	session := protocol.NewSession(log, controller, options)
	session.RegisterMCPServers()
	session.RegisterHandlers()

	return &queryRuntime{log: log, transport: transport, controller: controller, session: session}, nil
}

func (r *queryRuntime) stop() {
	r.controller.Stop()
	_ = r.transport.Close()
}

// drain reads parsed messages off the controller until it closes, the
// context is cancelled, or the caller stops consuming the iterator. extraDone,
// when non-nil, is polled alongside the controller/context cases; once it
// fires, extraErr's error (if any) is yielded before returning — used by QueryStream to
// surface a failure from its stdin-feeding goroutine.
func (r *queryRuntime) drain(ctx context.Context, yield func(Message, error) bool, onMessage func(message.Message), extraDone <-chan struct{}, extraErr func() error) {
	raw := r.controller.Messages()

	for {
		select {
		case frame, ok := <-raw:
			if !ok {
				if err := r.controller.FatalError(); err != nil {
					r.log.Error("Error from transport", "error", err)
					yield(nil, err)
				}

				return
			}

			parsed, err := message.Parse(r.log, frame)
			if errors.Is(err, sdkerrors.ErrUnknownMessageType) {
				continue
			}

			if err != nil {
				r.log.Warn("Failed to parse message", "error", err)

				if !yield(nil, fmt.Errorf("parse message: %w", err)) {
					return
				}

				continue
			}

			if onMessage != nil {
				onMessage(parsed)
			}

			if !yield(parsed, nil) {
				r.log.Debug("Consumer stopped iteration")

				return
			}

		case <-r.controller.Done():
			if err := r.controller.FatalError(); err != nil {
				r.log.Error("Error from transport", "error", err)
				yield(nil, err)
			}

			return

		case <-ctx.Done():
			yield(nil, ctx.Err())

			return

		case <-extraDone:
			if err := extraErr(); err != nil {
				r.log.Error("Input goroutine failed", "error", err)
				yield(nil, err)
			}

			return
		}
	}
}

// Query executes a one-shot query to Claude and returns an iterator of messages.
//
// By default, logging is disabled. Use WithLogger to enable logging:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	for msg, err := range Query(ctx, "What is 2+2?",
//	    WithLogger(logger),
//	    WithPermissionMode("acceptEdits"),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // handle msg
//	}
//
// The iterator yields messages as they arrive from Claude, including assistant
// responses, tool use, and a final result message. Errors encountered while
// setting up the run, or while parsing a single message, are yielded inline
// rather than returned, so a caller can decide per-error whether to keep
// ranging over the iterator.
//
// If options require mid-turn callbacks (hooks, CanUseTool, agent
// definitions, or an in-process SDK MCP server) Query transparently routes
// the single prompt through QueryStream's bidirectional transport, since
// --print mode has no channel for the CLI to call back into the SDK.
func Query(
	ctx context.Context,
	prompt string,
	opts ...Option,
) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		options, err := prepareOptions(opts)
		if err != nil {
			yield(nil, err)

			return
		}

		if needsBidirectionalStdin(options) {
			for msg, err := range QueryStream(ctx, MessagesFromSlice([]StreamingMessage{NewUserMessage(prompt)}), opts...) {
				if !yield(msg, err) {
					return
				}
			}

			return
		}

		log := componentLogger(options, "query")
		log.Debug("Starting one-shot query")

		var transport config.Transport
		if options.Transport != nil {
			transport = options.Transport

			log.Debug("Using injected custom transport")
		} else {
			transport = subprocess.NewCLITransport(log, prompt, options)
		}

		runtime, err := startRuntime(ctx, log, transport, options)
		if err != nil {
			log.Error("Failed to start query runtime", "error", err)
			yield(nil, err)

			return
		}

		defer runtime.stop()

		if runtime.session.NeedsInitialization() {
			log.Debug("Initializing session for hooks/callbacks")

			if err := runtime.session.Initialize(ctx); err != nil {
				yield(nil, fmt.Errorf("initialize session: %w", err))

				return
			}
		}

		log.Debug("Closing stdin for one-shot query mode")

		if err := transport.EndInput(); err != nil {
			yield(nil, fmt.Errorf("close stdin: %w", err))

			return
		}

		runtime.drain(ctx, yield, nil, nil, nil)
	}
}

// stdinFeeder streams a StreamingMessage iterator to the transport's stdin,
// optionally holding stdin open until a result message has been observed
// (needed when hooks/MCP/permission callbacks may still fire after the
// caller's last message has been sent).
type stdinFeeder struct {
	transport      config.Transport
	log            *slog.Logger
	holdForResult  bool
	resultReceived chan struct{}
	closeOnce      sync.Once
}

func newStdinFeeder(transport config.Transport, log *slog.Logger, holdForResult bool) *stdinFeeder {
	f := &stdinFeeder{transport: transport, log: log, holdForResult: holdForResult}
	if holdForResult {
		f.resultReceived = make(chan struct{})
	}

	return f
}

func (f *stdinFeeder) noteResult() {
	if f.resultReceived == nil {
		return
	}

	f.closeOnce.Do(func() { close(f.resultReceived) })
}

func (f *stdinFeeder) run(ctx context.Context, messages iter.Seq[StreamingMessage]) (err error) {
	defer func() {
		if endErr := f.transport.EndInput(); endErr != nil && err == nil {
			err = fmt.Errorf("end input: %w", endErr)
		}
	}()

	for msg := range messages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, marshalErr := json.Marshal(msg)
		if marshalErr != nil {
			return fmt.Errorf("marshal streaming message: %w", marshalErr)
		}

		if sendErr := f.transport.SendMessage(ctx, data); sendErr != nil {
			return fmt.Errorf("send streaming message: %w", sendErr)
		}
	}

	f.log.Debug("Finished streaming all input messages")

	if !f.holdForResult {
		return nil
	}

	select {
	case <-f.resultReceived:
		f.log.Debug("Result observed, closing stdin")
	case <-time.After(streamCloseTimeout()):
		f.log.Warn("Timed out waiting for result before closing stdin")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// QueryStream executes a streaming query with multiple input messages.
//
// The messages iterator yields StreamingMessage values that are sent to Claude
// via stdin in streaming mode (--input-format stream-json). By default,
// logging is disabled; use WithLogger to enable it.
//
// QueryStream always initializes the session, since streaming mode exists
// precisely to support hooks, CanUseTool callbacks, agent definitions, and
// in-process SDK MCP servers via the bidirectional control protocol.
//
// Example usage:
//
//	ctx := context.Background()
//	messages := claudesdk.MessagesFromSlice([]claudesdk.StreamingMessage{
//	    claudesdk.NewUserMessage("Hello"),
//	    claudesdk.NewUserMessage("How are you?"),
//	})
//
//	for msg, err := range claudesdk.QueryStream(ctx, messages,
//	    claudesdk.WithPermissionMode("acceptEdits"),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // Handle messages
//	}
//
// As with Query, setup and per-message parse errors are yielded inline
// rather than returned; a caller can break out of the range loop at any
// point to stop early.
func QueryStream(
	ctx context.Context,
	messages iter.Seq[StreamingMessage],
	opts ...Option,
) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		options, err := prepareOptions(opts)
		if err != nil {
			yield(nil, err)

			return
		}

		log := componentLogger(options, "query_stream")
		log.Debug("Starting streaming query")

		var transport config.Transport
		if options.Transport != nil {
			transport = options.Transport

			log.Debug("Using injected custom transport")
		} else {
			transport = subprocess.NewCLITransportWithMode(log, "", options, true)
		}

		runtime, err := startRuntime(ctx, log, transport, options)
		if err != nil {
			log.Error("Failed to start streaming runtime", "error", err)
			yield(nil, err)

			return
		}

		defer runtime.stop()

		log.Debug("Initializing streaming session")

		if err := runtime.session.Initialize(ctx); err != nil {
			yield(nil, fmt.Errorf("initialize session: %w", err))

			return
		}

		// Bidirectional callback surfaces (MCP tool calls, hook decisions,
		// permission prompts) may still fire after the last input message is
		// sent, so stdin is held open until a result arrives.
		needsResultGate := len(options.MCPServers) > 0 || len(options.Hooks) > 0 || options.CanUseTool != nil
		feeder := newStdinFeeder(transport, log, needsResultGate)

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error { return feeder.run(gCtx, messages) })

		defer func() { _ = g.Wait() }()
		defer feeder.noteResult()

		onMessage := func(msg message.Message) {
			if needsResultGate {
				if _, isResult := msg.(*message.ResultMessage); isResult {
					feeder.noteResult()
				}
			}
		}

		runtime.drain(ctx, yield, onMessage, gCtx.Done(), func() error {
			if err := g.Wait(); err != nil {
				return err
			}

			return nil
		})
	}
}
