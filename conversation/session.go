package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/atmosuwiryo/onboarding-chatbot/logger"
	"github.com/atmosuwiryo/onboarding-chatbot/onboarding"
	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

// State is the position of a session in the conversation loop.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateAwaitingUser  State = "awaiting_user"
	StateCompleted     State = "completed"
	StateExited        State = "exited"
)

// Finished reports whether no more input is accepted in this state.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateExited
}

// ErrSessionFinished is returned by Start and Submit once the session has
// completed or exited.
var ErrSessionFinished = errors.New("session finished")

const DefaultMaxToolRounds = 3

// FallbackReply stands in for a model turn that left the user without text
// to answer.
const FallbackReply = "Sorry, I lost my train of thought. Could you tell me a bit more about your business?"

// Config holds configuration for a session.
type Config struct {
	Provider      string  `json:"provider,omitempty"`
	Model         string  `json:"model,omitempty"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	ExitSentinel  string  `json:"exit_sentinel"`
	MaxToolRounds int     `json:"max_tool_rounds"` // rejected tool rounds per user input
}

func DefaultConfig() Config {
	return Config{
		Temperature:   0,
		MaxTokens:     1024,
		ExitSentinel:  "exit",
		MaxToolRounds: DefaultMaxToolRounds,
	}
}

// Completer is the completion service a session talks to.
// *unifiedllm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// Outcome is the result of one step of the loop.
type Outcome struct {
	State  State
	Reply  string
	Record *onboarding.Record
}

// Completed reports whether the step produced a validated record.
func (o Outcome) Completed() bool {
	return o.State == StateCompleted && o.Record != nil
}

// Option configures a Session.
type Option func(*Session)

// WithTools replaces the default tool registry.
func WithTools(r *ToolRegistry) Option {
	return func(s *Session) { s.tools = r }
}

// Session owns one onboarding conversation: its transcript, its state and
// the record once the model completes it.
type Session struct {
	id          string
	client      Completer
	config      Config
	tools       *ToolRegistry
	instruction string
	seed        string
	started     bool
	transcript  Transcript
	state       State
	usage       unifiedllm.Usage
	record      *onboarding.Record
	mu          sync.Mutex
}

// NewSession creates a session with a fresh thread ID.
func NewSession(client Completer, config Config, opts ...Option) *Session {
	if config.ExitSentinel == "" {
		config.ExitSentinel = "exit"
	}
	if config.MaxToolRounds <= 0 {
		config.MaxToolRounds = DefaultMaxToolRounds
	}
	s := &Session{
		id:          uuid.New().String(),
		client:      client,
		config:      config,
		tools:       DefaultToolRegistry(),
		instruction: onboarding.SystemInstruction(),
		seed:        onboarding.SeedMessage,
		state:       StateAwaitingModel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the conversation thread identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the history.
func (s *Session) Transcript() Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr := make(Transcript, len(s.transcript))
	copy(tr, s.transcript)
	return tr
}

// Usage returns the token usage summed over every model call.
func (s *Session) Usage() unifiedllm.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Record returns the validated record, or nil before completion.
func (s *Session) Record() *onboarding.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Start sends the seed message and returns the model's opening reply.
func (s *Session) Start(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state.Finished() {
		s.mu.Unlock()
		return Outcome{State: s.state}, ErrSessionFinished
	}
	if s.started {
		s.mu.Unlock()
		return Outcome{State: s.state}, fmt.Errorf("session %s already started", s.id)
	}
	s.started = true
	s.transcript = append(s.transcript, NewUserTurn(s.seed))
	s.mu.Unlock()

	logger.FromContext(ctx).Debug("session started", "thread_id", s.id)
	return s.respond(ctx)
}

// Submit processes one line of user input. The exit sentinel ends the
// session without calling the model; blank input is ignored.
func (s *Session) Submit(ctx context.Context, input string) (Outcome, error) {
	s.mu.Lock()
	if s.state.Finished() {
		s.mu.Unlock()
		return Outcome{State: s.state}, ErrSessionFinished
	}
	if s.state != StateAwaitingUser {
		state := s.state
		s.mu.Unlock()
		return Outcome{State: state}, fmt.Errorf("session %s is %s, not awaiting user input", s.id, state)
	}

	text := strings.TrimSpace(input)
	if strings.EqualFold(text, s.config.ExitSentinel) {
		s.state = StateExited
		s.mu.Unlock()
		logger.FromContext(ctx).Info("session exited by user", "thread_id", s.id)
		return Outcome{State: StateExited}, nil
	}
	if text == "" {
		s.mu.Unlock()
		return Outcome{State: StateAwaitingUser}, nil
	}

	s.transcript = append(s.transcript, NewUserTurn(text))
	s.mu.Unlock()

	return s.respond(ctx)
}

// respond invokes the model until it answers in text or completes the
// record. Rejected tool calls are reported back to the model; after
// MaxToolRounds rejections the model is asked to reply without tools.
func (s *Session) respond(ctx context.Context) (Outcome, error) {
	log := logger.FromContext(ctx)

	for round := 0; ; round++ {
		choice := "auto"
		if round >= s.config.MaxToolRounds {
			choice = "none"
		}

		s.setState(StateAwaitingModel)
		resp, err := s.client.Complete(ctx, s.buildRequest(choice))
		if err != nil {
			s.setState(StateAwaitingUser)
			return Outcome{State: StateAwaitingUser}, fmt.Errorf("completion request failed: %w", err)
		}

		calls := resp.ToolCallsFromResponse()
		s.mu.Lock()
		s.transcript = append(s.transcript, NewAssistantTurn(resp.Text(), calls, resp.Usage, resp.ID))
		s.usage = s.usage.Add(resp.Usage)
		s.mu.Unlock()

		if len(calls) == 0 {
			s.setState(StateAwaitingUser)
			return s.awaitUser(ctx, resp.Text()), nil
		}

		record, results := s.handleToolCalls(ctx, calls)
		s.mu.Lock()
		s.transcript = append(s.transcript, NewToolResultsTurn(results))
		if record != nil {
			s.record = record
			s.state = StateCompleted
		}
		s.mu.Unlock()

		if record != nil {
			log.Info("onboarding completed", "thread_id", s.id, "business", record.BusinessName)
			return Outcome{State: StateCompleted, Reply: resp.Text(), Record: record}, nil
		}
		if choice == "none" {
			log.Warn("model kept calling tools after rejections", "thread_id", s.id, "rounds", round+1)
			s.setState(StateAwaitingUser)
			return s.awaitUser(ctx, resp.Text()), nil
		}
	}
}

// awaitUser hands the turn back to the user. An empty reply is replaced so
// the user always has something to answer.
func (s *Session) awaitUser(ctx context.Context, reply string) Outcome {
	if strings.TrimSpace(reply) == "" {
		logger.FromContext(ctx).Warn("model returned no text", "thread_id", s.id)
		reply = FallbackReply
	}
	return Outcome{State: StateAwaitingUser, Reply: reply}
}

func (s *Session) buildRequest(choice string) unifiedllm.Request {
	s.mu.Lock()
	history := s.transcript.Messages()
	s.mu.Unlock()

	messages := make([]unifiedllm.Message, 0, len(history)+1)
	messages = append(messages, unifiedllm.SystemMessage(s.instruction))
	messages = append(messages, history...)

	req := unifiedllm.Request{
		Model:       s.config.Model,
		Provider:    s.config.Provider,
		Messages:    messages,
		ToolDefs:    s.tools.Definitions(),
		ToolChoice:  &unifiedllm.ToolChoice{Mode: choice},
		Temperature: &s.config.Temperature,
		Metadata:    map[string]string{"thread_id": s.id},
	}
	if s.config.MaxTokens > 0 {
		req.MaxTokens = &s.config.MaxTokens
	}
	return req
}

// handleToolCalls answers every call. The first accepted completion wins.
func (s *Session) handleToolCalls(ctx context.Context, calls []unifiedllm.ToolCall) (*onboarding.Record, []unifiedllm.ToolResult) {
	log := logger.FromContext(ctx)
	var record *onboarding.Record
	results := make([]unifiedllm.ToolResult, 0, len(calls))

	for _, call := range calls {
		result := unifiedllm.ToolResult{ToolCallID: call.ID, Name: call.Name}

		tool := s.tools.Get(call.Name)
		switch {
		case tool == nil:
			result.Content = fmt.Sprintf("Unknown tool: %s", call.Name)
			result.IsError = true
		case record != nil:
			result.Content = "Ignored: onboarding is already complete."
			result.IsError = true
		default:
			rec, err := tool.Handler(call.Arguments)
			if err != nil {
				result.Content = err.Error()
				result.IsError = true
				break
			}
			record = rec
			result.Content = "Onboarding record accepted."
		}

		if result.IsError {
			log.Warn("tool call rejected", "thread_id", s.id, "tool", call.Name, "reason", result.Content)
		}
		results = append(results, result)
	}
	return record, results
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Console is the blocking line-oriented I/O a session runs against.
type Console interface {
	// ReadLine blocks for the next line of input. It returns io.EOF when
	// input is exhausted.
	ReadLine(ctx context.Context) (string, error)
	Reply(text string)
}

// Run drives the loop against a console until the record is completed,
// the user exits, or input ends. End of input counts as an exit.
func (s *Session) Run(ctx context.Context, c Console) (Outcome, error) {
	out, err := s.Start(ctx)
	if err != nil {
		return out, err
	}
	if out.Reply != "" {
		c.Reply(out.Reply)
	}

	for out.State == StateAwaitingUser {
		line, err := c.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.setState(StateExited)
				logger.FromContext(ctx).Info("input closed", "thread_id", s.id)
				return Outcome{State: StateExited}, nil
			}
			return out, fmt.Errorf("failed to read input: %w", err)
		}

		out, err = s.Submit(ctx, line)
		if err != nil {
			return out, err
		}
		if out.Reply != "" {
			c.Reply(out.Reply)
		}
	}
	return out, nil
}
