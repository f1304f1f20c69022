// Package harness runs one conversational session against a local model:
// load, prime with the seed prompt, then read operator turns until the sentinel.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SCADASolve/CASE/casellm/config"
	"github.com/SCADASolve/CASE/casellm/generation/harness/adapters"
	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
	"github.com/SCADASolve/CASE/casellm/metrics"
)

// Turn is one completed exchange as shown to the operator.
type Turn struct {
	Input   string
	Output  string
	Elapsed time.Duration
}

// Harness owns the model and its single chat session for the lifetime of a process.
// It is not safe for concurrent use.
type Harness struct {
	cfg     config.Config
	engine  ports.Engine
	reader  ports.LineReader
	display ports.Display
	tracer  ports.Tracer
	store   ports.TranscriptStore
	logger  zerolog.Logger
	now     func() time.Time

	state     State
	sessionID string
	primed    bool
	turn      int
	turns     []Turn
}

// Option customizes a Harness.
type Option func(*Harness)

func WithTracer(t ports.Tracer) Option { return func(h *Harness) { h.tracer = t } }

// WithTranscriptStore persists every completed turn.
func WithTranscriptStore(s ports.TranscriptStore) Option {
	return func(h *Harness) { h.store = s }
}

func WithLogger(l zerolog.Logger) Option { return func(h *Harness) { h.logger = l } }

// WithClock replaces the time source used for turn timing.
func WithClock(now func() time.Time) Option { return func(h *Harness) { h.now = now } }

// New wires a harness. cfg is copied; later changes to the caller's value have no effect.
func New(cfg config.Config, engine ports.Engine, reader ports.LineReader, display ports.Display, opts ...Option) *Harness {
	h := &Harness{
		cfg:       cfg,
		engine:    engine,
		reader:    reader,
		display:   display,
		tracer:    adapters.NoopTracer{},
		store:     adapters.NoopStore{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		state:     StateStart,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("session_id", h.sessionID).Logger()
	return h
}

// State returns the current lifecycle state.
func (h *Harness) State() State { return h.state }

// Turns returns the operator turns completed so far.
func (h *Harness) Turns() []Turn { return append([]Turn(nil), h.turns...) }

// SessionID identifies this run in logs and transcripts.
func (h *Harness) SessionID() string { return h.sessionID }

func (h *Harness) setState(s State) {
	h.logger.Debug().Stringer("from", h.state).Stringer("to", s).Msg("State transition")
	h.state = s
}

// Run drives the whole session: load, prime, then loop until the sentinel.
// The chat session and the model are released exactly once on every exit path.
func (h *Harness) Run(ctx context.Context) (err error) {
	if h.state != StateStart {
		return ErrAlreadyRun
	}

	ctx, finish := h.tracer.StartSpan(ctx, "harness.run", map[string]any{
		"session_id": h.sessionID,
		"model":      h.cfg.Model.Name,
	})
	defer func() { finish(err) }()

	defer func() {
		if err != nil {
			h.setState(StateFailed)
			return
		}
		h.setState(StateClosed)
	}()

	h.setState(StateLoading)
	model, err := h.Initialize(ctx)
	if err != nil {
		return err
	}
	defer h.release("model", model)

	seed, err := LoadSeedPrompt(h.cfg.Prompt.TrainingPath)
	if err != nil {
		return err
	}

	h.clearDisplay()

	if err := h.store.StartSession(ctx, h.sessionID, h.cfg.Model.Name); err != nil {
		h.logger.Warn().Err(err).Msg("Transcript disabled for this session")
		h.store = adapters.NoopStore{}
	}

	h.setState(StatePriming)
	session, _, err := h.PrimeSession(ctx, model, seed)
	if err != nil {
		return err
	}
	defer h.release("session", session)

	h.setState(StateInteractive)
	return h.RunLoop(ctx, session)
}

// Initialize loads the configured model.
func (h *Harness) Initialize(ctx context.Context) (ports.Model, error) {
	ctx, finish := h.tracer.StartSpan(ctx, "harness.initialize", map[string]any{
		"model":   h.cfg.Model.Name,
		"threads": h.cfg.Model.Threads,
		"device":  h.cfg.Model.Device,
	})

	start := h.now()
	model, err := h.engine.Load(ctx, h.cfg.Model)
	if err != nil {
		err = &ModelLoadError{Model: h.cfg.Model.Name, Err: err}
		finish(err)
		return nil, err
	}
	elapsed := h.now().Sub(start)
	finish(nil)

	metrics.RecordModelLoad(elapsed)
	h.logger.Info().Str("model", h.cfg.Model.Name).Dur("load_time", elapsed).Msg("Model loaded")
	return model, nil
}

// PrimeSession opens the chat session and submits the seed prompt as its first message.
// The returned duration covers only the seed generation. On failure the session is already closed.
func (h *Harness) PrimeSession(ctx context.Context, model ports.Model, seed string) (ports.ChatSession, time.Duration, error) {
	session, err := model.OpenSession(ctx)
	if err != nil {
		return nil, 0, &GenerationError{Turn: 0, Err: fmt.Errorf("open session: %w", err)}
	}

	out, elapsed, err := h.generate(ctx, session, 0, ports.RoleSeed, seed)
	if err != nil {
		h.release("session", session)
		return nil, 0, err
	}
	h.primed = true
	metrics.RecordPriming(elapsed)

	switch h.cfg.Session.PrimingOutput {
	case config.PrimingOutputResponse:
		err = h.emit(out, h.cfg.Session.DoneMarker)
	case config.PrimingOutputTiming:
		err = h.emit(formatSeconds(elapsed))
	}
	if err != nil {
		h.release("session", session)
		return nil, 0, err
	}

	return session, elapsed, nil
}

// RunLoop reads operator lines until the sentinel. Every other line, including
// empty ones, goes to the model verbatim.
func (h *Harness) RunLoop(ctx context.Context, session ports.ChatSession) error {
	if !h.primed {
		return ErrNotPrimed
	}

	sc := h.cfg.Session
	for {
		line, err := h.reader.ReadLine(sc.PromptLabel)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrInputClosed
			}
			return fmt.Errorf("failed to read operator input: %w", err)
		}

		h.clearDisplay()

		if line == sc.Sentinel {
			h.tracer.Event(ctx, "harness.sentinel", map[string]any{"turns": h.turn})
			h.logger.Info().Int("turns", h.turn).Msg("Sentinel received")
			return nil
		}

		h.turn++
		out, elapsed, err := h.generate(ctx, session, h.turn, ports.RoleUser, line)
		if err != nil {
			if sc.RecoverTurnErrors {
				h.logger.Error().Err(err).Int("turn", h.turn).Msg("Turn failed; continuing")
				continue
			}
			return err
		}
		metrics.RecordTurn(elapsed)
		h.turns = append(h.turns, Turn{Input: line, Output: out, Elapsed: elapsed})

		if err := h.emit("--- "+formatSeconds(elapsed)+" seconds ---", out, sc.DoneMarker); err != nil {
			return err
		}
	}
}

// generate times exactly one engine call and records the resulting turn.
func (h *Harness) generate(ctx context.Context, session ports.ChatSession, index int, role, input string) (string, time.Duration, error) {
	ctx, finish := h.tracer.StartSpan(ctx, "harness.generate", map[string]any{
		"turn":         index,
		"role":         role,
		"input_length": len(input),
	})

	start := h.now()
	out, err := session.Generate(ctx, input)
	elapsed := h.now().Sub(start)

	if err != nil {
		phase := "turn"
		if index == 0 {
			phase = "priming"
		}
		metrics.RecordGenerationError(phase)
		err = &GenerationError{Turn: index, Err: err}
		finish(err)
		return "", elapsed, err
	}
	h.tracer.Event(ctx, "harness.response", map[string]any{"turn": index, "output_length": len(out)})
	finish(nil)

	turn := ports.Turn{
		Index:     index,
		Role:      role,
		Input:     input,
		Output:    out,
		Elapsed:   elapsed,
		CreatedAt: start,
	}
	if err := h.store.SaveTurn(ctx, h.sessionID, turn); err != nil {
		h.logger.Warn().Err(err).Int("turn", index).Msg("Failed to save turn")
	}

	return out, elapsed, nil
}

// emit writes each part on its own line.
func (h *Harness) emit(lines ...string) error {
	for _, l := range lines {
		if _, err := io.WriteString(h.display, l+"\n"); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (h *Harness) clearDisplay() {
	if !h.cfg.Session.ClearDisplay {
		return
	}
	if err := h.display.Clear(); err != nil {
		h.logger.Debug().Err(err).Msg("Display clear failed")
	}
}

func (h *Harness) release(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		h.logger.Warn().Err(err).Str("resource", what).Msg("Release failed")
		return
	}
	h.logger.Debug().Str("resource", what).Msg("Released")
}

// formatSeconds renders d as fractional seconds, e.g. "1.2345".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
