package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"speak-translate/internal/domain"
)

var (
	ErrCaptureUnavailable = errors.New("speech capture unavailable")
	ErrNotRunning         = errors.New("controller not running")

	// ErrRecognizerBusy is returned by a Recognizer that is still finishing
	// the previous utterance.
	ErrRecognizerBusy = errors.New("recognizer busy")
)

type commandKind int

const (
	commandStart commandKind = iota
	commandStop
)

type command struct {
	kind  commandKind
	reply chan error
}

type translationResult struct {
	requestID string
	outcome   domain.Outcome
}

type pendingTranslation struct {
	domain.Utterance
	cancel context.CancelFunc
}

type ControllerOptions struct {
	Recognition domain.RecognitionConfig
	// CancelSuperseded aborts an in-flight translation when a newer
	// utterance arrives. Stale outcomes are discarded either way.
	CancelSuperseded bool
}

// Controller drives capture -> translate -> speak. All state transitions
// happen on the goroutine running Run.
type Controller struct {
	recognizer Recognizer
	translator Translator
	output     SpeechOutput
	display    Display
	logger     *slog.Logger
	opts       ControllerOptions

	commands chan command
	results  chan translationResult
	done     chan struct{}

	mu             sync.RWMutex
	state          domain.State
	sourceText     string
	translatedText string

	captureAvailable bool
	pending          *pendingTranslation
}

func NewController(
	recognizer Recognizer,
	translator Translator,
	output SpeechOutput,
	display Display,
	logger *slog.Logger,
	opts ControllerOptions,
) *Controller {
	if display == nil {
		display = &NoopDisplay{}
	}
	return &Controller{
		recognizer: recognizer,
		translator: translator,
		output:     output,
		display:    display,
		logger:     logger,
		opts:       opts,
		commands:   make(chan command),
		results:    make(chan translationResult, 4),
		done:       make(chan struct{}),
	}
}

func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.teardown()

	c.output.Init(ctx)

	if err := c.recognizer.Open(ctx); err != nil {
		c.logger.Warn("speech capture unavailable", "error", err)
	} else {
		c.captureAvailable = true
	}

	c.logger.Info("controller ready", "state", c.State())

	events := c.recognizer.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.commands:
			cmd.reply <- c.handleCommand(ctx, cmd.kind)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ctx, ev)
		case res := <-c.results:
			c.handleResult(ctx, res)
		}
	}
}

// Start begins a capture session.
func (c *Controller) Start(ctx context.Context) error {
	return c.send(ctx, commandStart)
}

// Stop ends the current capture session.
func (c *Controller) Stop(ctx context.Context) error {
	return c.send(ctx, commandStop)
}

func (c *Controller) State() domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.Snapshot{
		State:          c.state.String(),
		SourceText:     c.sourceText,
		TranslatedText: c.translatedText,
	}
}

func (c *Controller) send(ctx context.Context, kind commandKind) error {
	cmd := command{kind: kind, reply: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	case c.commands <- cmd:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.reply:
		return err
	}
}

func (c *Controller) handleCommand(ctx context.Context, kind commandKind) error {
	switch kind {
	case commandStart:
		if !c.captureAvailable {
			c.logger.Warn("start ignored", "error", ErrCaptureUnavailable)
			return ErrCaptureUnavailable
		}
		if c.State() == domain.StateListening {
			return nil
		}
		if err := c.recognizer.StartListening(ctx, c.opts.Recognition); err != nil {
			if errors.Is(err, ErrRecognizerBusy) {
				c.logger.Warn("start ignored, previous utterance still in progress")
				return err
			}
			c.logger.Error("starting capture", "error", err)
			return fmt.Errorf("starting capture: %w", err)
		}
		c.setState(domain.StateListening)
		return nil

	case commandStop:
		if c.State() != domain.StateListening {
			c.logger.Debug("stop ignored", "state", c.State())
			return nil
		}
		if err := c.recognizer.StopListening(); err != nil {
			c.logger.Error("stopping capture", "error", err)
		}
		c.setState(domain.StateIdle)
		return nil

	default:
		return fmt.Errorf("unknown command: %d", kind)
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev domain.RecognitionEvent) {
	switch ev.Kind {
	case domain.EventFinalResults:
		text, ok := domain.TopHypothesis(ev.Hypotheses)
		if !ok {
			c.logger.Debug("final results without a transcript")
			c.endListening()
			return
		}
		c.logger.Info("recognized", "text", text, "alternatives", len(ev.Hypotheses))
		c.setSourceText(text)
		c.translate(ctx, text)

	case domain.EventSpeechEnd:
		c.endListening()

	case domain.EventError:
		c.logger.Debug("recognition error", "error", ev.Err)
		c.endListening()

	default:
		c.logger.Debug("recognition event", "kind", ev.Kind)
	}
}

func (c *Controller) endListening() {
	if c.State() == domain.StateListening {
		c.setState(domain.StateIdle)
	}
}

func (c *Controller) translate(ctx context.Context, text string) {
	if prev := c.pending; prev != nil {
		c.logger.Info("translation superseded", "request_id", prev.RequestID, "text", prev.Text)
		if c.opts.CancelSuperseded {
			prev.cancel()
		}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	p := &pendingTranslation{
		Utterance: domain.Utterance{RequestID: uuid.NewString(), Text: text},
		cancel:    cancel,
	}
	c.pending = p
	c.setState(domain.StateTranslating)

	c.logger.Debug("requesting translation", "request_id", p.RequestID, "text", text)
	c.translator.Enqueue(reqCtx, text, &translationCallback{
		requestID: p.RequestID,
		results:   c.results,
		done:      c.done,
	})
}

func (c *Controller) handleResult(ctx context.Context, res translationResult) {
	if c.pending == nil || c.pending.RequestID != res.requestID {
		c.logger.Debug("discarding stale translation", "request_id", res.requestID)
		return
	}
	c.pending.cancel()
	c.pending = nil

	if c.State() == domain.StateTranslating {
		c.setState(domain.StateIdle)
	}

	if !res.outcome.OK {
		c.logger.Error("translation request failed", "request_id", res.requestID, "error", res.outcome.Message)
		return
	}

	c.logger.Debug("translation response", "request_id", res.requestID, "body", res.outcome.Body)

	translated, err := domain.ParseTranslation([]byte(res.outcome.Body))
	if err != nil {
		c.logger.Error("parsing translation", "request_id", res.requestID, "error", err)
		return
	}

	c.logger.Info("translated", "text", translated)
	c.setTranslatedText(translated)

	if err := c.output.Speak(ctx, translated); err != nil {
		c.logger.Error("speaking translation", "error", err)
	}
}

func (c *Controller) teardown() {
	if c.pending != nil {
		c.pending.cancel()
		c.pending = nil
	}

	if c.output.IsSpeaking() {
		if err := c.output.Stop(); err != nil {
			c.logger.Error("stopping speech output", "error", err)
		}
	}
	if err := c.output.Shutdown(); err != nil {
		c.logger.Error("shutting down speech output", "error", err)
	}

	if err := c.recognizer.Close(); err != nil {
		c.logger.Error("closing recognizer", "error", err)
	}

	c.setState(domain.StateIdle)
}

func (c *Controller) setState(state domain.State) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()

	if prev != state {
		c.logger.Debug("state changed", "from", prev, "to", state)
		c.display.SetState(state)
	}
}

func (c *Controller) setSourceText(text string) {
	c.mu.Lock()
	c.sourceText = text
	c.mu.Unlock()
	c.display.SetSourceText(text)
}

func (c *Controller) setTranslatedText(text string) {
	c.mu.Lock()
	c.translatedText = text
	c.mu.Unlock()
	c.display.SetTranslatedText(text)
}

// translationCallback hands an outcome back to the controller goroutine.
type translationCallback struct {
	requestID string
	results   chan<- translationResult
	done      <-chan struct{}
}

func (cb *translationCallback) OnSuccess(body string) {
	cb.deliver(domain.Success(body))
}

func (cb *translationCallback) OnFailure(message string) {
	cb.deliver(domain.Failure(message))
}

func (cb *translationCallback) deliver(outcome domain.Outcome) {
	select {
	case cb.results <- translationResult{requestID: cb.requestID, outcome: outcome}:
	case <-cb.done:
	}
}
