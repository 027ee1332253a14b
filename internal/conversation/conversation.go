// Package conversation is the per-session state machine behind the chat
// endpoint. A session is either idle or waiting for a yes/no answer to a
// conflict or suggestion question; every call works on one session under
// that session's lock.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/synth"
	"github.com/mohammad-safakhou/accountplan/session"
)

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "anon"

const (
	replyGreeting      = "👋 Hello! Tell me a company name, e.g. 'Create an account plan for Zoom'."
	replySmalltalk     = "I'm good — ready to research. Tell me a company."
	replyConfused      = "No worries. I can research any company and generate an account plan. Want to try something like: 'Create an account plan for Tesla'?"
	replyCurious       = "You sound curious! Tell me a company you'd like to explore."
	replyEfficient     = "Got it — I can make a short version. Tell me: 'Create a short account plan for <company>'."
	replyUnknown       = "I can generate account plans. Try: 'Create an account plan for Zoom'."
	replySkipDeeper    = "Okay, skipping deep research."
	replySkipSuggested = "Okay! Let me know if you want to research another company."
)

var (
	conflictYes   = []string{"yes", "go ahead", "dig deeper", "yes please"}
	conflictNo    = []string{"no", "skip"}
	suggestionYes = []string{"yes", "yeah", "yep", "sure", "go ahead", "do it", "please do"}
	suggestionNo  = []string{"no", "no thanks", "not now"}
)

// Message is one chat turn.
type Message struct {
	Text        string
	SessionID   string
	Attachments []collector.LocalSource
}

type Controller struct {
	store      session.Store
	synth      *synth.Synthesizer
	classifier intent.Classifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func New(store session.Store, s *synth.Synthesizer, classifier intent.Classifier, m *metrics.Metrics, logger *zap.Logger) *Controller {
	if classifier == nil {
		classifier = intent.Keywords{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{store: store, synth: s, classifier: classifier, metrics: m, logger: logger, now: time.Now}
}

// Handle answers a chat message. Returned errors are storage failures; all
// conversational outcomes, including model failures, are in the Result.
func (c *Controller) Handle(ctx context.Context, msg Message) (synth.Result, error) {
	var res synth.Result
	err := c.withSession(ctx, msg.SessionID, true, func(sess *session.Session) error {
		res = c.step(ctx, sess, msg)
		return nil
	})
	return res, err
}

func (c *Controller) step(ctx context.Context, sess *session.Session, msg Message) synth.Result {
	answer := strings.ToLower(strings.TrimSpace(msg.Text))

	if topic, ok := sess.Pending.Conflict(); ok {
		switch {
		case slices.Contains(conflictYes, answer):
			return c.synth.DigDeeper(ctx, sess, topic)
		case slices.Contains(conflictNo, answer):
			sess.Pending = session.NoPending()
			return synth.Result{Reply: replySkipDeeper, Plan: sess.Plan}
		default:
			return synth.Result{Reply: fmt.Sprintf("Say 'yes' to dig deeper into %s or 'no' to skip.", topic)}
		}
	}

	if company, ok := sess.Pending.Suggestion(); ok {
		switch {
		case slices.Contains(suggestionYes, answer):
			sess.Pending = session.NoPending()
			text := "create an account plan for " + company
			return c.synth.Synthesize(ctx, sess, synth.Request{
				Text:    text,
				Persona: c.classifier.Persona(text),
				Format:  c.classifier.Format(text),
			})
		case slices.Contains(suggestionNo, answer):
			sess.Pending = session.NoPending()
			return synth.Result{Reply: replySkipSuggested}
		default:
			return synth.Result{Reply: fmt.Sprintf("Should I research %s? Say yes or no.", company)}
		}
	}

	kind := c.classifier.Intent(msg.Text)
	c.metrics.Intent(string(kind))
	c.logger.Debug("intent detected", zap.String("session", sess.ID), zap.String("intent", string(kind)))

	switch kind {
	case intent.Greeting:
		return synth.Result{Reply: replyGreeting}
	case intent.Smalltalk:
		return synth.Result{Reply: replySmalltalk}
	case intent.Confused:
		return synth.Result{Reply: replyConfused}
	case intent.Chatty:
		company, ok := c.classifier.Company(msg.Text)
		if !ok {
			return synth.Result{Reply: replyCurious}
		}
		sess.Pending = session.AwaitingSuggestion(company)
		return synth.Result{Reply: fmt.Sprintf("You sound curious! It seems you're interested in %s. Want me to research it for you?", company)}
	case intent.Efficient:
		return synth.Result{Reply: replyEfficient}
	case intent.AccountPlan:
		return c.synth.Synthesize(ctx, sess, synth.Request{
			Text:         msg.Text,
			Persona:      c.classifier.Persona(msg.Text),
			Format:       c.classifier.Format(msg.Text),
			LocalSources: msg.Attachments,
		})
	default:
		return synth.Result{Reply: replyUnknown}
	}
}

// DigDeeper runs a deep-dive on topic for an existing session.
func (c *Controller) DigDeeper(ctx context.Context, sessionID, topic string) (synth.Result, error) {
	var res synth.Result
	err := c.withSession(ctx, sessionID, false, func(sess *session.Session) error {
		res = c.synth.DigDeeper(ctx, sess, topic)
		return nil
	})
	return res, err
}

// EditSection replaces one section of an existing session's plan.
func (c *Controller) EditSection(ctx context.Context, sessionID, section, content string) (synth.Result, error) {
	var res synth.Result
	err := c.withSession(ctx, sessionID, false, func(sess *session.Session) error {
		res = c.synth.Edit(ctx, sess, section, content)
		return nil
	})
	return res, err
}

// Reset forgets a session. Resetting an unknown session is not an error.
func (c *Controller) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	unlock, err := c.store.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()
	if err := c.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	c.logger.Info("session reset", zap.String("session", sessionID))
	return nil
}

// withSession locks id, loads the session and saves it after fn. When create
// is false a missing session is passed to fn as nil and nothing is saved.
func (c *Controller) withSession(ctx context.Context, id string, create bool, fn func(*session.Session) error) error {
	if id == "" {
		id = DefaultSessionID
	}
	unlock, err := c.store.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", id, err)
	}
	defer unlock()

	sess, err := c.store.Load(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		if !create {
			return fn(nil)
		}
		sess = session.New(id, c.now())
	case err != nil:
		return fmt.Errorf("load session %s: %w", id, err)
	}

	if err := fn(sess); err != nil {
		return err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}
