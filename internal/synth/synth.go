// Package synth turns a request into an account plan: it collects sources,
// prompts the language model, checks the sources for conflicting facts and
// keeps the session's plan current. It also runs the dig-deeper and
// section-edit flows.
package synth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/plan"
	"github.com/mohammad-safakhou/accountplan/internal/progress"
	"github.com/mohammad-safakhou/accountplan/provider"
	"github.com/mohammad-safakhou/accountplan/session"
)

// Replies shown to the user.
const (
	ReplyOverloaded       = "⚠️ The AI is temporarily overloaded. Please try again in 5–10 seconds."
	ReplyPlanFailed       = "Failed to generate plan via LLM."
	ReplyDeeperNoSession  = "Session not found. Generate an account plan first."
	ReplyDeeperOverloaded = "⚠️ Deep-dive failed due to model overload. Try again shortly."
	ReplyDeeperFailed     = "Deep-dive failed."
	ReplyEditOverloaded   = "⚠️ AI temporarily overloaded. Please try again."
	ReplyEditFailed       = "Failed to re-summarize plan."
	ReplyEditDone         = "Section updated and plan re-summarized."
	ErrEditNoSession      = "Session not found. Generate a plan first."
	ErrEditUnknownSection = "Section not recognized."
)

// Result is the outcome of one flow. Failures the user should see are carried
// in Reply and Error rather than returned as Go errors.
type Result struct {
	Reply          string           `json:"reply,omitempty"`
	Plan           *plan.Document   `json:"account_plan,omitempty"`
	Conflicts      Conflicts        `json:"conflicts,omitempty"`
	Progress       []progress.Entry `json:"progress,omitempty"`
	Sources        []plan.SourceRef `json:"sources,omitempty"`
	Format         intent.Format    `json:"format,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Reconciliation string           `json:"reconciliation,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Request asks for a plan.
type Request struct {
	Text         string
	Persona      intent.Persona
	Format       intent.Format
	LocalSources []collector.LocalSource
}

type Config struct {
	TopK         int
	ContextChars int
	// UploadedFile, when set, is registered as a local source with every plan.
	UploadedFile string
}

type Synthesizer struct {
	llm       provider.Completer
	collector *collector.Collector
	docs      docstore.Store
	detector  ConflictDetector
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func New(llm provider.Completer, coll *collector.Collector, docs docstore.Store, detector ConflictDetector, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Synthesizer {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = 2000
	}
	if detector == nil {
		detector = Heuristic{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		llm:       llm,
		collector: coll,
		docs:      docs,
		detector:  detector,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Synthesize generates a plan for req and stores it in sess. On a model
// failure sess keeps its previous plan but loses any pending question.
func (s *Synthesizer) Synthesize(ctx context.Context, sess *session.Session, req Request) Result {
	if req.Persona == "" {
		req.Persona = intent.PersonaUnknown
	}
	if req.Format == "" {
		req.Format = intent.FormatDetailed
	}
	sess.Pending = session.NoPending()

	log := progress.New()
	log.Add("Received request, detecting company and preferences...")
	company := ExtractCompany(req.Text)
	log.Addf("Detected company: %s", company)
	if rivals := Competitors(company); len(rivals) > 0 {
		log.Addf("Found competitors: %s", strings.Join(rivals, ", "))
	}

	urls := seedURLs(company)
	log.Add("Preparing seed sources for scraping...")
	locals := append([]collector.LocalSource(nil), req.LocalSources...)
	if s.cfg.UploadedFile != "" {
		locals = append(locals, collector.LocalSource{URL: s.cfg.UploadedFile, Title: company + " - uploaded file"})
	}
	sources := s.collector.Collect(ctx, urls, locals, log)

	docs := s.retrieve(log)
	log.Add("Calling LLM to generate account plan...")
	text, err := s.llm.Complete(ctx, planMessages(req.Persona, req.Format, BuildContext(docs, s.cfg.ContextChars), req.Text),
		provider.Options{Temperature: planTemperature, MaxTokens: planMaxTokens})
	if err != nil {
		if errors.Is(err, provider.ErrOverloaded) {
			return Result{Reply: ReplyOverloaded, Progress: log.Entries(), Sources: sources}
		}
		log.Addf("LLM call failed: %s", errorText(err))
		return Result{Reply: ReplyPlanFailed, Error: errorText(err), Progress: log.Entries(), Sources: sources}
	}
	log.Add("Received response from LLM.")

	doc := plan.Parse(text)
	sess.ReplacePlan(doc, sources, req.Text, s.now())

	if conflicts := s.detector.Detect(docs); len(conflicts) > 0 {
		topic, _ := conflicts.First()
		sess.Pending = session.AwaitingConflict(topic)
		for _, c := range conflicts {
			s.metrics.Conflict(c.Topic)
		}
		log.Add(s.detector.Note(topic))
		return Result{
			Reply:     "I found conflicting information about " + topic + ". Should I dig deeper?",
			Plan:      doc,
			Conflicts: conflicts,
			Progress:  log.Entries(),
			Sources:   sources,
			Format:    req.Format,
		}
	}

	var summary string
	if req.Format.Condensed() {
		log.Addf("Generating %s version of the plan...", req.Format)
		summary, err = s.llm.Complete(ctx, summaryMessages(doc, req.Format),
			provider.Options{Temperature: planTemperature, MaxTokens: summaryMaxTokens})
		if err != nil {
			s.logger.Warn("condensed summary failed", zap.String("format", string(req.Format)), zap.Error(err))
			log.Addf("Failed to generate condensed format: %s", errorText(err))
			summary = ""
		} else {
			log.Addf("Generated %s version.", req.Format)
		}
	}
	log.Add("Completed plan generation.")

	return Result{
		Reply:    "Generated account plan for " + company + ".",
		Plan:     doc,
		Progress: log.Entries(),
		Sources:  sources,
		Format:   req.Format,
		Summary:  summary,
	}
}

// DigDeeper collects extra sources for topic and asks the model to reconcile
// them. It needs a session that already holds a plan; sess may be nil.
func (s *Synthesizer) DigDeeper(ctx context.Context, sess *session.Session, topic string) Result {
	if !sess.HasPlan() {
		return Result{Reply: ReplyDeeperNoSession}
	}
	sess.Pending = session.NoPending()

	log := progress.New()
	log.Addf("Starting deep-dive on %s...", topic)
	log.Add("Adding deeper sources...")
	s.collector.Collect(ctx, deeperURLs(topic, sess.LastQuery), nil, log)
	docs := s.retrieve(log)

	log.Add("Calling LLM for reconciliation...")
	text, err := s.llm.Complete(ctx, deeperMessages(topic, BuildContext(docs, s.cfg.ContextChars)),
		provider.Options{Temperature: planTemperature, MaxTokens: deeperMaxTokens})
	if err != nil {
		if errors.Is(err, provider.ErrOverloaded) {
			return Result{Reply: ReplyDeeperOverloaded, Progress: log.Entries()}
		}
		log.Addf("Deep-dive LLM call failed: %s", errorText(err))
		return Result{Reply: ReplyDeeperFailed, Error: errorText(err), Progress: log.Entries()}
	}
	log.Add("Completed deep-dive and reconciliation.")
	return Result{Reply: "Deep-dive on '" + topic + "' complete.", Reconciliation: text, Progress: log.Entries()}
}

// Edit patches one section of the stored plan and asks the model to make the
// rest of the plan consistent with it. The patched plan is stored before the
// model is called.
func (s *Synthesizer) Edit(ctx context.Context, sess *session.Session, path, value string) Result {
	if !sess.HasPlan() {
		return Result{Error: ErrEditNoSession}
	}
	edited, err := plan.Apply(sess.Plan, plan.ParsePatch(path, value))
	if err != nil {
		if errors.Is(err, plan.ErrUnknownSection) {
			return Result{Error: ErrEditUnknownSection}
		}
		return Result{Error: err.Error()}
	}
	sess.Plan = edited

	text, err := s.llm.Complete(ctx, editMessages(edited),
		provider.Options{Temperature: planTemperature, MaxTokens: editMaxTokens})
	if err != nil {
		if errors.Is(err, provider.ErrOverloaded) {
			return Result{Reply: ReplyEditOverloaded, Plan: edited}
		}
		return Result{Reply: ReplyEditFailed, Error: errorText(err)}
	}
	sess.Plan = plan.Parse(text)
	return Result{Reply: ReplyEditDone, Plan: sess.Plan}
}

func (s *Synthesizer) retrieve(log *progress.Log) []docstore.Document {
	docs := s.docs.Top(s.cfg.TopK)
	log.Addf("Built context from %d docs.", len(docs))
	return docs
}

// errorText is the cause of a model failure without the gateway's prefix.
func errorText(err error) string {
	var perm *provider.PermanentError
	if errors.As(err, &perm) && perm.Err != nil {
		return perm.Err.Error()
	}
	return err.Error()
}
