package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/plan"
	"github.com/mohammad-safakhou/accountplan/internal/progress"
	"github.com/mohammad-safakhou/accountplan/provider"
	"github.com/mohammad-safakhou/accountplan/session"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

type call struct {
	messages []provider.Message
	opts     provider.Options
}

type reply struct {
	text string
	err  error
}

// scriptedLLM answers calls in order from replies.
type scriptedLLM struct {
	replies []reply
	calls   []call
}

func (f *scriptedLLM) Complete(_ context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	f.calls = append(f.calls, call{messages: messages, opts: opts})
	if len(f.calls) > len(f.replies) {
		return "", errors.New("unexpected model call")
	}
	r := f.replies[len(f.calls)-1]
	return r.text, r.err
}

// pages serves fixed text per URL; unknown URLs fail.
type pages map[string]string

func (p pages) Exec(_ context.Context, url string) (models.Result, error) {
	text, ok := p[url]
	if !ok {
		return models.Result{}, errors.New("no such host")
	}
	return models.Result{URL: url, Text: text, Status: 200}, nil
}

func newSynth(llm provider.Completer, web pages, detector ConflictDetector, cfg Config) (*Synthesizer, *docstore.Memory) {
	store := docstore.NewMemory()
	coll := collector.New(web, store, 1, nil, nil)
	s := New(llm, coll, store, detector, cfg, nil, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, store
}

func messages(entries []progress.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Msg
	}
	return out
}

const zoomPlan = `{"company_name":"Zoom","snapshot":{"description":"Video meetings","revenue_estimate":"$4B","primary_products":["Meetings"]},"tech_stack":["Go"],"confidence":"medium"}`

func TestExtractCompany(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Create an account plan for Zoomcorp!", "Zoomcorp"},
		{"create an account plan for zoom", "zoom"},
		{"generate a plan for me about Tesla.", "Tesla"},
		{"research Open-AI", "Open-AI"},
		{"make a plan for", "for"},
		{"research ???", UnknownCompany},
		{"", UnknownCompany},
		{"account plan For Nvidia", "Nvidia"},
		{"Please create an account plan for C3.ai", "C3ai"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractCompany(tc.in), tc.in)
	}
}

func TestCompetitors(t *testing.T) {
	assert.Equal(t, []string{"Microsoft Teams", "Google Meet", "Cisco Webex"}, Competitors("Zoom"))
	assert.Empty(t, Competitors("Acme"))
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext([]docstore.Document{
		{URL: "https://a.com", Title: "A", Text: strings.Repeat("x", 10)},
		{URL: "https://b.com", Text: "short"},
		{Text: "orphan"},
	}, 4)
	assert.Equal(t, "[A | https://a.com] \nxxxx\n\n[https://b.com | https://b.com] \nshor\n\n[source | ] \norph", ctx)
	assert.Empty(t, BuildContext(nil, 10))
}

func TestHeuristicRevenueConflict(t *testing.T) {
	conflicts := Heuristic{}.Detect([]docstore.Document{
		{URL: "https://d1.com", Text: "Revenue hit $4 billion last year."},
		{URL: "https://d2.com", Text: "It reported $6 billion in sales."},
		{Title: "notes", Text: "Analysts agree on $4 billion."},
	})
	require.Len(t, conflicts, 1)
	topic, ok := conflicts.First()
	assert.True(t, ok)
	assert.Equal(t, TopicRevenue, topic)
	assert.Equal(t, []ConflictValue{
		{Value: "4 billion", Sources: []string{"https://d1.com", "notes"}},
		{Value: "6 billion", Sources: []string{"https://d2.com"}},
	}, conflicts[0].Values)
}

func TestHeuristicEmployeesAfterRevenue(t *testing.T) {
	conflicts := Heuristic{}.Detect([]docstore.Document{
		{URL: "a", Text: "about 7,400 employees and $4.5 billion revenue"},
		{URL: "b", Text: "over 8,000 employees; revenue: 4.5 billion"},
	})
	require.Len(t, conflicts, 1)
	assert.Equal(t, TopicEmployees, conflicts[0].Topic)

	conflicts = Heuristic{}.Detect([]docstore.Document{
		{URL: "a", Text: "$1 billion and 10 employees"},
		{URL: "b", Text: "$2 billion and 20 staff"},
	})
	require.Len(t, conflicts, 2)
	assert.Equal(t, TopicRevenue, conflicts[0].Topic)
	assert.Equal(t, TopicEmployees, conflicts[1].Topic)
}

func TestHeuristicSingleValueIsNoConflict(t *testing.T) {
	assert.Empty(t, Heuristic{}.Detect([]docstore.Document{
		{URL: "a", Text: "$4 billion"},
		{URL: "b", Text: "$4 billion"},
	}))
	assert.Empty(t, Heuristic{}.Detect(nil))
}

func TestHeuristicIgnoresDollarAmountsWithoutUnit(t *testing.T) {
	assert.Empty(t, Heuristic{}.Detect([]docstore.Document{
		{URL: "a", Text: "Revenue reached $4 billion."},
		{URL: "b", Text: "Budget of $300 before tax."},
	}))
}

func TestConflictsEncodeInOrder(t *testing.T) {
	data, err := json.Marshal(Forced{}.Detect(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"revenue":[{"value":"4B","sources":["Wikipedia"]},{"value":"6B","sources":["News report"]}]}`, string(data))

	two := Conflicts{{Topic: "revenue"}, {Topic: "employees"}}
	data, err = json.Marshal(two)
	require.NoError(t, err)
	assert.True(t, strings.Index(string(data), "revenue") < strings.Index(string(data), "employees"))
}

func TestSynthesizeStoresPlan(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: "```json\n" + zoomPlan + "\n```"}}}
	s, store := newSynth(llm, pages{"https://Zoom.com": "Zoom makes video software."}, nil, Config{})
	sess := session.New("s1", time.Now())
	sess.Pending = session.AwaitingSuggestion("Zoom")

	res := s.Synthesize(context.Background(), sess, Request{Text: "Create an account plan for Zoom"})

	assert.Equal(t, "Generated account plan for Zoom.", res.Reply)
	assert.Equal(t, intent.FormatDetailed, res.Format)
	assert.Empty(t, res.Summary)
	assert.Equal(t, []plan.SourceRef{{URL: "https://Zoom.com", Title: "https://Zoom.com"}}, res.Sources)
	assert.Equal(t, 1, store.Len())

	require.True(t, sess.HasPlan())
	assert.Equal(t, "Zoom", sess.Plan.CompanyName())
	assert.True(t, sess.Pending.None())
	assert.Equal(t, "Create an account plan for Zoom", sess.LastQuery)
	assert.Equal(t, sess.Sources, res.Sources)

	require.Len(t, llm.calls, 1)
	assert.Equal(t, provider.Options{Temperature: 0.2, MaxTokens: 1200}, llm.calls[0].opts)
	assert.Contains(t, llm.calls[0].messages[0].Content, "User persona: unknown. Output preference: detailed.")
	assert.Contains(t, llm.calls[0].messages[1].Content, "[https://Zoom.com | https://Zoom.com] \nZoom makes video software.")
	assert.Contains(t, llm.calls[0].messages[1].Content, "USER REQUEST:\nCreate an account plan for Zoom")

	msgs := messages(res.Progress)
	assert.Equal(t, "Received request, detecting company and preferences...", msgs[0])
	assert.Contains(t, msgs, "Detected company: Zoom")
	assert.Contains(t, msgs, "Found competitors: Microsoft Teams, Google Meet, Cisco Webex")
	assert.Contains(t, msgs, "Failed to scrape https://en.wikipedia.org/wiki/Zoom: no such host")
	assert.Contains(t, msgs, "Built context from 1 docs.")
	assert.Equal(t, "Completed plan generation.", msgs[len(msgs)-1])
}

func TestSynthesizeNonJSONFallsBackToRaw(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: "Sorry, I cannot help."}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "create an account plan for Acme"})

	fb, ok := res.Plan.Fallback()
	require.True(t, ok)
	assert.Equal(t, "Sorry, I cannot help.", fb.RawOutput)
	assert.Equal(t, `{"raw_output":"Sorry, I cannot help."}`, sess.Plan.String())
}

func TestSynthesizeConflictSetsPending(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}}}
	web := pages{
		"https://Zoom.com":     "Zoom revenue reached $4 billion.",
		"https://www.Zoom.com": "Zoom earned $6 billion.",
	}
	s, _ := newSynth(llm, web, Heuristic{}, Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "create an account plan for Zoom", Format: intent.FormatShort})

	assert.Equal(t, "I found conflicting information about revenue. Should I dig deeper?", res.Reply)
	topic, ok := sess.Pending.Conflict()
	require.True(t, ok)
	assert.Equal(t, "revenue", topic)
	assert.NotNil(t, res.Plan)
	assert.Empty(t, res.Summary)
	assert.Len(t, llm.calls, 1, "no summary pass while a conflict is open")

	data, err := json.Marshal(res.Conflicts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"revenue":[{"value":"4 billion","sources":["https://Zoom.com"]},{"value":"6 billion","sources":["https://www.Zoom.com"]}]}`, string(data))

	msgs := messages(res.Progress)
	assert.Equal(t, "Detected conflicts on revenue. Asking user to dig deeper.", msgs[len(msgs)-1])
}

func TestSynthesizeForcedConflict(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}}}
	s, _ := newSynth(llm, pages{}, NewConflictDetector(true), Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "create an account plan for Zoom"})

	topic, ok := sess.Pending.Conflict()
	require.True(t, ok)
	assert.Equal(t, "revenue", topic)
	msgs := messages(res.Progress)
	assert.Equal(t, "Forced conflict mode ON: simulating conflict on revenue.", msgs[len(msgs)-1])
}

func TestSynthesizeOverloaded(t *testing.T) {
	overloaded := fmt.Errorf("%w after 4 attempts: status 429", provider.ErrOverloaded)
	llm := &scriptedLLM{replies: []reply{{err: overloaded}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())
	sess.Pending = session.AwaitingConflict("revenue")

	res := s.Synthesize(context.Background(), sess, Request{Text: "create an account plan for Zoom"})

	assert.Equal(t, ReplyOverloaded, res.Reply)
	assert.Nil(t, res.Plan)
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.Progress)
	assert.False(t, sess.HasPlan())
	assert.True(t, sess.Pending.None())
}

func TestSynthesizePermanentFailure(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: &provider.PermanentError{Err: errors.New("invalid api key")}}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "create an account plan for Zoom"})

	assert.Equal(t, ReplyPlanFailed, res.Reply)
	assert.Equal(t, "invalid api key", res.Error)
	msgs := messages(res.Progress)
	assert.Equal(t, "LLM call failed: invalid api key", msgs[len(msgs)-1])
}

func TestSynthesizeCondensedSummary(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}, {text: "Zoom sells meetings."}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "create a pitch for Zoom", Format: intent.FormatPitch})

	assert.Equal(t, "Zoom sells meetings.", res.Summary)
	assert.Equal(t, intent.FormatPitch, res.Format)
	require.Len(t, llm.calls, 2)
	assert.Equal(t, provider.Options{Temperature: 0.2, MaxTokens: 300}, llm.calls[1].opts)
	assert.Equal(t, "You are a summarizer.", llm.calls[1].messages[0].Content)
	assert.True(t, strings.HasSuffix(llm.calls[1].messages[1].Content, "Provide a pitch-style one-paragraph summary."))
	assert.Contains(t, messages(res.Progress), "Generated pitch version.")
}

func TestSynthesizeSummaryFailureIsNotFatal(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}, {err: provider.ErrOverloaded}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{Text: "short plan for Zoom", Format: intent.FormatShort})

	assert.Equal(t, "Generated account plan for Zoom.", res.Reply)
	assert.Empty(t, res.Summary)
	assert.True(t, sess.HasPlan())
}

func TestSynthesizeRegistersLocalSources(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}}}
	s, store := newSynth(llm, pages{}, nil, Config{UploadedFile: "/data/upload.png"})
	sess := session.New("s1", time.Now())

	res := s.Synthesize(context.Background(), sess, Request{
		Text:         "create an account plan for Zoom",
		LocalSources: []collector.LocalSource{{URL: "attachment-1", Title: "notes", Text: "Zoom has 7,000 employees."}},
	})

	assert.Equal(t, []plan.SourceRef{
		{URL: "attachment-1", Title: "notes"},
		{URL: "/data/upload.png", Title: "Zoom - uploaded file"},
	}, res.Sources)
	assert.Equal(t, 2, store.Len())
	assert.Contains(t, llm.calls[0].messages[1].Content, "Zoom has 7,000 employees.")
}

func TestDigDeeper(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: "Most likely $4.5B."}}}
	web := pages{"https://www.google.com/search?q=revenue+create+a+plan+for+Zoom": "Zoom revenue: 4.5 billion"}
	s, _ := newSynth(llm, web, nil, Config{})
	sess := plannedSession("s1")
	sess.LastQuery = "create a plan for Zoom"
	sess.Pending = session.AwaitingConflict("revenue")

	res := s.DigDeeper(context.Background(), sess, "revenue")

	assert.Equal(t, "Deep-dive on 'revenue' complete.", res.Reply)
	assert.Equal(t, "Most likely $4.5B.", res.Reconciliation)
	assert.True(t, sess.Pending.None())
	require.Len(t, llm.calls, 1)
	assert.Equal(t, 500, llm.calls[0].opts.MaxTokens)
	assert.Contains(t, llm.calls[0].messages[1].Content, "specific topic: revenue")
	assert.Contains(t, llm.calls[0].messages[1].Content, "Zoom revenue: 4.5 billion")

	msgs := messages(res.Progress)
	assert.Equal(t, "Starting deep-dive on revenue...", msgs[0])
	assert.Contains(t, msgs, "Added source: https://www.google.com/search?q=revenue+create+a+plan+for+Zoom")
	assert.Equal(t, "Completed deep-dive and reconciliation.", msgs[len(msgs)-1])
}

func plannedSession(id string) *session.Session {
	sess := session.New(id, time.Now())
	sess.Plan = plan.Parse(`{"company_name":"Zoom"}`)
	return sess
}

func TestDigDeeperFailures(t *testing.T) {
	llm := &scriptedLLM{}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	assert.Equal(t, ReplyDeeperNoSession, s.DigDeeper(context.Background(), nil, "revenue").Reply)
	res := s.DigDeeper(context.Background(), session.New("s1", time.Now()), "revenue")
	assert.Equal(t, ReplyDeeperNoSession, res.Reply)
	assert.Empty(t, res.Progress)
	assert.Empty(t, llm.calls)

	s, _ = newSynth(&scriptedLLM{replies: []reply{{err: provider.ErrOverloaded}}}, pages{}, nil, Config{})
	res = s.DigDeeper(context.Background(), plannedSession("s1"), "revenue")
	assert.Equal(t, ReplyDeeperOverloaded, res.Reply)
	assert.NotEmpty(t, res.Progress)

	s, _ = newSynth(&scriptedLLM{replies: []reply{{err: &provider.PermanentError{Err: errors.New("bad request")}}}}, pages{}, nil, Config{})
	res = s.DigDeeper(context.Background(), plannedSession("s1"), "revenue")
	assert.Equal(t, ReplyDeeperFailed, res.Reply)
	assert.Equal(t, "bad request", res.Error)
}

func sentPlan(t *testing.T, c call) string {
	t.Helper()
	content := c.messages[1].Content
	start := strings.Index(content, "Current plan (JSON):\n")
	end := strings.Index(content, "\n\nSchema:")
	require.True(t, start >= 0 && end > start, "unexpected edit prompt: %s", content)
	return content[start+len("Current plan (JSON):\n") : end]
}

func TestEditPatchesOnlyTheField(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: zoomPlan}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())
	sess.Plan = plan.Parse(zoomPlan)

	res := s.Edit(context.Background(), sess, "snapshot.revenue_estimate", "$4.5B")

	assert.Equal(t, ReplyEditDone, res.Reply)
	require.Len(t, llm.calls, 1)
	assert.Equal(t, 1000, llm.calls[0].opts.MaxTokens)

	want := plan.Parse(strings.Replace(zoomPlan, `"$4B"`, `"$4.5B"`, 1)).String()
	assert.Equal(t, want, sentPlan(t, llm.calls[0]))
	assert.Equal(t, plan.Parse(zoomPlan).String(), sess.Plan.String())
}

func TestEditOverloadedKeepsLocalEdit(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: provider.ErrOverloaded}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())
	sess.Plan = plan.Parse(zoomPlan)

	res := s.Edit(context.Background(), sess, "tech_stack", `["Go","Rust"]`)

	assert.Equal(t, ReplyEditOverloaded, res.Reply)
	p, ok := sess.Plan.Plan()
	require.True(t, ok)
	assert.Equal(t, []string{"Go", "Rust"}, p.TechStack)
	assert.Equal(t, sess.Plan.String(), res.Plan.String())
}

func TestEditRejections(t *testing.T) {
	s, _ := newSynth(&scriptedLLM{}, pages{}, nil, Config{})

	assert.Equal(t, ErrEditNoSession, s.Edit(context.Background(), nil, "snapshot", "x").Error)
	assert.Equal(t, ErrEditNoSession, s.Edit(context.Background(), session.New("s1", time.Now()), "snapshot", "x").Error)

	sess := session.New("s1", time.Now())
	sess.Plan = plan.Parse(zoomPlan)
	res := s.Edit(context.Background(), sess, "market_opportunity.segment", "SMB")
	assert.Equal(t, ErrEditUnknownSection, res.Error)
	assert.Equal(t, plan.Parse(zoomPlan).String(), sess.Plan.String())
}

func TestEditPermanentFailure(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: &provider.PermanentError{Err: errors.New("boom")}}}}
	s, _ := newSynth(llm, pages{}, nil, Config{})
	sess := session.New("s1", time.Now())
	sess.Plan = plan.Parse(zoomPlan)

	res := s.Edit(context.Background(), sess, "confidence", "high")

	assert.Equal(t, ReplyEditFailed, res.Reply)
	assert.Equal(t, "boom", res.Error)
	assert.Nil(t, res.Plan)
}
