package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	nodex "github.com/tanpawarit/kcartbot/agent/nodes"
	translationx "github.com/tanpawarit/kcartbot/agent/translation"
)

type fakeDispatcher struct {
	reply string
	err   error
	calls []contractx.DispatchRequest
}

func (f *fakeDispatcher) Run(ctx context.Context, req contractx.DispatchRequest) (contractx.DispatchResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return contractx.DispatchResult{}, f.err
	}
	return contractx.DispatchResult{Reply: f.reply, Iterations: 1}, nil
}

type fakeTranslator struct {
	lang   contractx.Language
	to     string
	from   string
	target contractx.Language
}

func (f *fakeTranslator) Detect(ctx context.Context, text string) (contractx.Language, error) {
	return f.lang, nil
}

func (f *fakeTranslator) ToEnglish(ctx context.Context, text string, from contractx.Language) (string, error) {
	return f.to, nil
}

func (f *fakeTranslator) FromEnglish(ctx context.Context, text string, to contractx.Language) (string, error) {
	f.target = to
	return f.from, nil
}

type exchange struct {
	userID  string
	message string
	reply   string
}

type fakeRecorder struct {
	err       error
	exchanges []exchange
}

func (f *fakeRecorder) RecordExchange(ctx context.Context, userID, message, reply string) error {
	f.exchanges = append(f.exchanges, exchange{userID: userID, message: message, reply: reply})
	return f.err
}

var customer = &capabilityx.Actor{ID: "c1", Name: "Abebe", Role: capabilityx.RoleCustomer}

func newTestOrchestrator(
	t *testing.T,
	translator contractx.Translator,
	dispatcher contractx.Dispatcher,
	recorder contractx.TranscriptRecorder,
) *Orchestrator {
	t.Helper()
	o, err := New(translationx.NewGateway(translator), dispatcher, recorder,
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{}
	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageEnglish}, dispatcher, &fakeRecorder{})

	_, err := o.HandleMessage(context.Background(), customer, "   ", nil)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Fatal("dispatcher must not run for invalid input")
	}
}

func TestHandleMessageEnglishTurn(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{reply: "Avocados keep for a week at room temperature."}
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageEnglish}, dispatcher, recorder)

	history := []contractx.HistoryMessage{
		{Sender: "user", Message: "hi"},
		{Sender: "bot", Message: "Hello! How can I help?"},
		{Sender: "user", Message: "  "},
	}
	out, err := o.HandleMessage(context.Background(), customer, " how long do avocados keep? ", history)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != "Avocados keep for a week at room temperature." || out.Language != contractx.LanguageEnglish {
		t.Fatalf("unexpected reply: %+v", out)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.calls))
	}
	req := dispatcher.calls[0]
	if req.Message != "how long do avocados keep?" || len(req.History) != 2 || req.Actor != customer {
		t.Fatalf("unexpected dispatch request: %+v", req)
	}
	if req.Now.IsZero() {
		t.Fatal("dispatch request must carry the turn time")
	}

	if len(recorder.exchanges) != 1 {
		t.Fatalf("expected one recorded exchange, got %d", len(recorder.exchanges))
	}
	if got := recorder.exchanges[0]; got.userID != "c1" || got.reply != out.Reply {
		t.Fatalf("unexpected exchange: %+v", got)
	}
}

func TestHandleMessageAmharicRoundTrip(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{reply: "Order created."}
	recorder := &fakeRecorder{}
	tr := &fakeTranslator{lang: contractx.LanguageAmharicLatin, to: "I want 50 kg avocados", from: "tizazo tefetrual"}
	o := newTestOrchestrator(t, tr, dispatcher, recorder)

	out, err := o.HandleMessage(context.Background(), customer, "50 kilo avocado efeligalehu", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if dispatcher.calls[0].Message != "I want 50 kg avocados" {
		t.Fatalf("dispatcher must receive the english text, got %q", dispatcher.calls[0].Message)
	}
	if out.Reply != "tizazo tefetrual" || out.Language != contractx.LanguageAmharicLatin {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if tr.target != contractx.LanguageAmharicLatin {
		t.Fatalf("reply must be translated back to transliterated form, got target %s", tr.target)
	}
	if recorder.exchanges[0].message != "50 kilo avocado efeligalehu" || recorder.exchanges[0].reply != "tizazo tefetrual" {
		t.Fatalf("transcript must hold the user's own words: %+v", recorder.exchanges[0])
	}
}

func TestHandleMessageUnsupportedLanguageRefused(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{reply: "never"}
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageOther}, dispatcher, recorder)

	out, err := o.HandleMessage(context.Background(), customer, "Hola, quiero aguacates", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != translationx.RefusalMessage || out.Language != contractx.LanguageEnglish {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if len(dispatcher.calls) != 0 {
		t.Fatalf("dispatcher must never run for unsupported input, got %d calls", len(dispatcher.calls))
	}
	if len(recorder.exchanges) != 0 {
		t.Fatal("refused turns are not recorded")
	}
}

func TestHandleMessageEmptyReplyFallsBack(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageEnglish}, &fakeDispatcher{reply: "  "}, nil)

	out, err := o.HandleMessage(context.Background(), customer, "hello", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != nodex.FallbackReply {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestHandleMessageTranscriptFailureDoesNotFailTurn(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{err: errors.New("db down")}
	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageEnglish}, &fakeDispatcher{reply: "ok"}, recorder)

	out, err := o.HandleMessage(context.Background(), customer, "hello", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != "ok" || len(recorder.exchanges) != 1 {
		t.Fatalf("unexpected outcome: %+v, %d exchanges", out, len(recorder.exchanges))
	}
}

func TestHandleMessageAnonymousNotRecorded(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeTranslator{lang: contractx.LanguageEnglish}, &fakeDispatcher{reply: "Please log in."}, recorder)

	if _, err := o.HandleMessage(context.Background(), nil, "order avocados", nil); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(recorder.exchanges) != 0 {
		t.Fatal("anonymous turns must not be recorded")
	}
}
