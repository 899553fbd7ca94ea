package router

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

type stubCompleter struct {
	out   string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, string, []statex.Message, string) (string, error) {
	s.calls++
	return s.out, s.err
}

type namedHandler struct{ name string }

func (h namedHandler) Name() string { return h.name }

func (h namedHandler) Run(_ context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	return contractx.HandlerResponse{Handler: h.name, Text: h.name + ":" + req.Utterance}, nil
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, string, []statex.Message) (contractx.RouterDecision, error) {
	panic("boom")
}

func newLabelRouter(t *testing.T, completer *stubCompleter) *Router {
	t.Helper()
	classifier, err := NewLabelClassifier(completer)
	require.NoError(t, err)
	r, err := New(classifier, Binding{Handler: namedHandler{"general"}})
	require.NoError(t, err)
	return r
}

func TestClassifyIsTotal(t *testing.T) {
	t.Parallel()

	outputs := []struct {
		out string
		err error
	}{
		{out: "COMPLAINT"},
		{out: ""},
		{out: "I AM NOT SURE WHAT THIS IS!!!"},
		{out: "banana"},
		{err: errors.New("rate limited")},
	}
	utterances := []string{"", "   ", "\n\t", "HOLA QUIERO TODO AHORA", "¿Cómo voto?", "DROP TABLE users;"}

	for _, o := range outputs {
		for _, u := range utterances {
			r := newLabelRouter(t, &stubCompleter{out: o.out, err: o.err})
			d := r.Classify(context.Background(), u, nil)
			assert.True(t, d.Category.Valid(), "output=%q utterance=%q", o.out, u)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
		}
	}
}

func TestClassifyEmptySkipsModel(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{out: "COMPLAINT"}
	r := newLabelRouter(t, completer)

	d := r.Classify(context.Background(), "  ", nil)
	assert.Equal(t, contractx.CategoryGeneral, d.Category)
	assert.Zero(t, d.Confidence)
	assert.Zero(t, completer.calls)
}

func TestClassifyFailureIsGeneral(t *testing.T) {
	t.Parallel()

	r := newLabelRouter(t, &stubCompleter{err: errors.New("timeout")})
	d := r.Classify(context.Background(), "hola", nil)
	assert.Equal(t, contractx.CategoryGeneral, d.Category)
	assert.Zero(t, d.Confidence)

	pr, err := New(panickingClassifier{}, Binding{Handler: namedHandler{"general"}})
	require.NoError(t, err)
	d = pr.Classify(context.Background(), "hola", nil)
	assert.Equal(t, contractx.CategoryGeneral, d.Category)
}

func TestParseLabelPriorityTieBreak(t *testing.T) {
	t.Parallel()

	cases := map[string]contractx.IntentCategory{
		"CITY_GUIDE COMPLAINT":         contractx.CategoryComplaintFiling,
		"complaint or civic_knowledge": contractx.CategoryComplaintFiling,
		"PRACTICAL_GUIDE / FACT_CHECK": contractx.CategoryFactCheck,
		"GENERAL CIVIC_EDUCATION":      contractx.CategoryCivicEducation,
		"UNCLEAR, maybe CITY_GUIDE":    contractx.CategoryCityGuide,
	}
	for raw, want := range cases {
		for i := 0; i < 3; i++ {
			d, err := ParseLabel(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, want, d.Category, raw)
			assert.Equal(t, 0.5, d.Confidence, raw)
		}
	}
}

func TestParseLabelConfidence(t *testing.T) {
	t.Parallel()

	d, err := ParseLabel("  civic_knowledge.\n")
	require.NoError(t, err)
	assert.Equal(t, contractx.CategoryCivicEducation, d.Category)
	assert.Equal(t, 1.0, d.Confidence)

	d, err = ParseLabel("The answer is COMPLAINT")
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.Confidence)

	_, err = ParseLabel("no idea")
	assert.ErrorIs(t, err, contractx.ErrSchemaViolation)
}

func TestPriorityOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []contractx.IntentCategory{
		contractx.CategoryComplaintFiling,
		contractx.CategoryCivicEducation,
		contractx.CategoryFactCheck,
		contractx.CategoryPracticalGuide,
		contractx.CategoryCityGuide,
		contractx.CategoryGeneral,
	}, Priority)
}

func TestDispatchFallsBackToGeneral(t *testing.T) {
	t.Parallel()

	r := newLabelRouter(t, &stubCompleter{out: "COMPLAINT"})
	require.NoError(t, r.Bind(contractx.CategoryComplaintFiling, Binding{Handler: namedHandler{"complaint"}}))
	assert.Error(t, r.Bind("weather", Binding{Handler: namedHandler{"x"}}))

	ctx := context.Background()
	resp, err := r.Dispatch(ctx, contractx.HandlerRequest{Utterance: "bache"}, r.Classify(ctx, "hay un bache", nil))
	require.NoError(t, err)
	assert.Equal(t, "complaint", resp.Handler)

	resp, err = r.Dispatch(ctx, contractx.HandlerRequest{Utterance: "x"}, contractx.RouterDecision{Category: contractx.CategoryCityGuide})
	require.NoError(t, err)
	assert.Equal(t, "general", resp.Handler)
}

type fakeToolCallingModel struct {
	reply     *schema.Message
	err       error
	tools     []*schema.ToolInfo
	lastInput []*schema.Message
}

func (f *fakeToolCallingModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeToolCallingModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func transferCall(id, category, reason string) schema.ToolCall {
	return schema.ToolCall{
		ID: id,
		Function: schema.FunctionCall{
			Name:      transferPrefix + category,
			Arguments: `{"reason":"` + reason + `"}`,
		},
	}
}

func TestHandoffPicksHighestPriorityTransfer(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{reply: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			transferCall("1", "city_guide", "moving"),
			transferCall("2", "complaint_filing", "pothole"),
		},
	}}
	c, err := NewHandoffClassifier(context.Background(), fake)
	require.NoError(t, err)
	assert.Len(t, fake.tools, len(Priority)-1)

	d, err := c.Classify(context.Background(), "hay un bache y me mudo", nil)
	require.NoError(t, err)
	assert.Equal(t, contractx.CategoryComplaintFiling, d.Category)
	assert.Equal(t, "pothole", d.Rationale)
	assert.Equal(t, 0.5, d.Confidence)
	assert.Equal(t, schema.System, fake.lastInput[0].Role)
}

func TestHandoffWithoutTransferIsGeneral(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{reply: &schema.Message{Role: schema.Assistant, Content: "¿Puedes contarme más?"}}
	c, err := NewHandoffClassifier(context.Background(), fake)
	require.NoError(t, err)

	d, err := c.Classify(context.Background(), "mmm", nil)
	require.NoError(t, err)
	assert.Equal(t, contractx.CategoryGeneral, d.Category)
	assert.Equal(t, "¿Puedes contarme más?", d.Rationale)
}

func TestHandoffErrorRoutesGeneralThroughRouter(t *testing.T) {
	t.Parallel()

	c, err := NewHandoffClassifier(context.Background(), &fakeToolCallingModel{err: errors.New("503")})
	require.NoError(t, err)
	r, err := New(c, Binding{Handler: namedHandler{"general"}})
	require.NoError(t, err)

	d := r.Classify(context.Background(), "hola", nil)
	assert.Equal(t, contractx.CategoryGeneral, d.Category)
	assert.Zero(t, d.Confidence)
}
