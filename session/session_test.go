package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/guard"
	"github.com/spektr-org/cogniview/translator"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const studentsCSV = `gender,lunch,math score,reading score
female,standard,72,72
male,free/reduced,69,90
female,standard,90,95
male,standard,47,57
female,free/reduced,76,78
female,standard,62,64
`

// reply always answers with text.
func reply(text string) translator.Completer {
	return translator.CompleterFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func loaded(t *testing.T, c translator.Completer, opts ...Option) *Session {
	t.Helper()
	s := New(c, opts...)
	require.NoError(t, s.LoadCSV([]byte(studentsCSV)))
	return s
}

func ask(t *testing.T, s *Session, question string) *Attempt {
	t.Helper()
	a, err := s.Ask(context.Background(), question)
	require.NoError(t, err)
	require.True(t, a.State.Terminal(), a.State)
	return a
}

// ============================================================================
// SCENARIOS
// ============================================================================

func TestScenarioCleanCompletion(t *testing.T) {
	s := loaded(t, reply(`df["math score"].mean()`))
	a := ask(t, s, "What is the average math score?")

	assert.Equal(t, StateRendered, a.State)
	assert.Equal(t, `df["math score"].mean()`, a.NormalizedCode)
	assert.Empty(t, a.Repairs)
	assert.True(t, a.Validation.Valid)
	require.NotNil(t, a.Result)
	assert.Equal(t, engine.ClassScalar, a.Result.Class)
	assert.Equal(t, "69.33", a.Result.Reply)
	assert.Nil(t, a.Fault)
	assert.Empty(t, a.Notice)
	assert.Same(t, a, s.Last())
}

func TestScenarioAttributeAccess(t *testing.T) {
	s := loaded(t, reply(`df.reading_score.mean()`))
	a := ask(t, s, "Average reading score?")

	assert.Equal(t, StateRendered, a.State)
	assert.Equal(t, `df["reading score"].mean()`, a.NormalizedCode)
	require.Len(t, a.Repairs, 1)
	assert.Equal(t, translator.RuleAttributeAccess, a.Repairs[0].Rule)
	assert.InDelta(t, 76.0, a.Result.Value.(float64), 1e-9)
}

func TestScenarioUnknownColumnIsRejectedWithoutExecution(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := loaded(t, reply(`df["height"].mean()`), WithLogger(zap.New(core)))
	a := ask(t, s, "How tall are students?")

	assert.Equal(t, StateRejected, a.State)
	assert.Nil(t, a.Result)
	require.NotNil(t, a.Fault)
	assert.Equal(t, guard.KindUnresolvedColumn, a.Fault.Kind)
	assert.Contains(t, a.Fault.Message, `Available columns: "gender", "lunch", "math score", "reading score"`)
	assert.Equal(t, []string{"gender", "lunch", "math score", "reading score"}, a.Fault.Diagnostic.Columns)
	assert.Zero(t, logs.FilterMessageSnippet("evaluation").Len())
	assert.Equal(t, 1, logs.FilterMessage("code rejected").Len())
}

func TestScenarioTypoIsRepaired(t *testing.T) {
	s := loaded(t, reply(`df["gender"].value_count()`))
	a := ask(t, s, "How many of each gender?")

	assert.Equal(t, StateRendered, a.State)
	assert.Equal(t, `df["gender"].value_counts()`, a.NormalizedCode)
	assert.Equal(t, engine.ClassTable, a.Result.Class)
	assert.Equal(t, [][]string{{"female", "4"}, {"male", "2"}}, a.Result.TableData.Rows)
}

func TestScenarioLocArgmaxFallback(t *testing.T) {
	s := loaded(t, reply(`df["gender"].loc[df["math score"].argmax()]`))
	a := ask(t, s, "Which gender has the highest math score?")

	assert.Equal(t, StateRendered, a.State)
	assert.Equal(t, `df.groupby("gender")["math score"].mean().idxmax()`, a.NormalizedCode)
	require.NotEmpty(t, a.Repairs)
	assert.True(t, a.Repairs[len(a.Repairs)-1].Substituted)
	assert.Equal(t, "female", a.Result.Value)
}

func TestScenarioLocArgmaxRejectPolicy(t *testing.T) {
	s := loaded(t, reply(`df["gender"].loc[df["math score"].argmax()]`), WithPolicy(translator.PolicyReject))
	a := ask(t, s, "Which gender has the highest math score?")

	assert.Equal(t, StateRejected, a.State)
	assert.Equal(t, guard.KindRephraseRequired, a.Fault.Kind)
	assert.Nil(t, a.Result)
}

func TestScenarioRuntimeKeyError(t *testing.T) {
	s := loaded(t, reply(`df.groupby("gender")["math score"].mean()["other"]`))
	a := ask(t, s, "What is the average math score for other?")

	assert.Equal(t, StateExecutionFailed, a.State)
	require.NotNil(t, a.Fault)
	assert.Equal(t, guard.KindExecutionFault, a.Fault.Kind)
	assert.Equal(t, guard.HintFor(a.Fault.Err), a.Fault.Hint)
	assert.Contains(t, a.Fault.Hint, "Column Error")
	assert.Equal(t, "KeyError: 'other'", a.Fault.Diagnostic.Fault)
	assert.Equal(t, a.NormalizedCode, a.Fault.Diagnostic.Code)
	assert.Equal(t, "What is the average math score for other?", a.Fault.Diagnostic.Question)

	var ee *engine.EvalError
	assert.True(t, errors.As(a.Fault, &ee))
}

func TestEmptyResultIsReportedAsNotice(t *testing.T) {
	s := loaded(t, reply(`df[df["math score"] > 100]`))
	a := ask(t, s, "Who scored above 100?")

	assert.Equal(t, StateRendered, a.State)
	assert.Equal(t, engine.ClassEmpty, a.Result.Class)
	assert.Equal(t, guard.KindEmptyOrMissingResult, a.Notice)
	assert.True(t, a.Succeeded())
}

// ============================================================================
// COMPLETION FAILURES + CANCELLATION
// ============================================================================

func TestCompletionTimeoutIsUnavailable(t *testing.T) {
	hang := translator.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := translator.NewReliable(hang, translator.WithTimeout(10*time.Millisecond), translator.WithRetries(0), translator.WithBackoff(0))
	s := loaded(t, c)

	a := ask(t, s, "How many rows?")
	assert.Equal(t, StateUnavailable, a.State)
	assert.True(t, guard.IsKind(a.Fault, guard.KindGenerationUnavailable))
	assert.ErrorIs(t, a.Fault, translator.ErrGenerationUnavailable)
	assert.ErrorIs(t, a.Fault, context.DeadlineExceeded)
	assert.NotEqual(t, cancelledMessage, a.Fault.Message)
	assert.Empty(t, a.NormalizedCode)
}

// blockFirst blocks its first call until cancelled, then answers code.
func blockFirst(started chan<- struct{}, code string) translator.Completer {
	var calls atomic.Int32
	return translator.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return code, nil
	})
}

func TestAskCancelsAttemptInFlight(t *testing.T) {
	started := make(chan struct{})
	s := loaded(t, blockFirst(started, `df.shape[0]`))

	var (
		wg    sync.WaitGroup
		first *Attempt
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = s.Ask(context.Background(), "first question")
	}()
	<-started

	second := ask(t, s, "second question")
	wg.Wait()

	require.NotNil(t, first)
	assert.Equal(t, StateUnavailable, first.State)
	assert.Nil(t, first.Result)
	assert.ErrorIs(t, first.Fault, context.Canceled)
	assert.Equal(t, cancelledMessage, first.Fault.Message)

	assert.Equal(t, StateRendered, second.State)
	assert.Equal(t, int64(6), second.Result.Value)
	assert.Same(t, second, s.Last())
}

func TestLoadCancelsAttemptInFlight(t *testing.T) {
	started := make(chan struct{})
	s := loaded(t, blockFirst(started, `df.shape[0]`))

	done := make(chan *Attempt)
	go func() {
		a, _ := s.Ask(context.Background(), "question")
		done <- a
	}()
	<-started

	require.NoError(t, s.LoadCSV([]byte("a,b\n1,2\n")))
	a := <-done

	assert.Equal(t, StateUnavailable, a.State)
	assert.Nil(t, s.Last())
	assert.Equal(t, []string{"a", "b"}, s.Schema().Names())
}

func TestCallerCancellation(t *testing.T) {
	started := make(chan struct{})
	s := loaded(t, blockFirst(started, `df.shape[0]`))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()
	a, err := s.Ask(ctx, "question")
	require.NoError(t, err)
	assert.Equal(t, StateUnavailable, a.State)
	assert.ErrorIs(t, a.Fault, context.Canceled)
}

// ============================================================================
// PRECONDITIONS + ACCESSORS
// ============================================================================

func TestAskPreconditions(t *testing.T) {
	_, err := New(reply(`df.shape[0]`)).Ask(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoDataset)

	s := loaded(t, reply(`df.shape[0]`))
	_, err = s.Ask(context.Background(), "   ")
	assert.Error(t, err)

	_, err = loaded(t, nil).Ask(context.Background(), "q")
	assert.ErrorContains(t, err, "no completer")
}

func TestPreview(t *testing.T) {
	_, err := New(nil).Preview()
	assert.ErrorIs(t, err, ErrNoDataset)

	s := loaded(t, nil)
	res, err := s.Preview()
	require.NoError(t, err)
	assert.Equal(t, engine.ClassTable, res.Class)
	assert.Equal(t, PreviewRows, res.TableData.TotalRows)
	assert.Len(t, res.TableData.Rows, PreviewRows)
}

func TestSchemaAndSuggestions(t *testing.T) {
	s := loaded(t, nil, WithSampleRows(2))
	col, ok := s.Schema().Column("math score")
	require.True(t, ok)
	assert.Equal(t, []string{"72", "69"}, col.Samples)
	assert.Contains(t, s.Suggestions(), "Which gender has the highest average math score?")
	assert.Equal(t, 6, s.Frame().Len())
}

func TestStore(t *testing.T) {
	st := NewStore()
	a := New(nil)
	b := New(nil)
	require.NotEqual(t, a.ID(), b.ID())

	st.Add(a)
	st.Add(b)
	assert.Equal(t, 2, st.Len())

	got, ok := st.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, st.Remove(a.ID()))
	assert.False(t, st.Remove(a.ID()))
	_, ok = st.Get(a.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, st.Len())
	st.CancelAll()
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	st := NewStore()
	one := loaded(t, reply(`df["math score"].max()`))
	two := loaded(t, reply(`df["math score"].min()`))
	st.Add(one)
	st.Add(two)

	var wg sync.WaitGroup
	results := make([]*Attempt, 2)
	for i, s := range []*Session{one, two} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = s.Ask(context.Background(), "extreme math score")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(90), results[0].Result.Value)
	assert.Equal(t, int64(47), results[1].Result.Value)
}
