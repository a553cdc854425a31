package scoring

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
)

func TestGenerativeScorerParsesReply(t *testing.T) {
	s := NewGenerativeScorer(&stubGenerator{
		reply: `{"score": 712, "rationale": "Strong team and real revenue."}`,
	}, 999, time.Second)

	ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput()))
	if !ms.Available {
		t.Fatalf("unavailable: %s", ms.Error)
	}
	if ms.Score != 712 {
		t.Errorf("score = %v, want 712", ms.Score)
	}
	if ms.Rationale == "" {
		t.Error("rationale dropped")
	}
}

func TestGenerativeScorerUnavailableOnError(t *testing.T) {
	s := NewGenerativeScorer(&stubGenerator{err: errTimeout}, 999, time.Second)
	ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput()))
	if ms.Available {
		t.Fatal("provider error must yield unavailable")
	}
	if ms.Error == "" {
		t.Error("error string empty")
	}
}

func TestGenerativeScorerRejectsOutOfRangeScore(t *testing.T) {
	for _, reply := range []string{
		`{"score": -5, "rationale": "x"}`,
		`{"score": 1500, "rationale": "x"}`,
		`not json`,
	} {
		s := NewGenerativeScorer(&stubGenerator{reply: reply}, 999, time.Second)
		ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput()))
		if ms.Available {
			t.Errorf("reply %q: expected unavailable", reply)
		}
	}
}

func TestGenerativeScorerNilProvider(t *testing.T) {
	s := NewGenerativeScorer(nil, 999, time.Second)
	if ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput())); ms.Available {
		t.Fatal("nil provider must be unavailable")
	}
}

func TestGenerativePromptCarriesSignals(t *testing.T) {
	s := NewGenerativeScorer(nil, 999, time.Second)
	in := richInput()
	prompt := s.buildPrompt(in, assessment.Extract(in))
	for _, want := range []string{"prototype", "revenue:10k-100k", in.PitchSummary} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// stubEmbedder returns fixed vectors keyed by text so anchor similarity is
// controllable.
type stubEmbedder struct {
	vectors map[string][]float32
	def     []float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.def, nil
}

func TestEmbeddingScorerNearPositiveAnchor(t *testing.T) {
	emb := &stubEmbedder{
		vectors: map[string][]float32{
			anchorInvestable: {1, 0},
			anchorNotReady:   {0, 1},
		},
		def: []float32{1, 0.05}, // almost the positive anchor
	}
	s := NewEmbeddingScorer(emb, 999, time.Second)

	ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput()))
	if !ms.Available {
		t.Fatalf("unavailable: %s", ms.Error)
	}
	if ms.Score <= 999/2 {
		t.Errorf("score = %v, want above midpoint near positive anchor", ms.Score)
	}
	if ms.Score < 0 || ms.Score > 999 {
		t.Errorf("score %v out of range", ms.Score)
	}
}

func TestEmbeddingScorerNearNegativeAnchor(t *testing.T) {
	emb := &stubEmbedder{
		vectors: map[string][]float32{
			anchorInvestable: {1, 0},
			anchorNotReady:   {0, 1},
		},
		def: []float32{0.05, 1},
	}
	s := NewEmbeddingScorer(emb, 999, time.Second)

	ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput()))
	if !ms.Available {
		t.Fatalf("unavailable: %s", ms.Error)
	}
	if ms.Score >= 999/2 {
		t.Errorf("score = %v, want below midpoint near negative anchor", ms.Score)
	}
}

func TestEmbeddingScorerUnavailableOnProviderError(t *testing.T) {
	s := NewEmbeddingScorer(&stubEmbedder{err: errTimeout}, 999, time.Second)
	if ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput())); ms.Available {
		t.Fatal("provider error must yield unavailable")
	}
}

// flakyEmbedder fails its first failUntil calls, then behaves like the
// wrapped stub.
type flakyEmbedder struct {
	stub      stubEmbedder
	failUntil int
	calls     int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errTimeout
	}
	return f.stub.Embed(ctx, text)
}

func TestEmbeddingScorerRecoversAfterAnchorFailure(t *testing.T) {
	emb := &flakyEmbedder{
		stub: stubEmbedder{
			vectors: map[string][]float32{
				anchorInvestable: {1, 0},
				anchorNotReady:   {0, 1},
			},
			def: []float32{1, 0.05},
		},
		failUntil: 1,
	}
	s := NewEmbeddingScorer(emb, 999, time.Second)
	in := richInput()
	f := assessment.Extract(in)

	ms := s.Score(context.Background(), in, f)
	if ms.Available {
		t.Fatal("first run must be unavailable while the provider is down")
	}

	ms = s.Score(context.Background(), in, f)
	if !ms.Available {
		t.Fatalf("second run still unavailable after provider recovered: %s", ms.Error)
	}
	if ms.Score <= 999/2 {
		t.Errorf("score = %v, want above midpoint near positive anchor", ms.Score)
	}
}

func TestEmbeddingScorerNilProvider(t *testing.T) {
	s := NewEmbeddingScorer(nil, 999, time.Second)
	if ms := s.Score(context.Background(), richInput(), assessment.Extract(richInput())); ms.Available {
		t.Fatal("nil provider must be unavailable")
	}
}

func TestCosine(t *testing.T) {
	got, err := cosine([]float32{1, 0}, []float32{1, 0})
	if err != nil || math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine identical = %v, %v", got, err)
	}
	got, err = cosine([]float32{1, 0}, []float32{0, 1})
	if err != nil || math.Abs(got) > 1e-9 {
		t.Errorf("cosine orthogonal = %v, %v", got, err)
	}
	if _, err := cosine([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("length mismatch must error")
	}
	if _, err := cosine([]float32{0, 0}, []float32{1, 1}); err == nil {
		t.Error("zero vector must error")
	}
}
