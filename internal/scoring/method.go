package scoring

import (
	"context"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
)

// Method names. The combiner and weight configuration key on these.
const (
	MethodRule       = "rule"
	MethodGenerative = "generative"
	MethodEmbedding  = "embedding"
)

// MethodScore is the output of one scoring technique for one assessment.
// Absence is a first-class state: an unavailable method carries
// Available=false and an error string, never a zero score that would
// silently drag down the blend.
type MethodScore struct {
	Method    string  `json:"method"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
	Available bool    `json:"available"`
	Error     string  `json:"error,omitempty"`
}

// Unavailable builds the explicit failure value for a method.
func Unavailable(method string, err error) MethodScore {
	ms := MethodScore{Method: method}
	if err != nil {
		ms.Error = err.Error()
	}
	return ms
}

// Method is a single scoring technique. Implementations must respect ctx
// deadlines and return an unavailable MethodScore instead of panicking or
// leaking provider errors past the pipeline boundary. Retries do not belong
// here; the job queue owns them.
type Method interface {
	Name() string
	Score(ctx context.Context, in *assessment.Input, f assessment.Features) MethodScore
}
