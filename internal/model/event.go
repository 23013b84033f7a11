package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Analysis progress phases, in the order the service normally reports
// them. The sequence is advisory; consumers must not enforce it.
const (
	PhaseEmbedding  = "embedding"
	PhaseRetrieval  = "retrieval"
	PhaseAnalysis   = "analysis"
	PhaseMitigation = "mitigation"
	PhaseDone       = "done"
)

// AnalysisEvent is one event from a live analysis stream. The set of
// implementations is closed: ProgressEvent and ResultEvent.
type AnalysisEvent interface {
	analysisEvent()
}

// ProgressEvent reports that the analysis entered a phase.
type ProgressEvent struct {
	Phase     string    `json:"phase"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (ProgressEvent) analysisEvent() {}

// ResultEvent carries the finalized assessment.
type ResultEvent struct {
	Data PolicyRiskResult `json:"data"`
}

func (ResultEvent) analysisEvent() {}

// ParseAnalysisEvent decodes a raw stream payload into an AnalysisEvent.
// Payloads with an unrecognized type discriminator decode to (nil, nil) so
// newer server event kinds pass through without breaking older clients.
func ParseAnalysisEvent(payload []byte) (AnalysisEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, eris.Wrap(err, "model: parse event envelope")
	}

	switch head.Type {
	case "progress":
		var ev ProgressEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, eris.Wrap(err, "model: parse progress event")
		}
		return ev, nil
	case "result":
		var ev ResultEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, eris.Wrap(err, "model: parse result event")
		}
		return ev, nil
	default:
		return nil, nil
	}
}
