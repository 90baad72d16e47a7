package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
)

// WarningMarker is prepended to a label when verification risk exceeds the
// flag threshold.
const WarningMarker = "[CONTENT WARNING] Review source material for: "

// riskFlagThreshold is a strict bound: exactly 0.50 does not flag.
const riskFlagThreshold = 0.50

// Evaluator turns a verification signal into a labeling decision, and after
// a failed quiz proposes what the remedial module should cover.
type Evaluator struct {
	ai  openai.Client
	log *logger.Logger
}

func NewEvaluator(ai openai.Client, log *logger.Logger) *Evaluator {
	return &Evaluator{ai: ai, log: log.With("service", "EvaluatorAgent")}
}

func (e *Evaluator) Kind() Kind { return KindEvaluator }

// Decide applies the exact flagging rule. A nil result means the verifier
// never delivered, which is treated as risk 1.0. The marker is prepended at
// most once, so re-evaluating an already flagged label is a no-op.
func (e *Evaluator) Decide(v *VerificationResult, candidateLabel string) EvaluationDecision {
	d := EvaluationDecision{FinalLabel: candidateLabel, RiskScore: 1.0}
	if v != nil {
		d.NodeID = v.NodeID
		d.RiskScore = v.RiskScore
	} else if e != nil && e.log != nil {
		e.log.Warn("no verification signal, assuming maximum risk")
	}
	if d.RiskScore > riskFlagThreshold {
		d.ShouldFlag = true
		if !strings.HasPrefix(candidateLabel, WarningMarker) {
			d.FinalLabel = WarningMarker + candidateLabel
		}
	}
	return d
}

// ProposeRemedialLabel names the single missing prerequisite concept that
// best explains a failed quiz.
func (e *Evaluator) ProposeRemedialLabel(ctx context.Context, nodeLabel string, missed []string) (string, error) {
	system := "A student just failed a module quiz. Identify the one missing prerequisite concept that best explains the failure and name a short remedial module for it."
	var b strings.Builder
	fmt.Fprintf(&b, "Failed module: %s\n", nodeLabel)
	if len(missed) > 0 {
		fmt.Fprintf(&b, "Missed questions:\n")
		for _, q := range missed {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"remedial_node_label": map[string]any{"type": "string"},
			"reason":              map[string]any{"type": "string"},
		},
		"required":             []string{"remedial_node_label", "reason"},
		"additionalProperties": false,
	}

	out, err := e.ai.GenerateJSON(ctx, system, b.String(), "remedial_plan", schema)
	if err != nil {
		return "", classify(KindEvaluator, err)
	}
	label, _ := out["remedial_node_label"].(string)
	if strings.TrimSpace(label) == "" {
		return "", &GenerationError{Agent: KindEvaluator, Err: fmt.Errorf("empty remedial label")}
	}
	return label, nil
}
