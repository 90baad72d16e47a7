package agents

import (
	"context"
	"fmt"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
)

// Verifier audits the professor's draft for hallucination risk. It runs
// strictly after the professor because the draft is its input.
type Verifier struct {
	ai  openai.Client
	log *logger.Logger
}

func NewVerifier(ai openai.Client, log *logger.Logger) *Verifier {
	return &Verifier{ai: ai, log: log.With("service", "VerifierAgent")}
}

func (v *Verifier) Kind() Kind { return KindVerifier }

func (v *Verifier) Run(ctx context.Context, req Request) (*Output, error) {
	if req.Draft == nil || req.Draft.Text == "" {
		return nil, &GenerationError{Agent: KindVerifier, Err: fmt.Errorf("no content draft to verify")}
	}

	system := "You audit lecture content for factual confidence. " +
		"Assign a hallucination risk score from 0.0 (high confidence) to 1.0 (low confidence) and list the specific claims that drove the score."
	user := fmt.Sprintf("Module: %s\n\nContent:\n%s", req.NodeLabel, req.Draft.Text)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"risk_score": map[string]any{"type": "number"},
			"flagged_claims": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"risk_score", "flagged_claims"},
		"additionalProperties": false,
	}

	out, err := v.ai.GenerateJSON(ctx, system, user, "content_audit", schema)
	if err != nil {
		return nil, classify(KindVerifier, err)
	}

	var parsed struct {
		RiskScore     float64  `json:"risk_score"`
		FlaggedClaims []string `json:"flagged_claims"`
	}
	if err := decodeInto(out, &parsed); err != nil {
		return nil, &GenerationError{Agent: KindVerifier, Err: fmt.Errorf("decode audit: %w", err)}
	}
	if parsed.RiskScore < 0 {
		parsed.RiskScore = 0
	}
	if parsed.RiskScore > 1 {
		parsed.RiskScore = 1
	}

	return &Output{
		Kind: KindVerifier,
		Verification: &VerificationResult{
			NodeID:        req.NodeID,
			RiskScore:     parsed.RiskScore,
			FlaggedClaims: parsed.FlaggedClaims,
		},
	}, nil
}
