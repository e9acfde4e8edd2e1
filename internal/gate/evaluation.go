package gate

import (
	"time"

	"github.com/google/uuid"

	"github.com/checkgate/checkgate/internal/policy"
)

// Evaluation is the persisted record of one gate run: the policy snapshot,
// the signal that was scored, and the result.
type Evaluation struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Source        string    `json:"source,omitempty"`
	PolicyName    string    `json:"policy_name,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty"`

	Rules  []policy.Rule           `json:"rules"`
	Signal policy.Signal           `json:"signal,omitempty"`
	Result policy.EvaluationResult `json:"result"`
}

// New assembles an evaluation record around a computed result.
func New(source, policyName string, rs *policy.RuleSet, sig policy.Signal, res policy.EvaluationResult) Evaluation {
	return Evaluation{
		ID:            "eval-" + uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		Source:        source,
		PolicyName:    policyName,
		SchemaVersion: policy.Version,
		Rules:         rs.Rules(),
		Signal:        sig,
		Result:        res,
	}
}
