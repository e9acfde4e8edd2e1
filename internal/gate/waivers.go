package gate

import (
	"strings"
	"time"

	"github.com/checkgate/checkgate/internal/policy"
)

// Waiver suppresses a required rule's failure for a limited time. Source
// optionally scopes it to one unit of work; empty matches any.
type Waiver struct {
	ID        int64      `json:"id"`
	RuleID    string     `json:"rule_id"`
	Source    string     `json:"source,omitempty"`
	Reason    string     `json:"reason"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// ApplyWaivers reclassifies required failures covered by an active waiver.
// A waived rule is dropped from RequiredFailures, marked on its per-rule
// row, and listed in WaivedRules; if nothing required remains failing the
// aggregate flips to PASS. Waiver policy lives here, outside the pure
// evaluator, so the core verdict stays a function of (rules, signal) alone.
// Callers pass active waivers only (storage filters expiry and revocation).
// Returns the adjusted result and the waived count.
func ApplyWaivers(res policy.EvaluationResult, source string, waivers []Waiver) (policy.EvaluationResult, int) {
	if len(waivers) == 0 || len(res.RequiredFailures) == 0 {
		return res, 0
	}

	out := res
	out.Rules = make([]policy.RuleResult, len(res.Rules))
	copy(out.Rules, res.Rules)
	out.RequiredFailures = nil
	out.WaivedRules = append([]string(nil), res.WaivedRules...)

	waived := 0
	covered := func(ruleID string) bool {
		for _, w := range waivers {
			if !eqCI(w.RuleID, ruleID) {
				continue
			}
			if w.Source != "" && !eqCI(w.Source, source) {
				continue
			}
			return true
		}
		return false
	}

	for _, id := range res.RequiredFailures {
		if covered(id) {
			waived++
			out.WaivedRules = append(out.WaivedRules, id)
			for i := range out.Rules {
				if eqCI(out.Rules[i].RuleID, id) {
					out.Rules[i].Waived = true
				}
			}
			continue
		}
		out.RequiredFailures = append(out.RequiredFailures, id)
	}

	if len(out.RequiredFailures) == 0 {
		out.Status = policy.StatusPass
	}
	return out, waived
}

func eqCI(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
