package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/checkgate/checkgate/internal/gate"
	"github.com/checkgate/checkgate/internal/policy"
)

type diffPayload struct {
	BaseID     string       `json:"base_id"`
	HeadID     string       `json:"head_id"`
	BaseStatus string       `json:"base_status"`
	HeadStatus string       `json:"head_status"`
	Summary    diffSummary  `json:"summary"`
	Regressed  []diffRule   `json:"regressed"`
	Fixed      []diffRule   `json:"fixed"`
	Changed    []diffChange `json:"changed"`
	OnlyInBase []string     `json:"only_in_base,omitempty"`
	OnlyInHead []string     `json:"only_in_head,omitempty"`
}

type diffSummary struct {
	Regressed int `json:"regressed"`
	Fixed     int `json:"fixed"`
	Changed   int `json:"changed"`
}

type diffRule struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category,omitempty"`
	Required bool   `json:"required"`
	Outcome  string `json:"outcome"`
}

type diffChange struct {
	RuleID string `json:"rule_id"`
	Base   string `json:"base_outcome"`
	Head   string `json:"head_outcome"`
}

// diff compares the per-rule outcomes of two evaluations. A regression is a
// rule that fails (or goes unmeasured) in head after passing in base; a fix
// is the reverse.
func diff(base, head *gate.Evaluation) diffPayload {
	bm := map[string]policy.RuleResult{}
	hm := map[string]policy.RuleResult{}
	for _, rr := range base.Result.Rules {
		bm[norm(rr.RuleID)] = rr
	}
	for _, rr := range head.Result.Rules {
		hm[norm(rr.RuleID)] = rr
	}

	p := diffPayload{
		BaseID:     base.ID,
		HeadID:     head.ID,
		BaseStatus: string(base.Result.Status),
		HeadStatus: string(head.Result.Status),
	}

	for k, hr := range hm {
		br, shared := bm[k]
		if !shared {
			p.OnlyInHead = append(p.OnlyInHead, hr.RuleID)
			continue
		}
		if br.Outcome == hr.Outcome {
			continue
		}
		p.Changed = append(p.Changed, diffChange{
			RuleID: hr.RuleID, Base: string(br.Outcome), Head: string(hr.Outcome),
		})
		switch {
		case br.Outcome == policy.Pass && hr.Outcome != policy.Pass:
			p.Regressed = append(p.Regressed, asDiff(hr))
		case br.Outcome != policy.Pass && hr.Outcome == policy.Pass:
			p.Fixed = append(p.Fixed, asDiff(hr))
		}
	}
	for k, br := range bm {
		if _, shared := hm[k]; !shared {
			p.OnlyInBase = append(p.OnlyInBase, br.RuleID)
		}
	}

	// stable order
	sort.Slice(p.Regressed, func(i, j int) bool { return p.Regressed[i].RuleID < p.Regressed[j].RuleID })
	sort.Slice(p.Fixed, func(i, j int) bool { return p.Fixed[i].RuleID < p.Fixed[j].RuleID })
	sort.Slice(p.Changed, func(i, j int) bool { return p.Changed[i].RuleID < p.Changed[j].RuleID })
	sort.Strings(p.OnlyInBase)
	sort.Strings(p.OnlyInHead)

	p.Summary = diffSummary{
		Regressed: len(p.Regressed),
		Fixed:     len(p.Fixed),
		Changed:   len(p.Changed),
	}
	return p
}

func WriteDiffJSON(baseID, headID, outDir string, base, head *gate.Evaluation) (string, error) {
	path := filepath.Join(outDir, "diff_"+baseID+"__"+headID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(diff(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func asDiff(rr policy.RuleResult) diffRule {
	return diffRule{
		RuleID:   rr.RuleID,
		Category: string(rr.Category),
		Required: rr.Required,
		Outcome:  string(rr.Outcome),
	}
}

func norm(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
