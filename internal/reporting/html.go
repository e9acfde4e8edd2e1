package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/checkgate/checkgate/internal/gate"
	"github.com/checkgate/checkgate/internal/policy"
)

func WriteHTML(evalID, outDir string, ev *gate.Evaluation) (string, error) {
	path := filepath.Join(outDir, evalID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Per-category tallies
	type tally struct{ pass, fail, notEval int }
	byCat := map[policy.Category]*tally{}
	catOrder := []policy.Category{}
	for _, rr := range ev.Result.Rules {
		tl, ok := byCat[rr.Category]
		if !ok {
			tl = &tally{}
			byCat[rr.Category] = tl
			catOrder = append(catOrder, rr.Category)
		}
		switch rr.Outcome {
		case policy.Pass:
			tl.pass++
		case policy.Fail:
			tl.fail++
		default:
			tl.notEval++
		}
	}

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(evalID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .pass{color:#1a7f37} .fail{color:#b91c1c} .na{color:#92400e}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + verdict
	fmt.Fprintf(f, "<h1>checkgate report – <span class='mono'>%s</span></h1>", html.EscapeString(evalID))
	cls := "pass"
	if ev.Result.Status == policy.StatusFail {
		cls = "fail"
	}
	fmt.Fprintf(f, "<p>Verdict: <b class='%s'>%s</b> &nbsp; Rules: %d &nbsp; Required failures: %d &nbsp; Advisory failures: %d</p>",
		cls, ev.Result.Status, len(ev.Result.Rules), len(ev.Result.RequiredFailures), len(ev.Result.OptionalFailures))
	if ev.Source != "" {
		fmt.Fprintf(f, "<p class='dim'>Source: %s</p>", html.EscapeString(ev.Source))
	}
	if ev.PolicyName != "" {
		fmt.Fprintf(f, "<p class='dim'>Policy: %s</p>", html.EscapeString(ev.PolicyName))
	}
	if n := len(ev.Result.WaivedRules); n > 0 {
		fmt.Fprintf(f, "<p class='dim'>Waived rules: %d</p>", n)
	}

	// Category tallies
	fmt.Fprint(f, "<h2>Categories</h2><table><tr><th>Category</th><th>Pass</th><th>Fail</th><th>Not evaluated</th></tr>")
	for _, cat := range catOrder {
		tl := byCat[cat]
		fmt.Fprintf(f, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>",
			html.EscapeString(string(cat)), tl.pass, tl.fail, tl.notEval)
	}
	fmt.Fprint(f, "</table>")

	// Rule rows in policy order
	fmt.Fprint(f, "<h2>Rules</h2><table><tr><th>Rule</th><th>Category</th><th>Weight</th><th>Outcome</th></tr>")
	desc := map[string]string{}
	for _, r := range ev.Rules {
		desc[r.ID] = r.Description
	}
	for _, rr := range ev.Result.Rules {
		weight := "advisory"
		if rr.Required {
			weight = "required"
		}
		oc, occls := string(rr.Outcome), "na"
		switch rr.Outcome {
		case policy.Pass:
			occls = "pass"
		case policy.Fail:
			occls = "fail"
		}
		if rr.Waived {
			oc += " (waived)"
		}
		fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td><td>%s</td><td class='%s'>%s</td></tr>",
			html.EscapeString(rr.RuleID), html.EscapeString(string(rr.Category)), weight, occls, html.EscapeString(oc))
		if d := desc[rr.RuleID]; d != "" {
			fmt.Fprintf(f, "<tr><td colspan='4' class='dim'>%s</td></tr>", html.EscapeString(d))
		}
	}
	fmt.Fprint(f, "</table></body></html>")
	return path, nil
}
