package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/checkgate/checkgate/internal/gate"
	"github.com/checkgate/checkgate/internal/policy"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "checkgate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func sampleEvaluation(t *testing.T, id, source string) gate.Evaluation {
	t.Helper()
	rs, err := policy.NewRuleSet([]policy.Rule{
		{ID: "tests-pass", Category: policy.Testing, Required: true},
		{ID: "no-secrets", Category: policy.Security, Required: true},
		{ID: "lint-clean", Category: policy.CodeQuality},
	})
	if err != nil {
		t.Fatalf("ruleset: %v", err)
	}
	sig := policy.Signal{"tests-pass": true, "lint-clean": false}
	res, err := policy.Evaluate(rs, sig)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	ev := gate.New(source, "web-app-gate", rs, sig, res)
	ev.ID = id
	ev.StartedAt = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	return ev
}

func TestSaveLoadEvaluation_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ev := sampleEvaluation(t, "eval-roundtrip", "pr-42")

	if err := db.SaveEvaluation(&ev); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadEvaluation("eval-roundtrip")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != ev.ID || got.Source != "pr-42" || got.PolicyName != "web-app-gate" {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.Result.Status != policy.StatusFail {
		t.Fatalf("status = %s, want FAIL (no-secrets unmeasured)", got.Result.Status)
	}
	if len(got.Result.Rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(got.Result.Rules))
	}
}

func TestSaveEvaluation_UpsertRewritesResults(t *testing.T) {
	db := openTestDB(t)
	ev := sampleEvaluation(t, "eval-upsert", "pr-42")
	if err := db.SaveEvaluation(&ev); err != nil {
		t.Fatalf("save: %v", err)
	}
	// re-save with a fully passing result under the same ID
	ev2 := sampleEvaluation(t, "eval-upsert", "pr-42")
	for i := range ev2.Result.Rules {
		ev2.Result.Rules[i].Outcome = policy.Pass
	}
	ev2.Result.Status = policy.StatusPass
	ev2.Result.RequiredFailures = nil
	ev2.Result.OptionalFailures = nil
	if err := db.SaveEvaluation(&ev2); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	rows, err := db.ListEvaluations(10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Status != "PASS" || rows[0].RequiredFailures != 0 {
		t.Fatalf("row = %+v, want PASS with 0 required failures", rows[0])
	}
}

func TestLoadEvaluation_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadEvaluation("eval-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := db.LoadLatestEvaluation(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("latest err = %v, want ErrNotFound", err)
	}
}

func TestListEvaluations_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	older := sampleEvaluation(t, "eval-a", "pr-1")
	newer := sampleEvaluation(t, "eval-b", "pr-2")
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	for _, ev := range []gate.Evaluation{older, newer} {
		ev := ev
		if err := db.SaveEvaluation(&ev); err != nil {
			t.Fatalf("save %s: %v", ev.ID, err)
		}
	}

	rows, err := db.ListEvaluations(10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "eval-b" || rows[1].ID != "eval-a" {
		t.Fatalf("unexpected order: %+v", rows)
	}

	latest, err := db.LoadLatestEvaluation()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "eval-b" {
		t.Fatalf("latest = %s, want eval-b", latest.ID)
	}
}

func TestListResults_Filters(t *testing.T) {
	db := openTestDB(t)
	ev := sampleEvaluation(t, "eval-filter", "pr-7")
	if err := db.SaveEvaluation(&ev); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, err := db.ListResults("eval-filter", "", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}
	// FAIL sorts before NOT_EVALUATED before PASS
	if all[0].Outcome != policy.Fail || all[1].Outcome != policy.NotEvaluated || all[2].Outcome != policy.Pass {
		t.Fatalf("unexpected order: %+v", all)
	}

	sec, err := db.ListResults("eval-filter", string(policy.Security), "")
	if err != nil {
		t.Fatalf("list security: %v", err)
	}
	if len(sec) != 1 || sec[0].RuleID != "no-secrets" {
		t.Fatalf("security filter: %+v", sec)
	}

	failed, err := db.ListResults("eval-filter", "", string(policy.Fail))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].RuleID != "lint-clean" {
		t.Fatalf("outcome filter: %+v", failed)
	}
}

func TestWaivers_Lifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateWaiver("tests-pass", "pr-42", "flaky suite", "admin", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	expired, err := db.CreateWaiver("lint-clean", "", "old", "admin", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	_ = expired

	active, err := db.ListWaivers(true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].RuleID != "tests-pass" || active[0].Source != "pr-42" {
		t.Fatalf("active = %+v", active)
	}

	all, err := db.ListWaivers(false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	if err := db.RevokeWaiver(id, "admin"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, err = db.ListWaivers(true)
	if err != nil {
		t.Fatalf("list after revoke: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active after revoke = %+v", active)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := openTestDB(t)

	uid, err := db.CreateUser("maya", "hash", "admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, hash, err := db.GetUserByUsername("maya")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ID != uid || u.Role != "admin" || hash != "hash" {
		t.Fatalf("user = %+v hash=%q", u, hash)
	}

	if err := db.CreateSession(uid, "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := db.GetSession("tok-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Username != "maya" {
		t.Fatalf("session user = %+v", got)
	}

	if err := db.CreateSession(uid, "tok-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create stale session: %v", err)
	}
	if _, err := db.GetSession("tok-old"); err == nil {
		t.Fatalf("expected stale session rejection")
	}

	if err := db.DeleteSession("tok-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.GetSession("tok-1"); err == nil {
		t.Fatalf("expected deleted session rejection")
	}

	if err := db.LogAudit("maya", "login", "", map[string]any{"ip": "127.0.0.1"}); err != nil {
		t.Fatalf("audit: %v", err)
	}
}
