package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/checkgate/checkgate/internal/api"
	"github.com/checkgate/checkgate/internal/gate"
	"github.com/checkgate/checkgate/internal/policy"
	"github.com/checkgate/checkgate/internal/policydsl"
	"github.com/checkgate/checkgate/internal/reporting"
	"github.com/checkgate/checkgate/internal/security"
	"github.com/checkgate/checkgate/internal/shared"
	"github.com/checkgate/checkgate/internal/signals"
	"github.com/checkgate/checkgate/internal/storage"
)

func main() {
	// .env is optional; real env still wins inside LoadConfig.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "evaluate":
		evaluateCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "adduser":
		adduserCmd(os.Args[2:])
	case "version":
		fmt.Println("checkgate schema:", policy.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `checkgate – policy gate for code changes

Usage:
  checkgate evaluate --policy <pack.yaml> --signals <signals.yaml> [--source pr-123] [--out <reports-dir>] [--db ./checkgate.db] [--config ./configs/checkgate.yaml]
  checkgate report   --eval <eval-id>  [--out <reports-dir>] [--db ./checkgate.db] [--config ./configs/checkgate.yaml]
  checkgate diff     --base <eval-id> --head <eval-id> [--out <reports-dir>] [--db ./checkgate.db] [--config ./configs/checkgate.yaml]
  checkgate serve    [--addr :8080] [--policy <pack.yaml>] [--db ./checkgate.db] [--config ./configs/checkgate.yaml]
  checkgate adduser  --username <name> --password <pw> [--role admin|viewer] [--db ./checkgate.db]
  checkgate version

evaluate exits 1 when the aggregate verdict is FAIL, 2 on usage errors.
`)
}

func evaluateCmd(args []string) {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	policyPath := fs.String("policy", "", "Path to policy pack YAML")
	signalsPath := fs.String("signals", "", "Path to signals file (YAML/JSON)")
	source := fs.String("source", "", "Unit of work being gated (e.g. pr-123)")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	// precedence: flags > config > defaults
	if *policyPath == "" {
		*policyPath = cfg.Policy.Path
	}
	if *signalsPath == "" {
		*signalsPath = cfg.Signals.Path
	}
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	if *signalsPath == "" {
		fmt.Fprintln(os.Stderr, "evaluate: --signals (or signals.path in config) is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "evaluate: cannot create out dir:", err)
		os.Exit(1)
	}

	rs, policyName, err := policydsl.Load(*policyPath)
	if err != nil {
		slog.Error("policy load error", "path", *policyPath, "err", err)
		os.Exit(1)
	}
	sig, err := signals.LoadFile(*signalsPath, rs)
	if err != nil {
		slog.Error("signals load error", "path", *signalsPath, "err", err)
		os.Exit(1)
	}

	res, err := policy.Evaluate(rs, sig)
	if err != nil {
		slog.Error("evaluate error", "err", err)
		os.Exit(1)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	waivers, err := db.ListWaivers(true)
	if err != nil {
		slog.Error("db waivers error", "err", err)
		os.Exit(1)
	}
	res, waived := gate.ApplyWaivers(res, *source, waivers)
	if waived > 0 {
		slog.Info("waivers applied", "count", waived, "rules", res.WaivedRules)
	}

	ev := gate.New(*source, policyName, rs, sig, res)
	if err := db.SaveEvaluation(&ev); err != nil {
		slog.Error("db save error", "err", err)
		os.Exit(1)
	}

	jsonPath, _ := reporting.WriteJSON(ev.ID, *outDir, &ev)
	htmlPath, _ := reporting.WriteHTML(ev.ID, *outDir, &ev)
	slog.Info("evaluate complete",
		"eval", ev.ID,
		"status", res.Status,
		"json", jsonPath,
		"html", htmlPath,
		"db", filepath.Clean(*dbPath),
	)
	fmt.Printf("Verdict: %s\n  Eval: %s\n  Required failures: %v\n  Advisory failures: %v\n  JSON: %s\n  HTML: %s\n",
		res.Status, ev.ID, res.RequiredFailures, res.OptionalFailures, jsonPath, htmlPath)

	// Failure is data inside the evaluator; turning it into an exit code is
	// this command's policy.
	if res.Status == policy.StatusFail {
		os.Exit(1)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	evalID := fs.String("eval", "", "Evaluation ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *evalID == "" {
		fmt.Fprintln(os.Stderr, "report: --eval is required")
		os.Exit(2)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ev, err := db.LoadEvaluation(*evalID)
	if err != nil {
		slog.Error("load evaluation error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := reporting.WriteJSON(ev.ID, *outDir, &ev)
	htmlPath, _ := reporting.WriteHTML(ev.ID, *outDir, &ev)
	fmt.Printf("Report OK\n  Eval: %s\n  JSON: %s\n  HTML: %s\n", ev.ID, jsonPath, htmlPath)
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base evaluation ID")
	head := fs.String("head", "", "Head evaluation ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	be, err := db.LoadEvaluation(*base)
	if err != nil {
		slog.Error("load base evaluation error", "err", err)
		os.Exit(1)
	}
	he, err := db.LoadEvaluation(*head)
	if err != nil {
		slog.Error("load head evaluation error", "err", err)
		os.Exit(1)
	}
	path, err := reporting.WriteDiffJSON(*base, *head, *outDir, &be, &he)
	if err != nil {
		slog.Error("write diff error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Diff OK\n  %s\n", path)
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	policyPath := fs.String("policy", "", "Path to policy pack YAML")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *policyPath == "" {
		*policyPath = cfg.Policy.Path
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	rs, policyName, err := policydsl.Load(*policyPath)
	if err != nil {
		slog.Error("policy load error", "path", *policyPath, "err", err)
		os.Exit(1)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Policy:          rs,
		Logger:          logger,
		SessionDuration: time.Duration(cfg.Server.SessionTTLHours) * time.Hour,
	}
	slog.Info("serving", "addr", *addr, "policy", policyName, "db", filepath.Clean(*dbPath))
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func adduserCmd(args []string) {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "Role: admin|viewer")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "adduser: --username and --password are required")
		os.Exit(2)
	}
	if *role != "admin" && *role != "viewer" {
		fmt.Fprintln(os.Stderr, "adduser: --role must be admin or viewer")
		os.Exit(2)
	}

	hash, err := security.HashPassword(*password)
	if err != nil {
		slog.Error("hash error", "err", err)
		os.Exit(1)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	id, err := db.CreateUser(*username, hash, *role)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("User created\n  ID: %d\n  Username: %s\n  Role: %s\n", id, *username, *role)
}
