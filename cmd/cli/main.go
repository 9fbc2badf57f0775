package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garanaibrahim7/expense-manager/internal/backup"
	"github.com/garanaibrahim7/expense-manager/internal/connectivity"
	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/garanaibrahim7/expense-manager/internal/insights"
	"github.com/garanaibrahim7/expense-manager/internal/ledger"
	"github.com/garanaibrahim7/expense-manager/internal/localstore"
	"github.com/garanaibrahim7/expense-manager/internal/logger"
	"github.com/garanaibrahim7/expense-manager/internal/remote"
	"github.com/garanaibrahim7/expense-manager/internal/remote/memory"
	"github.com/garanaibrahim7/expense-manager/internal/syncengine"
	"github.com/garanaibrahim7/expense-manager/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-account":
		runAddAccount(log)
	case "accounts":
		runAccounts(log)
	case "delete-account":
		runDeleteAccount(log)
	case "add-tx":
		runAddTransaction(log)
	case "transactions":
		runTransactions(log)
	case "delete-tx":
		runDeleteTransaction(log)
	case "report":
		runReport(log)
	case "sync":
		runSync(log)
	case "backup":
		runBackup(log)
	case "insights":
		runInsights(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expense Manager CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add-account     Create a new account")
	fmt.Println("  accounts        List accounts with balances")
	fmt.Println("  delete-account  Delete an account and its transactions")
	fmt.Println("  add-tx          Record a transaction")
	fmt.Println("  transactions    List transactions, newest first")
	fmt.Println("  delete-tx       Delete a transaction (requires connectivity)")
	fmt.Println("  report          Aggregate income/expense report")
	fmt.Println("  sync            Full bidirectional sync with the remote store")
	fmt.Println("  backup          Export a JSON snapshot, optionally to GCS")
	fmt.Println("  insights        AI spending summary over a report")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	db      string
	user    string
	project string
	offline bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	var c commonFlags
	fs.StringVar(&c.db, "db", "expense-manager.db", "Path to the local SQLite database")
	fs.StringVar(&c.user, "user", "", "User id owning the rows (required)")
	fs.StringVar(&c.project, "project", "", "GCP project of the Firestore remote (omit for local-only)")
	fs.BoolVar(&c.offline, "offline", false, "Treat the network as unreachable")
	return &c
}

// env bundles everything a subcommand needs, built once per invocation.
type env struct {
	service *tracker.Service
	store   *localstore.Store
	remote  remote.Store
	close   func()
}

func setup(ctx context.Context, log zerolog.Logger, c *commonFlags) *env {
	if c.user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	store, err := localstore.Open(c.db)
	if err != nil {
		log.Fatal().Err(err).Str("db", c.db).Msg("Failed to open local store")
	}

	var rs remote.Store
	closeRemote := func() {}
	if c.project != "" {
		fs, err := remote.NewFirestoreStore(ctx, c.project)
		if err != nil {
			store.Close()
			log.Fatal().Err(err).Msg("Failed to initialize Firestore remote")
		}
		rs = fs
		closeRemote = func() { fs.Close() }
	} else {
		rs = memory.NewStore()
	}

	// One-shot commands trust the operator: online when a remote is
	// configured and -offline was not passed.
	gate := connectivity.NewStatic(c.project != "" && !c.offline)

	engine := syncengine.New(store, rs, gate)
	led := ledger.New(store)
	service := tracker.New(store, led, engine, gate, tracker.StaticAuth{UserID: c.user})

	if err := service.Bootstrap(ctx); err != nil {
		log.Warn().Err(err).Msg("Login-time pull failed, continuing with local data")
	}

	return &env{
		service: service,
		store:   store,
		remote:  rs,
		close: func() {
			closeRemote()
			store.Close()
		},
	}
}

func newContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	return logger.WithContext(ctx, log), cancel
}

func runAddAccount(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-account", flag.ExitOnError)
	c := registerCommon(fs)
	name := fs.String("name", "", "Account name (required)")
	initial := fs.String("initial", "0", "Initial balance")
	color := fs.String("color", "#4caf50", "Display color")
	icon := fs.String("icon", "wallet", "Display icon")
	fs.Parse(os.Args[2:])

	if *name == "" {
		log.Fatal().Msg("Error: -name is required")
	}
	initialBalance, err := decimal.NewFromString(*initial)
	if err != nil {
		log.Fatal().Err(err).Str("initial", *initial).Msg("Error: invalid initial balance")
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	account, err := e.service.CreateAccount(ctx, tracker.NewAccount{
		Name:           *name,
		InitialBalance: initialBalance,
		Color:          *color,
		Icon:           *icon,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}
	fmt.Printf("Created account %s (%s) with balance %s\n", account.Name, account.ID, account.CurrentBalance)
}

func runAccounts(log zerolog.Logger) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	c := registerCommon(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	accounts, err := e.service.Accounts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts yet.")
		return
	}
	for _, a := range accounts {
		state := "synced"
		if !a.Synced {
			state = "dirty"
		}
		fmt.Printf("%s  %-16s balance %10s (initial %s, %s)\n", a.ID, a.Name, a.CurrentBalance, a.InitialBalance, state)
	}
}

func runDeleteAccount(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete-account", flag.ExitOnError)
	c := registerCommon(fs)
	id := fs.String("id", "", "Account id (required)")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	if err := e.service.DeleteAccount(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete account")
	}
	fmt.Printf("Deleted account %s and its transactions\n", *id)
}

func runAddTransaction(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-tx", flag.ExitOnError)
	c := registerCommon(fs)
	accountID := fs.String("account", "", "Owning account id (required)")
	amount := fs.String("amount", "", "Positive amount (required)")
	typ := fs.String("type", "out", "Direction: in or out")
	category := fs.String("category", "", "Optional category label")
	note := fs.String("note", "", "Optional note")
	date := fs.String("date", "", "Transaction date as YYYY-MM-DD (default today)")
	fs.Parse(os.Args[2:])

	if *accountID == "" {
		log.Fatal().Msg("Error: -account is required")
	}
	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Str("amount", *amount).Msg("Error: invalid amount")
	}
	direction, err := domain.ParseTransactionType(*typ)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: -type must be in or out")
	}

	var dateMillis int64
	if *date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			log.Fatal().Err(err).Str("date", *date).Msg("Error: invalid date format, expected YYYY-MM-DD")
		}
		dateMillis = parsed.UnixMilli()
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	tx, err := e.service.AddTransaction(ctx, tracker.NewTransaction{
		AccountID: *accountID,
		Amount:    amt,
		Type:      direction,
		Category:  *category,
		Note:      *note,
		Date:      dateMillis,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add transaction")
	}
	fmt.Printf("Recorded %s %s on account %s (tx %s)\n", tx.Type, tx.Amount, tx.AccountID, tx.ID)
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	c := registerCommon(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	transactions, err := e.service.Transactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}
	if len(transactions) == 0 {
		fmt.Println("No transactions yet.")
		return
	}
	for _, t := range transactions {
		day := time.UnixMilli(t.Date).Format("2006-01-02")
		sign := "+"
		if t.Type == domain.TypeOut {
			sign = "-"
		}
		fmt.Printf("%s  %s  %s%10s  %-12s %s\n", t.ID, day, sign, t.Amount, t.Category, t.Note)
	}
}

func runDeleteTransaction(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete-tx", flag.ExitOnError)
	c := registerCommon(fs)
	id := fs.String("id", "", "Transaction id (required)")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	if err := e.service.DeleteTransaction(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}
	fmt.Printf("Deleted transaction %s\n", *id)
}

func registerFilter(fs *flag.FlagSet) (duration, start, end *string) {
	duration = fs.String("duration", "monthly", "Window: weekly, monthly, yearly or custom")
	start = fs.String("start", "", "Custom window start, YYYY-MM-DD")
	end = fs.String("end", "", "Custom window end, YYYY-MM-DD")
	return duration, start, end
}

func buildFilter(log zerolog.Logger, duration, start, end string) domain.AnalysisFilter {
	filter := domain.AnalysisFilter{DurationType: domain.DurationType(duration)}
	switch filter.DurationType {
	case domain.DurationWeekly, domain.DurationMonthly, domain.DurationYearly:
	case domain.DurationCustom:
		if start != "" {
			parsed, err := time.ParseInLocation("2006-01-02", start, time.Local)
			if err != nil {
				log.Fatal().Err(err).Msg("Error: invalid -start, expected YYYY-MM-DD")
			}
			filter.StartDate = parsed.UnixMilli()
		}
		if end != "" {
			parsed, err := time.ParseInLocation("2006-01-02", end, time.Local)
			if err != nil {
				log.Fatal().Err(err).Msg("Error: invalid -end, expected YYYY-MM-DD")
			}
			// End of the named day, inclusive.
			filter.EndDate = parsed.AddDate(0, 0, 1).UnixMilli() - 1
		}
	default:
		log.Fatal().Str("duration", duration).Msg("Error: unknown duration type")
	}
	return filter
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	c := registerCommon(fs)
	duration, start, end := registerFilter(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	report, err := e.service.Report(ctx, buildFilter(log, *duration, *start, *end))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report")
	}

	fmt.Printf("Income:  %s\nExpense: %s\nNet:     %s\n\n", report.TotalIncome, report.TotalExpense, report.Balance)
	fmt.Println("By account:")
	for _, acc := range report.ByAccount {
		fmt.Printf("  %-16s income %10s  expense %10s  net %10s\n", acc.AccountName, acc.Income, acc.Expense, acc.Balance)
	}
	if len(report.ByDate) > 0 {
		fmt.Println("\nBy day:")
		for _, day := range report.ByDate {
			fmt.Printf("  %s  income %10s  expense %10s\n", day.Date, day.Income, day.Expense)
		}
	}
}

func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	c := registerCommon(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	result, err := e.service.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
	fmt.Printf("Sync completed: downloaded %d, uploaded %d, failed %d\n",
		result.Downloaded, result.Uploaded, result.Failed)
}

func runBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	c := registerCommon(fs)
	out := fs.String("out", "", "Write the snapshot to this file ('-' for stdout)")
	bucket := fs.String("bucket", "", "Upload the snapshot to this GCS bucket")
	object := fs.String("object", "", "GCS object name (default snapshots/<user>/<timestamp>.json)")
	fs.Parse(os.Args[2:])

	if *out == "" && *bucket == "" {
		log.Fatal().Msg("Error: one of -out or -bucket is required")
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	accounts, err := e.service.Accounts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read accounts")
	}
	transactions, err := e.service.Transactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}
	snap := backup.Build(c.user, accounts, transactions)

	if *out != "" {
		w := os.Stdout
		if *out != "-" {
			f, err := os.Create(*out)
			if err != nil {
				log.Fatal().Err(err).Str("out", *out).Msg("Failed to create snapshot file")
			}
			defer f.Close()
			w = f
		}
		if err := backup.Write(w, snap); err != nil {
			log.Fatal().Err(err).Msg("Failed to write snapshot")
		}
	}

	if *bucket != "" {
		name := *object
		if name == "" {
			name = fmt.Sprintf("snapshots/%s/%s.json", c.user, time.Now().UTC().Format("20060102-150405"))
		}
		if err := backup.Upload(ctx, *bucket, name, snap); err != nil {
			log.Fatal().Err(err).Msg("Failed to upload snapshot")
		}
		fmt.Printf("Uploaded snapshot to gs://%s/%s\n", *bucket, name)
	}
}

func runInsights(log zerolog.Logger) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	c := registerCommon(fs)
	duration, start, end := registerFilter(fs)
	fs.Parse(os.Args[2:])

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is not set")
	}

	ctx, cancel := newContext(log)
	defer cancel()
	e := setup(ctx, log, c)
	defer e.close()

	report, err := e.service.Report(ctx, buildFilter(log, *duration, *start, *end))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report")
	}

	generator, err := insights.NewGeminiGenerator(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini")
	}
	text, err := generator.SpendingInsights(ctx, report)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate insights")
	}
	fmt.Println(text)
}
