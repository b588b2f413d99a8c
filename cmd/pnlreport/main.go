package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/config"
	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/adapters/sqlite"
	"pnlEngine/internal/app"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/matching"
	"pnlEngine/internal/utils"
)

func main() {
	tradesPath := flag.String("trades", "", "Trades CSV file (id,symbol,side,quantity,price,fees,trade_time)")
	user := flag.String("user", "", "Read the user's trades from the database instead of a CSV file")
	marksPath := flag.String("marks", "", "Optional mark prices CSV (symbol,price)")
	taxYear := flag.Int("tax-year", time.Now().Year(), "Tax year to classify")
	matchesOut := flag.String("matches-out", "", "Write realized matches to this CSV file")
	strict := flag.Bool("strict", false, "Fail when an open symbol has no price (default from STRICT_MARKS)")
	flag.Parse()

	if (*tradesPath == "") == (*user == "") {
		log.Fatalf("exactly one of -trades or -user is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	// 2. Load trades
	var trades []domain.Trade
	if *user != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		defer repo.Close()
		if trades, err = repo.ListTrades(ctx, *user); err != nil {
			log.Fatalf("Error loading trades of %s: %v", *user, err)
		}
	} else if trades, err = utils.ReadTradesFromCSV(*tradesPath); err != nil {
		log.Fatalf("Error reading trades from %s: %v", *tradesPath, err)
	}

	var marks map[string]decimal.Decimal
	if *marksPath != "" {
		if marks, err = utils.ReadPricesFromCSV(*marksPath); err != nil {
			log.Fatalf("Error reading marks from %s: %v", *marksPath, err)
		}
	}

	// 3. Compute reports
	svc, err := app.NewReportService(cfg, appLogger, nil, nil, nil, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize report service: %v", err)
	}
	valuation := app.Valuation{Marks: marks}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "strict" {
			valuation.Strict = strict
		}
	})
	overview, err := svc.Overview(ctx, trades, valuation)
	if err != nil {
		log.Fatalf("Error computing overview: %v", err)
	}
	perf, err := svc.Performance(ctx, trades, nil)
	if err != nil {
		log.Fatalf("Error computing performance: %v", err)
	}
	taxReport, err := svc.Tax(ctx, trades, svc.TaxParams(*taxYear))
	if err != nil {
		log.Fatalf("Error computing tax report: %v", err)
	}

	printOverview(os.Stdout, overview, cfg.Currency)
	printPositions(os.Stdout, overview.OpenPositions, cfg.Currency)
	printBreakdown(os.Stdout, perf, cfg.Currency)
	printTax(os.Stdout, taxReport, cfg.Currency)
	printNotes(os.Stdout, overview.Notes)

	if *matchesOut != "" {
		res := matching.Match(trades, matching.Options{Workers: cfg.MatchWorkers})
		if err := utils.WriteMatchesToCSV(res.Matches, *matchesOut); err != nil {
			log.Fatalf("Error writing matches: %v", err)
		}
		fmt.Printf("\nWrote %d realized matches to %s\n", len(res.Matches), *matchesOut)
	}
}

func ratio(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}

func printOverview(out io.Writer, ov *app.Overview, currency string) {
	fmt.Fprintln(out, "## Overview")
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Realized\tUnrealized\tTotal\tWinRate\tAvgWin\tAvgLoss\tMaxDD\tR:R\tSharpe\tSortino\tPF\t")
	winRate := "—"
	if ov.WinRate != nil {
		winRate = fmt.Sprintf("%.2f%%", *ov.WinRate*100)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
		utils.FormatMoney(ov.RealizedPnL, currency),
		utils.FormatMoney(ov.UnrealizedPnL, currency),
		utils.FormatMoney(ov.TotalPnL, currency),
		winRate,
		utils.FormatOptionalMoney(ov.AvgWin, currency),
		utils.FormatOptionalMoney(ov.AvgLoss, currency),
		utils.FormatMoneyFloat(ov.Drawdown, currency),
		ratio(ov.RiskRewardRatio, "%.2f"),
		ratio(ov.AdvancedMetrics.SharpeRatio, "%.2f"),
		ratio(ov.AdvancedMetrics.SortinoRatio, "%.2f"),
		ratio(ov.AdvancedMetrics.ProfitFactor, "%.2f"),
	)
	w.Flush()
}

func printPositions(out io.Writer, positions []domain.OpenPosition, currency string) {
	fmt.Fprintln(out, "\n## Open Positions")
	if len(positions) == 0 {
		fmt.Fprintln(out, "No open positions.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tSide\tQty\tAvgCost\tMark\tSource\tUnrealized\t")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Symbol, p.Direction, p.Quantity.String(),
			p.AvgCost.StringFixed(4), p.MarkPrice.StringFixed(4), p.MarkSource,
			utils.FormatMoney(p.UnrealizedPnL, currency))
	}
	w.Flush()
}

func printBreakdown(out io.Writer, perf *app.PerformanceReport, currency string) {
	fmt.Fprintln(out, "\n## By Symbol")
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tMatches\tWins\tLosses\tWinRate\tPnL\t")
	for _, g := range perf.Breakdowns.BySymbol {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f%%\t%s\t\n", g.Key, g.Matches, g.Wins, g.Losses, g.WinRate*100, utils.FormatMoney(g.PnL, currency))
	}
	w.Flush()

	if perf.Stats.BestDay != nil {
		fmt.Fprintf(out, "Best day %s (%s), worst day %s (%s), streaks +%d/-%d\n",
			perf.Stats.BestDay.Period, utils.FormatMoneyFloat(perf.Stats.BestDay.PnL, currency),
			perf.Stats.WorstDay.Period, utils.FormatMoneyFloat(perf.Stats.WorstDay.PnL, currency),
			perf.Stats.MaxWinStreak, perf.Stats.MaxLossStreak)
	}
}

func printTax(out io.Writer, r *app.TaxReport, currency string) {
	fmt.Fprintf(out, "\n## Tax %d\n", r.TaxYear)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Term\tCount\tGains\tLosses\tNet\tRate\tTax\t")
	fmt.Fprintf(w, "short\t%d\t%s\t%s\t%s\t%.2f%%\t%s\t\n", r.ShortTerm.Count,
		utils.FormatMoney(r.ShortTerm.TotalGains, currency), utils.FormatMoney(r.ShortTerm.TotalLosses, currency),
		utils.FormatMoney(r.ShortTerm.Net, currency), r.TaxRates.ShortTermRate, utils.FormatMoney(r.Summary.ShortTermTax, currency))
	fmt.Fprintf(w, "long\t%d\t%s\t%s\t%s\t%.2f%%\t%s\t\n", r.LongTerm.Count,
		utils.FormatMoney(r.LongTerm.TotalGains, currency), utils.FormatMoney(r.LongTerm.TotalLosses, currency),
		utils.FormatMoney(r.LongTerm.Net, currency), r.TaxRates.LongTermRate, utils.FormatMoney(r.Summary.LongTermTax, currency))
	w.Flush()
	fmt.Fprintf(out, "Total tax: %s\n", utils.FormatMoney(r.Summary.TotalTax, currency))
	for _, h := range r.TaxLossHarvesting {
		fmt.Fprintf(out, "Harvest: %s losses of %s could offset %s\n", h.Type, utils.FormatMoney(h.AvailableLoss, currency), h.CouldOffset)
	}
	fmt.Fprintln(out, r.Notes.Disclaimer)
}

func printNotes(out io.Writer, n app.Notes) {
	if len(n.Skipped) == 0 && len(n.FallbackToCost) == 0 {
		return
	}
	fmt.Fprintln(out, "\n## Notes")
	for _, sk := range n.Skipped {
		fmt.Fprintf(out, "skipped: %v\n", sk)
	}
	for _, sym := range n.FallbackToCost {
		fmt.Fprintf(out, "no mark price for %s, valued at average cost\n", sym)
	}
}
