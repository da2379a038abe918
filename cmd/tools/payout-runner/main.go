// cmd/tools/payout-runner/main.go
//
// Monthly owner payout run. Intended for cron:
//
//	payout-runner -period 2026-07            # pay July earnings
//	payout-runner -period 2026-07 -dry-run   # preview only
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"findam-backend/internal/accounts"
	"findam-backend/internal/bookings"
	"findam-backend/internal/common/config"
	"findam-backend/internal/common/database"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/payments"
	"findam-backend/internal/properties"
)

func main() {
	period := flag.String("period", "", "Payout period as YYYY-MM (default: previous month)")
	dryRun := flag.Bool("dry-run", false, "Compute eligible payouts without writing or transferring")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	periodStart, periodEnd, err := resolvePeriod(*period, time.Now().UTC())
	if err != nil {
		zapLog.Fatal("invalid period", zap.Error(err))
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres failed", zap.Error(err))
	}
	defer pg.Close()

	ctx := context.Background()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	db := pg.GetDB()
	svc := payments.NewService(payments.ServiceDeps{
		Repo:       payments.NewRepository(db),
		Gateway:    payments.NewNotchPayClient(cfg.Payments.NotchPay),
		BookingsDB: bookings.NewRepository(db),
		Accounts:   accounts.NewRepository(db),
		Properties: properties.NewRepository(db),
		HashKey:    cfg.Payments.NotchPay.HashKey,
		Currency:   cfg.Payments.Currency,
		Logger:     log,
	})

	zapLog.Info("Running payout batch",
		zap.Time("periodStart", periodStart),
		zap.Time("periodEnd", periodEnd),
		zap.Bool("dryRun", *dryRun),
	)

	result, err := svc.ProcessPayouts(ctx, periodStart, periodEnd, *dryRun)
	if err != nil {
		zapLog.Fatal("payout batch failed", zap.Error(err))
	}

	for _, p := range result.Payouts {
		fmt.Printf("%s  owner=%s  amount=%d %s  status=%s\n",
			p.ID, p.OwnerID, p.Amount, p.Currency, p.Status)
	}
	fmt.Printf("total: %d %s across %d payouts (dry-run: %v)\n",
		result.Total, cfg.Payments.Currency, len(result.Payouts), result.DryRun)
}

// resolvePeriod turns YYYY-MM into [first of month, first of next month).
// An empty period means the previous calendar month.
func resolvePeriod(period string, now time.Time) (time.Time, time.Time, error) {
	var start time.Time
	if period == "" {
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = firstOfThisMonth.AddDate(0, -1, 0)
	} else {
		var err error
		start, err = time.Parse("2006-01", period)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("period must be YYYY-MM: %w", err)
		}
	}
	return start, start.AddDate(0, 1, 0), nil
}
