package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/config"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/repository/postgresql"
	loyaltyService "github.com/cmlabs-hris/shopfloor-backend-go/internal/service/loyalty"
	shiftService "github.com/cmlabs-hris/shopfloor-backend-go/internal/service/shift"
	"github.com/spf13/cobra"
)

// errDiscrepancies makes the audit exit non-zero so it can gate a cron or CI job.
var errDiscrepancies = errors.New("ledger discrepancies found")

var (
	dsn        string
	shopID     string
	customerID string
	asJSON     bool
	hashCost   int

	rootCmd = &cobra.Command{
		Use:           "shopctl",
		Short:         "Operations tooling for the shop floor backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Replay loyalty ledgers and report balances that do not match",
		RunE:  runAudit,
	}

	expirePinsCmd = &cobra.Command{
		Use:   "expire-pins",
		Short: "Flag employees whose PIN has expired so they must change it",
		RunE:  runExpirePins,
	}

	hashPinCmd = &cobra.Command{
		Use:   "hash-pin [pin]",
		Short: "Print the bcrypt hash of a 4-digit PIN for seeding employees",
		Args:  cobra.ExactArgs(1),
		RunE:  runHashPin,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (defaults to DB_* environment)")

	auditCmd.Flags().StringVar(&shopID, "shop", "", "shop id to audit")
	auditCmd.Flags().StringVar(&customerID, "customer", "", "audit a single customer")
	auditCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = auditCmd.MarkFlagRequired("shop")

	hashPinCmd.Flags().IntVar(&hashCost, "cost", shiftService.DefaultPinHashCost, "bcrypt cost")

	rootCmd.AddCommand(auditCmd, expirePinsCmd, hashPinCmd)
}

func connect() (*database.DB, error) {
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dsn = cfg.DatabaseURL()
	}
	return database.NewPostgreSQLDB(dsn)
}

func runAudit(cmd *cobra.Command, args []string) error {
	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := loyaltyService.NewLoyaltyService(
		postgresql.NewTransactor(db),
		postgresql.NewCustomerRepository(db),
		postgresql.NewLoyaltyTransactionRepository(db),
		nil,
		nil,
	)
	return audit(cmd.Context(), svc, shopID, customerID, asJSON, cmd.OutOrStdout())
}

func audit(ctx context.Context, svc loyalty.LoyaltyService, shopID, customerID string, asJSON bool, out io.Writer) error {
	if !validator.IsValidUUID(shopID) {
		return fmt.Errorf("--shop must be a valid UUID")
	}

	var report loyalty.AuditReport
	if customerID != "" {
		d, err := svc.AuditCustomer(ctx, shopID, customerID)
		if err != nil {
			return err
		}
		report = loyalty.AuditReport{ShopID: shopID, CustomersChecked: 1, Discrepancies: []loyalty.Discrepancy{}}
		if d != nil {
			report.Discrepancies = append(report.Discrepancies, *d)
		}
	} else {
		var err error
		report, err = svc.AuditShop(ctx, shopID)
		if err != nil {
			return err
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "shop %s: %d customers checked, %d discrepancies\n",
			report.ShopID, report.CustomersChecked, len(report.Discrepancies))
		if len(report.Discrepancies) > 0 {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CUSTOMER\tPHONE\tBALANCE\tLEDGER SUM\tBROKEN AT")
			for _, d := range report.Discrepancies {
				brokenAt := "-"
				if d.BrokenAt != nil {
					brokenAt = *d.BrokenAt
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.CustomerID, d.Phone, d.CurrentPoints, d.LedgerSum, brokenAt)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
	}

	if len(report.Discrepancies) > 0 {
		return errDiscrepancies
	}
	return nil
}

func runExpirePins(cmd *cobra.Command, args []string) error {
	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	flagged, err := cron.NewPinJobs(postgresql.NewEmployeeRepository(db), time.Now).FlagExpiredPins(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d employee(s) flagged for a PIN change\n", flagged)
	return nil
}

func runHashPin(cmd *cobra.Command, args []string) error {
	if !validator.IsValidPin(args[0]) {
		return fmt.Errorf("pin must be exactly 4 digits")
	}
	hash, err := shiftService.HashPin(args[0], hashCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
