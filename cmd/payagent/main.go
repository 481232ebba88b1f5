package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"onepay.payagent/internal/app"
	"onepay.payagent/internal/config"
	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/logger"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	newAgent   = func(cfg *config.Config) (paymentAgent, error) {
		a, err := app.New(cfg)
		if err != nil {
			return nil, err
		}
		return agentAdapter{a}, nil
	}
)

type paymentAgent interface {
	Execute(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error)
	Recent(ctx context.Context, limit int) ([]*entities.TransactionRecord, error)
	Close()
}

type agentAdapter struct {
	*app.PayAgent
}

func (a agentAdapter) Execute(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error) {
	return a.Orchestrator.Execute(ctx, intent)
}

func (a agentAdapter) Recent(ctx context.Context, limit int) ([]*entities.TransactionRecord, error) {
	return a.History.Recent(ctx, limit)
}

type options struct {
	amount       string
	currency     string
	chain        string
	recipient    string
	orderID      string
	mode         string
	resource     string
	confidential bool
	history      int
	jsonOutput   bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("payagent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := &options{}
	fs.StringVar(&o.amount, "amount", "", "amount in display units, e.g. 20.00")
	fs.StringVar(&o.currency, "currency", string(entities.AssetUSDC), "token symbol: USDC or USDT")
	fs.StringVar(&o.chain, "chain", "", "ethereum, bsc, arbitrum or solana")
	fs.StringVar(&o.recipient, "to", "", "recipient address")
	fs.StringVar(&o.orderID, "order", "", "merchant order id to notify on success")
	fs.StringVar(&o.mode, "mode", "", "direct or facilitated (EVM only)")
	fs.StringVar(&o.resource, "resource", "", "x402 resource path for facilitated EVM payments")
	fs.BoolVar(&o.confidential, "confidential", false, "encrypt the amount in the history log")
	fs.IntVar(&o.history, "history", 0, "print the N most recent payments instead of paying")
	fs.BoolVar(&o.jsonOutput, "json", false, "print the settlement result as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *options) intent() (entities.PaymentIntent, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(o.amount))
	if err != nil {
		return entities.PaymentIntent{}, fmt.Errorf("invalid -amount %q", o.amount)
	}
	chain, err := entities.ParseChainID(o.chain)
	if err != nil {
		return entities.PaymentIntent{}, err
	}
	mode := entities.PaymentMode(strings.ToLower(o.mode))
	if mode != "" && mode != entities.PaymentModeDirect && mode != entities.PaymentModeFacilitated {
		return entities.PaymentIntent{}, fmt.Errorf("invalid -mode %q", o.mode)
	}
	return entities.PaymentIntent{
		Amount:       amount,
		Currency:     entities.AssetSymbol(strings.ToUpper(o.currency)),
		Chain:        chain,
		Recipient:    o.recipient,
		OrderID:      o.orderID,
		Mode:         mode,
		Resource:     o.resource,
		Confidential: o.confidential,
	}, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	_ = loadDotenv()
	cfg := loadCfg()
	initLog(cfg.Server.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := newAgent(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize payagent: %w", err)
	}
	defer agent.Close()

	if opts.history > 0 {
		return printHistory(ctx, agent, opts.history, out)
	}

	intent, err := opts.intent()
	if err != nil {
		return err
	}

	result, execErr := agent.Execute(ctx, intent)
	if opts.jsonOutput && result != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	if execErr != nil {
		return errors.New(domainerrors.UserMessage(execErr))
	}
	fmt.Fprintf(out, "Payment settled: %s\n", result.TransactionReference.String)
	if result.ExplorerURL != "" {
		fmt.Fprintf(out, "Explorer: %s\n", result.ExplorerURL)
	}
	return nil
}

func printHistory(ctx context.Context, agent paymentAgent, limit int, out io.Writer) error {
	records, err := agent.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No payments yet")
		return nil
	}
	for _, r := range records {
		amount := r.Amount.String
		if !r.Amount.Valid {
			amount = "(encrypted)"
		}
		fmt.Fprintf(out, "%s  %-8s %-12s %-13s %s\n", r.Hash, r.Status, amount, r.Network, r.Type)
	}
	return nil
}

var _ paymentAgent = agentAdapter{}
