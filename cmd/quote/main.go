// Command quote applies cart commands to a stored shopping cart and prints
// the priced result as JSON.
//
//	quote -token abc -shop-id 10 -shop-code SHOE -country GB 'addToCart?supplier=Main&sku=SKU-1&qty=2'
//	quote -token abc -input batch.json
//	quote -token abc
//	quote -health
//
// Without commands the stored cart is re-priced. Exit codes follow the
// common package: 2 invalid input, 3 unknown cart, 4 rejected command,
// 5 dependency unavailable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/cart/command"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	token      string
	input      string
	currency   string
	metricsOut string
	list       bool
	health     bool
	context    cart.ShoppingContext
	args       []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.token, "token", "", "cart session token")
	fs.StringVar(&o.input, "input", "", "JSON batch file, - for stdin")
	fs.StringVar(&o.currency, "currency", "", "cart currency for new carts")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile on exit")
	fs.BoolVar(&o.list, "list", false, "print the accepted command names")
	fs.BoolVar(&o.health, "health", false, "probe postgres, redis and the catalog breaker, then exit")
	fs.Int64Var(&o.context.ShopID, "shop-id", 0, "shop id")
	fs.StringVar(&o.context.ShopCode, "shop-code", "", "shop code")
	fs.Int64Var(&o.context.CustomerShopID, "customer-shop-id", 0, "customer shop id")
	fs.StringVar(&o.context.CustomerShopCode, "customer-shop-code", "", "customer shop code")
	fs.StringVar(&o.context.CountryCode, "country", "", "delivery country code")
	fs.StringVar(&o.context.StateCode, "state", "", "delivery state code")
	fs.StringVar(&o.context.CustomerEmail, "email", "", "customer email")
	if err := fs.Parse(args); err != nil {
		return options{}, common.NewAppError("BAD_ARGS", err.Error(), common.ExitInvalid, nil)
	}
	o.args = fs.Args()
	return o, nil
}

// loadBatch merges the -input document with positional commands and flags.
func loadBatch(o options, stdin io.Reader) (batch, []command.Command, error) {
	var b batch
	if o.input != "" {
		r := stdin
		if o.input != "-" {
			f, err := os.Open(o.input)
			if err != nil {
				return batch{}, nil, common.NewAppError("BAD_ARGS", err.Error(), common.ExitInvalid, err)
			}
			defer f.Close()
			r = f
		}
		var err error
		if b, err = readBatch(r); err != nil {
			return batch{}, nil, err
		}
	}
	for _, arg := range o.args {
		raw, err := parseArg(arg)
		if err != nil {
			return batch{}, nil, err
		}
		b.Commands = append(b.Commands, raw)
	}
	if o.currency != "" {
		b.Currency = o.currency
	}
	if b.Currency == "" {
		b.Currency = "EUR"
	}
	b.Currency = strings.ToUpper(b.Currency)
	b.Context = overlay(b.Context, o.context)
	cmds, err := b.commands()
	if err != nil {
		return batch{}, nil, err
	}
	return b, cmds, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return common.JSONError(stderr, err)
	}
	if o.list {
		fmt.Fprintln(stdout, strings.Join(command.Names(), "\n"))
		return common.ExitOK
	}
	var (
		b    batch
		cmds []command.Command
	)
	if !o.health {
		if strings.TrimSpace(o.token) == "" {
			return common.JSONError(stderr, common.NewAppError("BAD_ARGS", "-token is required", common.ExitInvalid, nil))
		}
		if b, cmds, err = loadBatch(o, stdin); err != nil {
			return common.JSONError(stderr, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return common.JSONError(stderr, common.NewAppError("CONFIG", err.Error(), common.ExitInvalid, err))
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.EnableTracing {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "toko-pricing",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	reg := prometheus.NewRegistry()
	a, err := newApp(ctx, cfg, reg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("initialise pricing engine")
		return common.JSONError(stderr, err)
	}
	defer a.Close()
	if o.metricsOut != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(o.metricsOut, reg); err != nil {
				logger.Error().Err(err).Str("path", o.metricsOut).Msg("write metrics")
			}
		}()
	}

	if o.health {
		report := a.health.Run(ctx)
		_ = common.JSON(stdout, report)
		if !report.OK {
			return common.ExitUnavailable
		}
		return common.ExitOK
	}

	var result session.Result
	if len(cmds) == 0 && o.input == "" {
		result, err = a.session.Quote(ctx, o.token)
	} else {
		result, err = a.session.Apply(ctx, o.token, session.Start{Currency: b.Currency, Context: b.Context}, cmds...)
	}
	if err != nil {
		return common.JSONError(stderr, err)
	}
	if err := common.JSON(stdout, result); err != nil {
		logger.Error().Err(err).Msg("write result")
		return common.ExitInternal
	}
	return common.ExitOK
}
