// Command idmint operates an identifier allocator from the command line.
//
//	idmint -config idmint.yaml -as ops init
//	idmint -config idmint.yaml -as ops materialize -batch 100 -until-complete
//	idmint -config idmint.yaml request -owner alice -paid 100000000000000
//	idmint -config idmint.yaml info
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/viant/idmint"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/progress"
	"github.com/viant/idmint/service/allocator"
	"github.com/viant/toolbox"
)

const usage = `usage: idmint [-config URL] [-as operator] <command> [flags]

commands:
  init                          materialize the whole universe
  materialize [-batch N] [-until-complete]
  request -owner O -paid P [-entropy E]
  owner-of -id N
  numbers-of -owner O
  nonce -owner O
  info
  grant -owner O [-count N] | grant -owners O1,O2,...
  set-price -price P
  withdraw
  deposit -from F -amount A
  store-operator -url URL -operator O [-key K]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		Exitf("idmint: %v", err)
	}
}

// Exitf prints to stderr and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("idmint", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configURL := global.String("config", os.Getenv("IDMINT_CONFIG"), "config URL")
	actor := global.String("as", os.Getenv("IDMINT_ACTOR"), "identity used for operator commands")
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stdout, usage)
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stdout, usage)
		return flag.ErrHelp
	}
	command, args := rest[0], rest[1:]
	if command == "store-operator" {
		return storeOperator(ctx, args, stdout)
	}

	config, err := idmint.LoadConfig(ctx, *configURL)
	if err != nil {
		return err
	}
	srv, err := idmint.New(ctx, config)
	if err != nil {
		return err
	}
	defer srv.Close()
	alloc := srv.Allocator()
	if *actor != "" {
		ctx = policy.WithActor(ctx, *actor)
	}

	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	flags.SetOutput(stdout)
	switch command {
	case "init":
		if err = flags.Parse(args); err != nil {
			return err
		}
		record, err := alloc.InitializeFull(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, record)
	case "materialize":
		batch := flags.Uint64("batch", 100, "identifiers appended per batch")
		untilComplete := flags.Bool("until-complete", false, "repeat until the pool is complete")
		if err = flags.Parse(args); err != nil {
			return err
		}
		return materialize(ctx, alloc, *batch, *untilComplete, stdout)
	case "request":
		owner := flags.String("owner", "", "requester identity")
		paid := flags.Uint64("paid", 0, "amount paid")
		external := flags.String("entropy", "", "external entropy, clock based when empty")
		if err = flags.Parse(args); err != nil {
			return err
		}
		result, err := alloc.RequestAllocation(ctx, allocator.Request{Owner: *owner, Paid: model.Amount(*paid), Entropy: []byte(*external)})
		if err != nil {
			return err
		}
		return printJSON(stdout, result.Record)
	case "owner-of":
		id := flags.Uint64("id", 0, "identifier")
		if err = flags.Parse(args); err != nil {
			return err
		}
		owner, err := alloc.OwnerOf(*id)
		if err != nil {
			return err
		}
		if owner == "" {
			fmt.Fprintf(stdout, "%d: unallocated\n", *id)
			return nil
		}
		fmt.Fprintf(stdout, "%d: %s\n", *id, owner)
		return nil
	case "numbers-of":
		owner := flags.String("owner", "", "owner identity")
		if err = flags.Parse(args); err != nil {
			return err
		}
		return printJSON(stdout, alloc.NumbersOf(*owner))
	case "nonce":
		owner := flags.String("owner", "", "owner identity")
		if err = flags.Parse(args); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d\n", alloc.NonceOf(*owner))
		return nil
	case "info":
		if err = flags.Parse(args); err != nil {
			return err
		}
		return printJSON(stdout, alloc.Info())
	case "set-price":
		price := flags.Uint64("price", 0, "new price")
		if err = flags.Parse(args); err != nil {
			return err
		}
		change, err := alloc.SetPrice(ctx, model.Amount(*price))
		if err != nil {
			return err
		}
		return printJSON(stdout, change)
	case "grant":
		owner := flags.String("owner", "", "recipient identity")
		count := flags.Int("count", 1, "identifiers granted to -owner")
		owners := flags.String("owners", "", "comma separated recipients, one identifier each")
		if err = flags.Parse(args); err != nil {
			return err
		}
		var grant *model.Grant
		if *owners != "" {
			grant, err = alloc.GrantBatch(ctx, strings.Split(*owners, ","))
		} else {
			grant, err = alloc.Grant(ctx, *owner, *count)
		}
		if err != nil {
			return err
		}
		return printJSON(stdout, grant)
	case "withdraw":
		if err = flags.Parse(args); err != nil {
			return err
		}
		withdrawal, err := alloc.WithdrawProceeds(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, withdrawal)
	case "deposit":
		from := flags.String("from", "", "depositor identity")
		amount := flags.Uint64("amount", 0, "amount deposited")
		if err = flags.Parse(args); err != nil {
			return err
		}
		deposit, err := alloc.Deposit(ctx, *from, model.Amount(*amount))
		if err != nil {
			return err
		}
		return printJSON(stdout, deposit)
	}
	fmt.Fprint(stdout, usage)
	return fmt.Errorf("unknown command: %q", command)
}

func materialize(ctx context.Context, alloc *allocator.Service, batch uint64, untilComplete bool, stdout io.Writer) error {
	info := alloc.Info()
	ctx, _ = progress.WithNewTracker(ctx, info.Name, info.Universe.Size(), info.Cursor, uint64(info.TotalAllocated), func(p progress.Counters) {
		fmt.Fprintf(stdout, "materialized %d/%d (%.1f%%)\n", p.Materialized, p.Universe, p.Percent())
	})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := alloc.MaterializeNext(ctx, batch)
		if err != nil {
			if untilComplete && errors.Is(err, errs.ErrAlreadyComplete) {
				return nil
			}
			return err
		}
		if !untilComplete || record.Complete {
			return printJSON(stdout, record)
		}
	}
}

func storeOperator(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("store-operator", flag.ContinueOnError)
	flags.SetOutput(stdout)
	URL := flags.String("url", "", "secret location")
	operator := flags.String("operator", "", "operator identity")
	key := flags.String("key", "blowfish://default", "encryption key")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *URL == "" {
		return fmt.Errorf("-url is required")
	}
	if err := idmint.StoreOperator(ctx, *URL, *key, *operator); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "operator stored at %s\n", *URL)
	return nil
}

func printJSON(w io.Writer, value any) error {
	text, err := toolbox.AsIndentJSONText(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
