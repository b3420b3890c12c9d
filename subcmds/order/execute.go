// Copyright (c) 2025 Eternadex Authors

package order

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Execute struct {
	cmdutil.ClientFlags

	tokenIn  string
	tokenOut string
}

func (c *Execute) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("execute", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.tokenIn, "token-in", "SOL", "symbol of the token to sell")
	fset.StringVar(&c.tokenOut, "token-out", "USDC", "symbol of the token to buy")
	return "execute", fset, cli.CmdFunc(c.run)
}

func (c *Execute) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (amount) argument")
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("could not parse amount %q: %w", args[0], err)
	}
	req := &api.OrderExecuteRequest{
		TokenIn:  c.tokenIn,
		TokenOut: c.tokenOut,
		Amount:   amount,
	}
	resp, err := cmdutil.Post[api.OrderExecuteResponse](ctx, &c.ClientFlags, api.OrderExecutePath, req)
	if err != nil {
		return err
	}
	jsdata, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Printf("%s\n", jsdata)
	return nil
}

func (c *Execute) Synopsis() string {
	return "Submits a market order for asynchronous execution"
}
