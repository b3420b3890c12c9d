// Copyright (c) 2025 Eternadex Authors

package order

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Get struct {
	cmdutil.ClientFlags
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (order-id) argument")
	}
	req := &api.OrderGetRequest{
		OrderID: args[0],
	}
	resp, err := cmdutil.Post[api.OrderGetResponse](ctx, &c.ClientFlags, api.OrderGetPath, req)
	if err != nil {
		return err
	}
	jsdata, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Printf("%s\n", jsdata)
	return nil
}

func (c *Get) Synopsis() string {
	return "Prints the stored snapshot of an order"
}
