// Copyright (c) 2025 Eternadex Authors

package main

import (
	"context"
	"log"
	"os"

	"github.com/eternadex/swapd/subcmds"
	"github.com/eternadex/swapd/subcmds/db"
	"github.com/eternadex/swapd/subcmds/order"
	"github.com/visvasity/cli"
)

func main() {
	orderCmds := []cli.Command{
		new(order.Execute),
		new(order.Get),
		new(order.Watch),
	}

	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		cli.NewGroup("order", "Submit and inspect swap orders", orderCmds...),
		cli.NewGroup("db", "View database entries directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
