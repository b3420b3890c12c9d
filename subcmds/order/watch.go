// Copyright (c) 2025 Eternadex Authors

package order

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/eternadex/swapd/api"
	"github.com/eternadex/swapd/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Watch struct {
	cmdutil.ClientFlags
}

func (c *Watch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "watch", fset, cli.CmdFunc(c.run)
}

// run streams status frames for an order until the server closes the
// connection after a terminal status.
func (c *Watch) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (order-id) argument")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsURL := &url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port())),
		Path:   path.Join(api.OrderWatchPathPrefix, args[0]),
	}

	var dialer websocket.Dialer
	conn, _, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("could not dial to %q: %w", wsURL, err)
	}
	defer conn.Close()

	context.AfterFunc(ctx, func() {
		conn.Close()
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("could not read websocket message: %w", err)
		}
		fmt.Printf("%s\n", msg)
	}
}

func (c *Watch) Synopsis() string {
	return "Streams live status updates for an order"
}
