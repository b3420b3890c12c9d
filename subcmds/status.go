// Copyright (c) 2025 Eternadex Authors

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/bvkgo/kv"
	"github.com/eternadex/swapd/gobs"
	"github.com/eternadex/swapd/kvutil"
	"github.com/eternadex/swapd/queue"
	"github.com/eternadex/swapd/store"
	"github.com/eternadex/swapd/subcmds/cmdutil"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.DBFlags
}

func (c *Status) Synopsis() string {
	return "Status prints a summary of the service and its orders"
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if c.DBFlags.IsRemoteDatabase() {
		if err := c.printProcess(ctx); err != nil {
			fmt.Printf("Server: not reachable (%v)\n", err)
		}
		fmt.Println()
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	statusCounts := make(map[string]int)
	var numOrders, numJobs int
	scan := func(ctx context.Context, r kv.Reader) error {
		begin, end := kvutil.PathRange(store.Keyspace)
		if err := kvutil.Ascend(ctx, r, begin, end, func(_ context.Context, _ kv.Reader, _ string, v *gobs.OrderData) error {
			numOrders++
			statusCounts[v.Status]++
			return nil
		}); err != nil {
			return fmt.Errorf("could not scan orders: %w", err)
		}
		begin, end = kvutil.PathRange(queue.Keyspace)
		if err := kvutil.Ascend(ctx, r, begin, end, func(_ context.Context, _ kv.Reader, _ string, _ *gobs.QueueJob) error {
			numJobs++
			return nil
		}); err != nil {
			return fmt.Errorf("could not scan queue jobs: %w", err)
		}
		return nil
	}
	if err := kv.WithReader(ctx, db, scan); err != nil {
		return err
	}

	fmt.Printf("Num Orders: %d\n", numOrders)
	fmt.Printf("Queue Depth: %d\n", numJobs)

	if len(statusCounts) > 0 {
		var statuses []string
		for s := range statusCounts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)

		fmt.Println()
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "Status\tCount\t\n")
		for _, s := range statuses {
			fmt.Fprintf(tw, "%s\t%d\t\n", s, statusCounts[s])
		}
		tw.Flush()
	}
	return nil
}

func (c *Status) printProcess(ctx context.Context) error {
	addrURL := c.DBFlags.AddressURL()
	addrURL.Path = "/pid"
	client := c.DBFlags.HttpClient()

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	pid, err := strconv.ParseInt(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("could not parse server pid %q: %w", data, err)
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("could not find server process %d: %w", pid, err)
	}
	fmt.Printf("Server PID: %d\n", pid)
	if v, err := p.CreateTime(); err == nil {
		created := time.UnixMilli(v)
		fmt.Printf("Server Uptime: %s\n", time.Since(created).Round(time.Second))
	}
	if v, err := p.CPUPercent(); err == nil {
		fmt.Printf("Server CPU: %.2f%%\n", v)
	}
	if v, err := p.MemoryInfo(); err == nil {
		fmt.Printf("Server RSS: %d MiB\n", v.RSS/1024/1024)
	}
	return nil
}
