// Copyright (c) 2025 Eternadex Authors

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/eternadex/swapd/daemonize"
	"github.com/eternadex/swapd/httputil"
	"github.com/eternadex/swapd/router"
	"github.com/eternadex/swapd/server"
	"github.com/eternadex/swapd/subcmds/cmdutil"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	noPprof bool

	maxAttempts int
	concurrency int

	secretsPath string
	dataDir     string
	logDir      string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.IntVar(&c.maxAttempts, "max-attempts", 0, "overrides the max execution attempts per order")
	fset.IntVar(&c.concurrency, "concurrency", 0, "overrides the number of concurrent executions")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.logDir, "log-dir", "", "path to the log files directory")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs the swap execution service in foreground"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the swap execution service. The service scans the
database for unfinished execution jobs and resumes them automatically.

SECRETS FILE

Alerting over Telegram requires a bot token and a chat id. Users can create a
secrets file with the credentials in JSON format, as below:

    {
        "telegram":{
            "bot_token":"111111111",
            "chat_id":2222222222
        }
    }

The secrets file is optional; without it failure alerts are not sent.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".swapd")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	var secrets *server.Secrets
	if len(c.secretsPath) != 0 {
		v, err := server.SecretsFromFile(c.secretsPath)
		if err != nil {
			return err
		}
		secrets = v
	}

	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.IP),
		Port: c.Port,
	}

	if c.background {
		// Health checker for the background process initialization.
		check := func(ctx context.Context) error {
			client := http.Client{Timeout: time.Second}
			resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("http status: %d", resp.StatusCode)
			}
			return nil
		}
		if err := daemonize.Daemonize(ctx, check); err != nil {
			return err
		}
	}

	if len(c.logDir) == 0 {
		c.logDir = filepath.Join(dataDir, "logs")
	}
	if err := os.MkdirAll(c.logDir, 0700); err != nil {
		return fmt.Errorf("could not create log directory %q: %w", c.logDir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{c.logDir},
	})
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))

	slog.Info("using data directory", "data-dir", dataDir, "log-dir", c.logDir)

	lockPath := filepath.Join(dataDir, "swapd.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	// Start the execution service.
	sopts := new(server.Options)
	if c.maxAttempts > 0 {
		sopts.Queue.MaxAttempts = c.maxAttempts
	}
	if c.concurrency > 0 {
		sopts.Queue.Concurrency = c.concurrency
	}
	swapper, err := server.New(ctx, db, router.SimVenues(), secrets, sopts)
	if err != nil {
		return err
	}
	defer swapper.Close()

	swapperAPIs := swapper.HandlerMap()
	for k, v := range swapperAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range swapperAPIs {
			s.RemoveHandler(k)
		}
	}()

	if err := swapper.Start(ctx); err != nil {
		return err
	}

	slog.Info("started swapd server", "address", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	slog.Info("swapd server is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
