package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/dittorpc/internal/logger"
	"github.com/marmos91/dittorpc/pkg/clnt"
	"github.com/marmos91/dittorpc/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var callCmd = &cobra.Command{
	Use:   "call <host:port>",
	Short: "call a procedure on a server",
	Example: `  rpcping call 127.0.0.1:111
  rpcping call --program 100003 --version 3 --count 100 --concurrency 8 nfs.local:2049`,
	Args: cobra.ExactArgs(1),
	RunE: doCall,
}

var callArgs struct {
	count       int
	concurrency int
	proc        uint32
	program     uint32
	version     uint32
	timeout     time.Duration
	retry       time.Duration
	auth        string
	metrics     bool
	metricsPort int
	quiet       bool
}

func init() {
	rootCmd.AddCommand(callCmd)
	addCallFlags(callCmd.Flags())
}

func addCallFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&callArgs.count, "count", "c", 1, "number of calls")
	fs.IntVarP(&callArgs.concurrency, "concurrency", "j", 1, "number of handles calling in parallel over one socket")
	fs.Uint32VarP(&callArgs.proc, "proc", "p", 0, "procedure number (0 is NULL)")
	fs.Uint32Var(&callArgs.program, "program", 0, "program number (overrides client.program)")
	fs.Uint32Var(&callArgs.version, "version", 0, "program version (overrides client.version)")
	fs.DurationVarP(&callArgs.timeout, "timeout", "t", 0, "total timeout per call (overrides client.call_timeout)")
	fs.DurationVar(&callArgs.retry, "retry", 0, "first retransmit interval (overrides client.retry_timeout)")
	fs.StringVar(&callArgs.auth, "auth", "", "auth flavor: none or unix (overrides auth.flavor)")
	fs.BoolVar(&callArgs.metrics, "metrics", false, "serve Prometheus metrics while calling")
	fs.IntVar(&callArgs.metricsPort, "metrics-port", 0, "metrics port (overrides metrics.port)")
	fs.BoolVarP(&callArgs.quiet, "quiet", "q", false, "only print the summary")
}

// applyCallFlags overrides configuration values with the flags the user set.
func applyCallFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("program") {
		cfg.Client.Program = callArgs.program
	}
	if fs.Changed("version") {
		cfg.Client.Version = callArgs.version
	}
	if fs.Changed("timeout") {
		cfg.Client.CallTimeout = callArgs.timeout
	}
	if fs.Changed("retry") {
		cfg.Client.RetryTimeout = callArgs.retry
	}
	if fs.Changed("auth") {
		cfg.Auth.Flavor = callArgs.auth
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Enabled = callArgs.metrics
	}
	if fs.Changed("metrics-port") {
		cfg.Metrics.Port = callArgs.metricsPort
	}
}

// nullArgs encodes an empty argument list. It is never nil so async handles
// still transmit.
func nullArgs(io.Writer) error { return nil }

// discardResults ignores whatever the procedure returned.
func discardResults(io.Reader) error { return nil }

func doCall(cmd *cobra.Command, args []string) error {
	if callArgs.count < 1 || callArgs.concurrency < 1 {
		return fmt.Errorf("--count and --concurrency must be positive")
	}

	cfg, err := config.Load(rootArgs.configFile)
	if err != nil {
		return err
	}
	applyCallFlags(cmd.Flags(), cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := config.ConfigureLogging(&cfg.Logging); err != nil {
		return err
	}

	auth, err := config.CreateAuth(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	addr, err := net.ResolveUDPAddr(cfg.Transport.Network, args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := m.Server.Start(metricsCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		defer func() {
			cancelMetrics()
			<-done
		}()
	}

	sock, err := clnt.ListenUDP(cfg.Transport.UDPConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := sock.Close(); err != nil {
			logger.Debug("Socket close: %v", err)
		}
	}()

	opts := cfg.Client.Options(auth, m.ClientMetrics)
	handles := make([]*clnt.Client, callArgs.concurrency)
	for i := range handles {
		c, err := clnt.New(sock, addr, cfg.Client.Program, cfg.Client.Version, opts)
		if err != nil {
			return err
		}
		c.SetAsync(cfg.Client.Async)
		defer c.Destroy()
		handles[i] = c
	}

	logger.Info("Calling %s prog=%d vers=%d proc=%d from %s", addr, cfg.Client.Program, cfg.Client.Version, callArgs.proc, sock.LocalAddr())

	stats := newPingStats()
	out := cmd.OutOrStdout()
	var seq atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range handles {
		g.Go(func() error {
			for {
				n := seq.Add(1)
				if n > int64(callArgs.count) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}

				rexmits := 0
				ext := &clnt.CallExtra{Feedback: func(ev clnt.FeedbackEvent, _ uint32) {
					if ev != clnt.FeedbackOK {
						rexmits++
					}
				}}

				callStart := time.Now()
				err := c.CallWith(gctx, ext, callArgs.proc, nullArgs, discardResults, cfg.Client.CallTimeout)
				elapsed := time.Since(callStart)
				stats.record(elapsed, err)

				if clnt.StatusOf(err) == clnt.Intr {
					return err
				}
				if !callArgs.quiet {
					printCall(out, addr, n, c.XID(), elapsed, rexmits, err)
				}
			}
		})
	}
	waitErr := g.Wait()

	stats.summary(out, time.Since(start))

	if waitErr != nil {
		return waitErr
	}
	if failed := stats.failed(); failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, callArgs.count)
	}
	return nil
}

func printCall(w io.Writer, addr net.Addr, seq int64, xid uint32, elapsed time.Duration, rexmits int, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s: seq=%d xid=%#08x %v\n", addr, seq, xid, err)
		return
	}
	fmt.Fprintf(w, "%s: seq=%d xid=%#08x time=%v rexmits=%d\n", addr, seq, xid, elapsed.Round(time.Microsecond), rexmits)
}
