package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/zoobzio/profilez"
	"github.com/zoobzio/profilez/systrace"
	"github.com/zoobzio/profilez/transport"
	"go.uber.org/zap"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Profile a synthetic bridge workload and write the trace",
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().Duration("duration", 2*time.Second, "how long to run the workload")
	recordCmd.Flags().Int("workers", 4, "number of concurrent workers")
	recordCmd.Flags().StringP("output", "o", "", "trace file (overrides config)")
	recordCmd.Flags().Bool("systrace", false, "also write atrace marker lines to stderr")
	recordCmd.Flags().Bool("upload", false, "upload the trace to the configured endpoint")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	duration, _ := cmd.Flags().GetDuration("duration")
	workers, _ := cmd.Flags().GetInt("workers")
	withSystrace, _ := cmd.Flags().GetBool("systrace")
	upload, _ := cmd.Flags().GetBool("upload")
	output := cfg.Profile.Output
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		output = v
	}
	mask, err := cfg.Mask()
	if err != nil {
		return errors.Trace(err)
	}
	format := cfg.Format()

	rec := profilez.New().WithLogger(logger).WithFormat(format)
	defer rec.Close()

	if withSystrace {
		tracer := systrace.NewWriter(os.Stderr, os.Getpid())
		rec.RegisterBackend(systrace.NewAdapter(tracer.Callbacks(), cfg.Profile.BufferSize), profilez.BackendTee)
	}

	bridge := profilez.NewHookSet()
	rec.HookModules(bridge)
	defer rec.UnhookModules(bridge)

	// Leave a trace file behind if the command bails out mid-session.
	var once sync.Once
	flush := func() {
		once.Do(func() {
			if !rec.IsRecording() {
				return
			}
			if err := writeTrace(rec.Stop(), format, output); err != nil {
				logger.Error("writing trace", zap.Error(err))
			}
		})
	}
	atexit.Register(flush)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	rec.Start(mask)
	runWorkload(ctx, rec, bridge, workers)

	if !upload {
		flush()
		fmt.Fprintf(cmd.OutOrStdout(), "trace written to %s\n", output)
		return nil
	}
	if cfg.Upload.Endpoint == "" {
		flush()
		return errors.New("upload requested but upload.endpoint is not set")
	}

	var (
		data    []byte
		dataErr error
		done    = make(chan struct{})
	)
	rec.End(func(b []byte, err error) {
		data, dataErr = b, err
		close(done)
	})
	<-done
	if dataErr != nil {
		return errors.Trace(dataErr)
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return errors.Annotatef(err, "writing %s", output)
	}

	sender := transport.NewHTTPSender(cfg.Upload.Endpoint, format).WithLogger(logger)
	if err := profilez.SendResult(cmd.Context(), sender, cfg.Upload.Route, data); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "trace written to %s and uploaded to %s\n", output, cfg.Upload.Endpoint)
	return nil
}

func writeTrace(trace *profilez.Trace, format profilez.Format, path string) error {
	data, err := profilez.Encode(trace, format)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(os.WriteFile(path, data, 0o600), "writing %s", path)
}

// runWorkload drives the recorder the way a host would: boundary calls on
// worker threads, network requests that finish on another thread, frame
// markers and flow arrows between a producer and its consumer.
func runWorkload(ctx context.Context, rec *profilez.Recorder, bridge *profilez.HookSet, workers int) {
	var wg sync.WaitGroup
	jobs := make(chan profilez.Cookie, workers)

	for w := 0; w < workers; w++ {
		tid := profilez.ThreadID(w + 1)
		name := fmt.Sprintf("worker-%d", w+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for flow := range jobs {
				rec.EndFlowEvent(tid, flow)
				bridge.Call(profilez.CallInfo{
					Module:     "Network",
					Method:     "fetch",
					Thread:     tid,
					ThreadName: name,
				}, func() {
					cookie := rec.BeginAsyncEvent(profilez.TagNetwork, "request", profilez.Args{"worker": name})
					time.Sleep(time.Millisecond)
					rec.EndAsyncEvent(profilez.TagNetwork, "net", cookie, "request", "network", nil)
				})
			}
		}()
	}

	const mainThread profilez.ThreadID = 0
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			frame++
			rec.ImmediateEvent(mainThread, profilez.TagUI, "vsync", time.Now(), profilez.ScopeProcess)
			rec.BeginEvent(mainThread, time.Now(), profilez.TagUI, "frame", profilez.Args{"frame": frame})
			flow := rec.BeginFlowEvent(mainThread)
			select {
			case jobs <- flow:
			case <-ctx.Done():
			}
			rec.EndEvent(mainThread, "main", time.Now(), profilez.TagUI, "ui", nil)
		}
	}
	close(jobs)
	wg.Wait()
}
