// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/embano1/whisper-blockifier/internal/config"
	"github.com/embano1/whisper-blockifier/internal/formatting"
	"github.com/embano1/whisper-blockifier/internal/logging"
	"github.com/embano1/whisper-blockifier/internal/poller"
	"github.com/embano1/whisper-blockifier/internal/server"
	"github.com/embano1/whisper-blockifier/internal/telemetry"
	"github.com/embano1/whisper-blockifier/internal/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.New(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)

	// Create a cancellable context that listens for OS interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	injector := setupDI(ctx, cfg, log)

	if flags.Serve {
		return serve(ctx, injector, log)
	}
	return transcribeFile(ctx, injector, flags, log)
}

func serve(ctx context.Context, injector do.Injector, log zerolog.Logger) error {
	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func transcribeFile(ctx context.Context, injector do.Injector, flags *config.Flags, log zerolog.Logger) error {
	p, err := do.Invoke[*poller.Poller](injector)
	if err != nil {
		return fmt.Errorf("build poller: %w", err)
	}

	// Ensure the input file exists.
	fileInfo, err := os.Stat(flags.InputFile)
	if err != nil {
		return fmt.Errorf("stat input file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("input path %q is a directory, not a file", flags.InputFile)
	}
	data, err := os.ReadFile(flags.InputFile)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	log.Info().Str("file", flags.InputFile).Int("bytes", len(data)).Msg("submitting transcription job")
	resp, err := p.Transcribe(ctx, types.Media{Data: data, MimeType: flags.MimeType})
	if err != nil {
		return err
	}

	// Write the transcript to the local output file.
	out := formatting.Render(resp.Blocks, flags.Segments)
	if err := os.WriteFile(flags.OutputFile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	log.Info().Str("id", resp.JobID).Str("file", flags.OutputFile).Msg("transcript saved")
	return nil
}
