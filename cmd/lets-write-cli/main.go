// Package main 命令行生成工具，向生成后端提交一次提示词并输出文本
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/application/write"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/persistence/memory"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	defaultEndpoint = "http://localhost:5000/api/generate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	endpoint := os.Getenv("GENERATION_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	fs := pflag.NewFlagSet("lets-write-cli", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&endpoint, "endpoint", "e", endpoint, "generation endpoint URL")
	length := fs.IntP("length", "l", entity.DefaultLengthLimits.Default,
		fmt.Sprintf("desired length (%d-%d)", entity.DefaultLengthLimits.Min, entity.DefaultLengthLimits.Max))
	timeout := fs.DurationP("timeout", "t", 60*time.Second, "request timeout")
	out := fs.StringP("out", "o", "", "write the generated text to this file instead of stdout")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: lets-write-cli [flags] [prompt...]")
		fmt.Fprintln(stderr, "Reads the prompt from stdin when no prompt arguments are given.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger.Init(logger.Options{Level: level, Format: "text", Output: "stderr"})

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read prompt: %v\n", err)
			return exitFailure
		}
		prompt = strings.TrimRight(string(raw), "\r\n")
	}

	if _, err := entity.NewGenerationRequest(prompt, *length, entity.DefaultLengthLimits); err != nil {
		fmt.Fprintf(stderr, "invalid input: %v\n", err)
		return exitUsage
	}

	gen := generation.NewClient(&config.GenerationConfig{Endpoint: endpoint, Timeout: *timeout})
	svc := write.NewService(gen, memory.NewSessionStore(time.Hour), memory.NewInFlightGuard(), write.Options{})

	text, err := svc.Generate(ctx, uuid.NewString(), prompt, *length)
	if err != nil {
		appErr := errors.AsAppError(err)
		msg := appErr.Detail
		if msg == "" {
			msg = appErr.Message
		}
		fmt.Fprintln(stderr, msg)
		return exitFailure
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
			fmt.Fprintf(stderr, "failed to write %s: %v\n", *out, err)
			return exitFailure
		}
		fmt.Fprintf(stderr, "wrote %d characters to %s\n", len([]rune(text)), *out)
		return exitOK
	}

	fmt.Fprintln(stdout, text)
	return exitOK
}
