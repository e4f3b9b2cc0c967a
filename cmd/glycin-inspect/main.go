// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/valoq/glycin"
	"github.com/valoq/glycin/lib/process"
	"github.com/valoq/glycin/memformat"
	"github.com/valoq/glycin/registry"
	"github.com/valoq/glycin/sandbox"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("GLYCIN_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "info":
		err = infoCmd(args, logger)
	case "dump-frames":
		err = dumpFramesCmd(args, logger)
	case "convert":
		err = convertCmd(args, logger)
	case "list-formats":
		err = listFormatsCmd(args, logger)
	case "validate":
		err = validateCmd(args, logger)
	case "escape-test":
		err = escapeTestCmd(args)
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if code, ok := sandbox.IsExitError(err); ok {
			os.Exit(code)
		}
		process.Fatal(err)
	}
}

func printUsage() {
	fmt.Print(`glycin-inspect - decode, convert, and validate sandboxed image loaders

USAGE
    glycin-inspect <command> [flags] [args...]

COMMANDS
    info          Print the metadata a loader reports for a file
    dump-frames   Decode and describe every frame in a file
    convert       Decode with one loader and re-encode with another editor
    list-formats  List every MIME type with a registered loader or editor
    validate      Check a loader or editor's sandbox launch prerequisites
    escape-test   Run sandbox escape detection tests (run this INSIDE a sandbox)

ENVIRONMENT
    GLYCIN_DATA_DIR  Override the loader/editor config search path
    GLYCIN_DEBUG     Enable debug logging
`)
}

func withCancel() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func infoCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	mime := fs.String("mime", "", "MIME type of the input file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: glycin-inspect info --mime=<type/subtype> <file>")
	}
	if *mime == "" {
		return fmt.Errorf("--mime is required")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	reg := registry.New(logger)
	loader, err := glycin.NewLoader(reg, *mime, data)
	if err != nil {
		return err
	}
	loader.WithPath(fs.Arg(0))

	ctx, cancel := withCancel()
	defer cancel()
	img, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	defer img.Close()

	info := img.Info()
	fmt.Printf("MIME:         %s\n", info.MIME)
	fmt.Printf("Dimensions:   %dx%d\n", info.Width, info.Height)
	fmt.Printf("Orientation:  %d\n", info.Orientation)
	fmt.Printf("Frame count:  %d\n", info.FrameCount)
	if len(info.MetadataKeys) > 0 {
		fmt.Println("Metadata:")
		for _, key := range info.MetadataKeys {
			fmt.Printf("  %s: %s\n", key, info.Metadata[key])
		}
	}
	return nil
}

func dumpFramesCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("dump-frames", flag.ExitOnError)
	mime := fs.String("mime", "", "MIME type of the input file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: glycin-inspect dump-frames --mime=<type/subtype> <file>")
	}
	if *mime == "" {
		return fmt.Errorf("--mime is required")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	reg := registry.New(logger)
	loader, err := glycin.NewLoader(reg, *mime, data)
	if err != nil {
		return err
	}
	loader.WithPath(fs.Arg(0))
	loader.Request().LoopAnimation = false

	ctx, cancel := withCancel()
	defer cancel()
	img, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	defer img.Close()

	for index := 0; ; index++ {
		frame, err := img.NextFrame(ctx)
		if err == glycin.ErrNoMoreFrames {
			break
		}
		if err != nil {
			return err
		}
		fmt.Printf("frame %d: %dx%d stride=%d format=%s delay=%dus\n",
			index, frame.Width(), frame.Height(), frame.Stride(), frame.Format(), frame.DelayMicros())
		frame.Close()
	}
	return nil
}

func convertCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	fromMIME := fs.String("mime", "", "MIME type of the input file (required)")
	toMIME := fs.String("to", "", "MIME type to encode as (required)")
	quality := fs.Uint("quality", 0, "Encode quality, if the editor honors it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: glycin-inspect convert --mime=<type/subtype> --to=<type/subtype> <in> <out>")
	}
	if *fromMIME == "" || *toMIME == "" {
		return fmt.Errorf("--mime and --to are both required")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	reg := registry.New(logger)

	ctx, cancel := withCancel()
	defer cancel()

	loader, err := glycin.NewLoader(reg, *fromMIME, data)
	if err != nil {
		return err
	}
	loader.WithPath(fs.Arg(0))
	loader.Request().AcceptedFormats = memformat.SelectionAll

	img, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	defer img.Close()

	frame, err := img.NextFrame(ctx)
	if err != nil {
		return fmt.Errorf("decode first frame: %w", err)
	}
	defer frame.Close()

	creator, err := glycin.NewCreator(reg, *toMIME)
	if err != nil {
		return err
	}
	if *quality > 0 {
		creator.WithQuality(uint8(*quality))
	}
	defer creator.Close()

	if _, err := creator.AddFrame(ctx, frame.Bytes(), frame.Width(), frame.Height(), frame.Stride(), frame.Format(), frame.DelayMicros()); err != nil {
		return fmt.Errorf("add frame to encoder: %w", err)
	}

	encoded, err := creator.Create(ctx)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer encoded.Close()

	if err := os.WriteFile(fs.Arg(1), encoded.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("converted image", "from", *fromMIME, "to", *toMIME, "bytes", encoded.Size())
	return nil
}

func listFormatsCmd(args []string, logger *slog.Logger) error {
	reg := registry.New(logger)

	fmt.Println("Loaders:")
	for _, mime := range reg.MIMETypes(registry.RoleLoader) {
		fmt.Printf("  %s\n", mime)
	}
	fmt.Println("Editors:")
	for _, mime := range reg.MIMETypes(registry.RoleEditor) {
		fmt.Printf("  %s\n", mime)
	}
	for _, diag := range reg.Diagnostics() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", diag)
	}
	return nil
}

func validateCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	mime := fs.String("mime", "", "MIME type to validate (required)")
	role := fs.String("role", "loader", "Entry role: loader or editor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mime == "" {
		return fmt.Errorf("--mime is required")
	}

	var r registry.Role
	switch *role {
	case "loader":
		r = registry.RoleLoader
	case "editor":
		r = registry.RoleEditor
	default:
		return fmt.Errorf("--role must be loader or editor, got %q", *role)
	}

	reg := registry.New(logger)
	m, err := registry.ParseMIME(*mime)
	if err != nil {
		return err
	}
	entry, ok := reg.Lookup(r, m)
	if !ok {
		return fmt.Errorf("no %s entry registered for %s", *role, m)
	}

	profile, err := sandbox.DefaultProfile()
	if err != nil {
		return err
	}

	validator := sandbox.NewValidator()
	validator.ValidateAll(entry, profile)
	validator.PrintResults(os.Stdout)

	if validator.HasErrors() {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func escapeTestCmd(args []string) error {
	fs := flag.NewFlagSet("escape-test", flag.ExitOnError)
	category := fs.String("category", "", "Run only tests in this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runner := sandbox.NewEscapeTestRunner()
	ctx := context.Background()

	if *category != "" {
		runner.RunCategory(ctx, *category)
	} else {
		runner.RunAll(ctx)
	}

	runner.PrintResults(os.Stdout)
	if runner.HasFailures() {
		return fmt.Errorf("escape tests failed")
	}
	return nil
}
