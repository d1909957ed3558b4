package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"picture-same/internal/batch"
	"picture-same/internal/env"
	"picture-same/internal/evaluator"
	"picture-same/internal/imageio"
	"picture-same/internal/storage"
	"picture-same/internal/telemetry"

	"golang.org/x/xerrors"
)

const (
	defaultBaseline = "lightSphereSpot.png"
	defaultTarget   = "lightSpherePoint.png"
)

type Output struct {
	Classification evaluator.Classification `json:"classification"`
	Reason         evaluator.Reason         `json:"reason"`
	Message        string                   `json:"message"`
	DiffAmount     float64                  `json:"diffAmount"`
	DiffPath       string                   `json:"diffPath,omitempty"`
}

type options struct {
	output   string
	format   string
	baseline string
	target   string
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var o options
	flag.StringVar(&o.output, "output", env.OrDefault("OUTPUT", "ed.jpg"), "Where to store the difference image when the pictures differ (file path or s3://bucket/key)")
	flag.StringVar(&o.format, "format", env.OrDefault("FORMAT", "text"), "Output format (text or json)")
	debug := flag.Bool("debug", env.OrDefault("DEBUG", false), "Log in text instead of JSON")
	flag.Parse()

	o.baseline, o.target = defaultBaseline, defaultTarget
	switch args := flag.Args(); len(args) {
	case 0:
	case 2:
		o.baseline, o.target = args[0], args[1]
	default:
		log.Fatalf("usage: same [flags] [<baseline> <target>]")
	}

	logger, err := telemetry.NewLogger(os.Stderr, *debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(context.Background(), o, os.Stdout); err != nil {
		logger.Error("comparison failed", "baseline", o.baseline, "target", o.target, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	if o.format != "text" && o.format != "json" {
		return xerrors.Errorf("unknown output format: %s", o.format)
	}

	baseline, target, err := batch.LoadPair(ctx, storage.Read, o.baseline, o.target)
	if err != nil {
		return err
	}

	result, err := evaluator.New().Evaluate(ctx, baseline, target)
	if err != nil {
		return err
	}

	output := Output{
		Classification: result.Classification,
		Reason:         result.Reason,
		DiffAmount:     result.DiffAmount,
		Message:        result.Message(o.output),
	}

	if result.Classification == evaluator.Different {
		data, err := imageio.EncodeBytes(result.Diff, o.output)
		if err != nil {
			return err
		}

		s, key, err := storage.Open(ctx, o.output)
		if err != nil {
			return err
		}
		output.DiffPath, err = s.Put(ctx, key, data)
		if err != nil {
			return xerrors.Errorf("failed to save difference image: %w", err)
		}
	}

	if o.format == "json" {
		return json.NewEncoder(stdout).Encode(output)
	}
	_, err = fmt.Fprintln(stdout, output.Message)
	return err
}
