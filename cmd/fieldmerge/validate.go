package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/fieldmerge/internal/config"
	"github.com/hanpama/fieldmerge/internal/language"
	"github.com/hanpama/fieldmerge/internal/rpc"
	"github.com/hanpama/fieldmerge/internal/server"
	"github.com/hanpama/fieldmerge/internal/validator"
)

type fileResult struct {
	File string `json:"file"`
	server.Result
}

type validateFunc func(ctx context.Context, name string, req validator.Request) (language.ErrorList, error)

func (e env) cmdValidate(ctx context.Context, args []string) error {
	configPath := ""
	operation := ""
	format := "text"
	parallel := 4
	remote := ""
	rpcTimeout := 3 * time.Second
	flagCfg := config.Default()

	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML configuration file")
	fs.StringVar(&flagCfg.Schema.Root, "schema.root", flagCfg.Schema.Root, "GraphQL schema root")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	fs.StringVar(&format, "format", format, "Output format")
	fs.IntVar(&parallel, "parallel", parallel, "Files validated concurrently")
	fs.StringVar(&remote, "remote", remote, "gRPC validation service address")
	fs.DurationVar(&rpcTimeout, "rpc.timeout", rpcTimeout, "Remote call timeout")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(e.stderr, validateUsage)
		return err
	}
	if format != "text" && format != "json" {
		fmt.Fprint(e.stderr, validateUsage)
		return fmt.Errorf("unknown format %q", format)
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprint(e.stderr, validateUsage)
		return fmt.Errorf("no query files given")
	}
	if parallel < 1 {
		parallel = 1
	}

	var validate validateFunc
	if remote != "" {
		client, err := rpc.NewClient(remote, rpc.WithRPCTimeout(rpcTimeout))
		if err != nil {
			return err
		}
		defer client.Close()
		validate = func(ctx context.Context, _ string, req validator.Request) (language.ErrorList, error) {
			return client.Validate(ctx, req)
		}
	} else {
		cfg, err := resolveConfig(fs, configPath, flagCfg)
		if err != nil {
			return err
		}
		sch, err := loadSchema(cfg.Schema.Root)
		if err != nil {
			return err
		}
		validate = func(ctx context.Context, name string, req validator.Request) (language.ErrorList, error) {
			req.Source = name
			return validator.ValidateRequest(ctx, sch, req).Errors, nil
		}
	}

	sources, err := e.readQueries(files)
	if err != nil {
		return err
	}
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, name := range files {
		g.Go(func() error {
			errs, err := validate(gctx, name, validator.Request{Query: sources[i], OperationName: operation})
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = fileResult{File: name, Result: server.NewResult(errs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeResults(e.stdout, format, results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Valid {
			return errInvalid
		}
	}
	return nil
}

func (e env) readQueries(files []string) ([]string, error) {
	sources := make([]string, len(files))
	for i, name := range files {
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(e.stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("read query: %w", err)
		}
		sources[i] = string(data)
	}
	return sources, nil
}

func writeResults(w io.Writer, format string, results []fileResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		for _, d := range r.Errors {
			line, column := 0, 0
			if len(d.Locations) > 0 {
				line, column = d.Locations[0].Line, d.Locations[0].Column
			}
			if _, err := fmt.Fprintf(w, "%s:%d:%d: %s\n", r.File, line, column, d.Message); err != nil {
				return err
			}
		}
	}
	return nil
}
