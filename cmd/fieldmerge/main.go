package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hanpama/fieldmerge/internal/config"
	"github.com/hanpama/fieldmerge/internal/introspection"
	"github.com/hanpama/fieldmerge/internal/rpc"
	"github.com/hanpama/fieldmerge/internal/schema"
)

const rootUsage = `fieldmerge: GraphQL field merge validator

USAGE:
  fieldmerge <command> [flags]

COMMANDS:
  validate         Validate query documents against a schema
  serve            Run the HTTP and gRPC validation services
  compile-sdl      Merge & check GraphQL SDL into a single schema
  compile-proto    Print the .proto of the gRPC validation service
  help             Show help for any command
`

const validateUsage = `validate FLAGS [file ...]:
  -config <file>              YAML configuration file
  -schema.root <dir>          GraphQL schema root (default: .)
  -operation <name>           Operation name attached to every request
  -format <text|json>         Output format (default: text)
  -parallel <n>               Files validated concurrently (default: 4)
  -remote <host:port>         Validate through a running gRPC service instead
  -rpc.timeout <duration>     Remote call timeout (default: 3s)
  A file of "-" reads standard input. Exits non-zero when diagnostics are reported.
`

const serveUsage = `serve FLAGS:
  -config <file>              YAML configuration file; flags override its values
  -schema.root <dir>          GraphQL schema root (default: .)
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.timeout <duration>  Per-request timeout (default: 30s)
  -server.max-body <bytes>    Request body limit (default: 1048576)
  -server.cors <origins>      Allowed CORS origins, comma separated. Repeatable
  -server.cache-size <n>      Cached validation results, 0 disables (default: 1024)
  -grpc.addr <addr>           gRPC listen address, empty disables
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: fieldmerge)
  -log.level <level>          debug, info, warn or error (default: info)
  -log.development            Human-readable log output
`

const compileSDLUsage = `compile-sdl FLAGS:
  -schema.root <dir>  GraphQL schema root (default: .)
  -out <file>         Write compiled SDL to file (default: stdout)
  (Schema errors are reported; exits non-zero on errors)
`

const compileProtoUsage = `compile-proto FLAGS:
  -out <file>  Write the .proto to file (default: stdout)
`

// errInvalid reports that validation found diagnostics. They were already printed.
var errInvalid = errors.New("documents have validation errors")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, errInvalid) {
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	e := env{stdin: stdin, stdout: stdout, stderr: stderr}
	global := flag.NewFlagSet("fieldmerge", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "validate":
		return e.cmdValidate(ctx, cmdArgs)
	case "serve":
		return e.cmdServe(ctx, cmdArgs)
	case "compile-sdl":
		return e.cmdCompileSDL(cmdArgs)
	case "compile-proto":
		return e.cmdCompileProto(cmdArgs)
	case "help":
		return e.cmdHelp(cmdArgs)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (e env) cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(e.stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "validate":
		fmt.Fprint(e.stdout, validateUsage)
	case "serve":
		fmt.Fprint(e.stdout, serveUsage)
	case "compile-sdl":
		fmt.Fprint(e.stdout, compileSDLUsage)
	case "compile-proto":
		fmt.Fprint(e.stdout, compileProtoUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// stringListFlag collects comma separated values across repeated flags.
type stringListFlag struct{ values *[]string }

func (s stringListFlag) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s stringListFlag) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s.values = append(*s.values, item)
		}
	}
	return nil
}

// bindConfigFlags binds the dotted configuration flags to cfg.
func bindConfigFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Schema.Root, "schema.root", cfg.Schema.Root, "GraphQL schema root")
	fs.StringVar(&cfg.Server.Addr, "server.addr", cfg.Server.Addr, "HTTP listen address")
	fs.BoolVar(&cfg.Server.Pretty, "server.pretty", cfg.Server.Pretty, "Pretty-print JSON responses")
	fs.DurationVar(&cfg.Server.Timeout, "server.timeout", cfg.Server.Timeout, "Per-request timeout")
	fs.Int64Var(&cfg.Server.MaxBodyBytes, "server.max-body", cfg.Server.MaxBodyBytes, "Request body limit")
	fs.Var(stringListFlag{&cfg.Server.CORSOrigins}, "server.cors", "Allowed CORS origins")
	fs.IntVar(&cfg.Server.CacheSize, "server.cache-size", cfg.Server.CacheSize, "Cached validation results")
	fs.StringVar(&cfg.GRPC.Addr, "grpc.addr", cfg.GRPC.Addr, "gRPC listen address")
	fs.StringVar(&cfg.Otel.Endpoint, "otel.endpoint", cfg.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.Otel.Service, "otel.service", cfg.Otel.Service, "OpenTelemetry service name")
	fs.StringVar(&cfg.Log.Level, "log.level", cfg.Log.Level, "Log level")
	fs.BoolVar(&cfg.Log.Development, "log.development", cfg.Log.Development, "Human-readable log output")
}

// resolveConfig loads path, when set, and applies the flags explicitly set on
// fs over it. Without a file the flag-bound flagCfg is returned as is.
func resolveConfig(fs *flag.FlagSet, path string, flagCfg config.Config) (config.Config, error) {
	if path == "" {
		return flagCfg, flagCfg.Validate()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
	overrides.SetOutput(io.Discard)
	bindConfigFlags(overrides, &cfg)
	// the file's list values are replaced, not extended, by an explicit flag
	listFlags := map[string]*[]string{"server.cors": &cfg.Server.CORSOrigins}
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if overrides.Lookup(f.Name) == nil {
			return
		}
		if list, ok := listFlags[f.Name]; ok {
			*list = nil
		}
		if err := overrides.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
			setErr = err
		}
	})
	if setErr != nil {
		return config.Config{}, setErr
	}
	return cfg, cfg.Validate()
}

// loadSchema builds the schema under root with the introspection fields added.
func loadSchema(root string) (*schema.Schema, error) {
	sch, err := schema.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return introspection.Extend(sch), nil
}

func (e env) cmdCompileSDL(args []string) error {
	rootDir := "."
	outFile := ""
	fs := flag.NewFlagSet("compile-sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "schema.root", rootDir, "GraphQL schema root")
	fs.StringVar(&outFile, "out", outFile, "Write compiled SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(e.stderr, compileSDLUsage)
		return err
	}

	sch, err := schema.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if outFile == "" {
		return schema.WriteSDL(e.stdout, sch)
	}
	return os.WriteFile(outFile, []byte(schema.Render(sch)), 0644)
}

func (e env) cmdCompileProto(args []string) error {
	outFile := ""
	fs := flag.NewFlagSet("compile-proto", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write the .proto to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(e.stderr, compileProtoUsage)
		return err
	}
	if outFile == "" {
		return rpc.WriteProto(e.stdout)
	}
	var buf bytes.Buffer
	if err := rpc.WriteProto(&buf); err != nil {
		return fmt.Errorf("render proto: %w", err)
	}
	return os.WriteFile(outFile, buf.Bytes(), 0644)
}

const shutdownTimeout = 5 * time.Second
