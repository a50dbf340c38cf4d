package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/input-output-hk/blobperf"
	"github.com/input-output-hk/blobperf/internal/config"
	"github.com/input-output-hk/blobperf/internal/logging"
	"github.com/input-output-hk/blobperf/s3types"
)

// flagKeys maps command line flags onto configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"upload-dir":      "upload.dir",
	"download-dir":    "download.dir",
	"buckets":         "buckets.count",
	"bucket-prefix":   "buckets.prefix",
	"capacity":        "pool.capacity",
	"backend":         "pool.backend",
	"rate-limit":      "pool.rate_limit",
	"block-size":      "transfer.block_size",
	"parallel-blocks": "transfer.parallel_blocks",
	"page-size":       "list.page_size",
	"download":        "run.download",
	"teardown":        "run.teardown",
	"prefix":          "teardown.prefix",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
	"region":          "store.region",
	"endpoint":        "store.endpoint",
	"path-style":      "store.path_style",
}

func main() {
	app := &cli.App{
		Name:  "blobperf",
		Usage: "Measure bulk object storage throughput",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"BLOBPERF_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "connection-string",
				Usage: "Store connection string (default: $storageconnectionstring)",
			},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: text or json"},
			&cli.StringFlag{Name: "log-file", Usage: "Write logs to a rotating file"},
			&cli.StringFlag{Name: "region", Usage: "Override the connection string region"},
			&cli.StringFlag{Name: "endpoint", Usage: "Override the connection string endpoint"},
			&cli.BoolFlag{Name: "path-style", Usage: "Use path-style bucket addressing"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Create buckets, upload a directory, optionally download everything back and tear down",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "upload-dir", Aliases: []string{"u"}, Usage: "Directory whose files are uploaded"},
					&cli.StringFlag{Name: "download-dir", Aliases: []string{"d"}, Usage: "Directory objects are downloaded into"},
					&cli.BoolFlag{Name: "download", Usage: "Download every object after the upload"},
					&cli.BoolFlag{Name: "teardown", Usage: "Delete all buckets at the end of a successful run"},
					&cli.IntFlag{Name: "buckets", Aliases: []string{"n"}, Usage: "Number of buckets to create"},
					&cli.StringFlag{Name: "bucket-prefix", Usage: "Prefix of generated bucket names"},
					&cli.IntFlag{Name: "capacity", Usage: "Maximum concurrent transfers"},
					&cli.StringFlag{Name: "backend", Usage: "Pool backend: semaphore or workers"},
					&cli.Float64Flag{Name: "rate-limit", Usage: "Maximum transfer starts per second, 0 for unlimited"},
					&cli.Int64Flag{Name: "block-size", Usage: "Transfer block size in bytes"},
					&cli.IntFlag{Name: "parallel-blocks", Usage: "Blocks of one object moved at once"},
					&cli.IntFlag{Name: "page-size", Usage: "Object listing page size"},
				},
				Action: runAction,
			},
			{
				Name:  "teardown",
				Usage: "Delete buckets, optionally only those with a prefix",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "Only delete buckets with this name prefix"},
				},
				Action: teardownAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and builds the client.
func setup(c *cli.Context) (*config.Config, *blobperf.Client, io.Closer, error) {
	v, err := config.New(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	applyFlags(c, v)

	cfg, err := config.Decode(v)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Log.Logging())
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	opts := append(cfg.Options(), blobperf.WithLogger(logger))
	if conn := c.String("connection-string"); conn != "" {
		opts = append(opts, blobperf.WithConnectionString(conn))
	}

	client, err := blobperf.New(c.Context, opts...)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}
	return cfg, client, closer, nil
}

func applyFlags(c *cli.Context, v *viper.Viper) {
	for _, name := range c.FlagNames() {
		key, ok := flagKeys[name]
		if !ok || !c.IsSet(name) {
			continue
		}
		v.Set(key, c.Value(name))
	}
	// naming a download directory implies downloading
	if c.IsSet("download-dir") && !c.IsSet("download") {
		v.Set("run.download", true)
	}
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runAction(c *cli.Context) error {
	cfg, client, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	report, err := client.Run(ctx, cfg.Plan())
	printReport(os.Stdout, report)
	return err
}

func teardownAction(c *cli.Context) error {
	_, client, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	deleted, err := client.Teardown(ctx)
	for _, name := range deleted {
		fmt.Fprintf(os.Stdout, "%s %s\n", color.YellowString("deleted"), name)
	}
	return err
}

func printReport(w io.Writer, report *blobperf.RunReport) {
	if report == nil {
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "Buckets created: %d\n", len(report.Buckets))
	printBatch(w, "Upload", report.Upload)
	printBatch(w, "Download", report.Download)
	if len(report.Deleted) > 0 {
		fmt.Fprintf(w, "Buckets deleted: %d\n", len(report.Deleted))
	}
	if report.TeardownSkipped {
		color.New(color.FgYellow).Fprintln(w, "Teardown skipped after failure")
	}
	bold.Fprintf(w, "Total time: %.2fs\n", report.Elapsed.Seconds())
}

func printBatch(w io.Writer, name string, result *s3types.BatchResult) {
	if result == nil {
		return
	}

	failed := len(result.Failed())
	status := color.GreenString("ok")
	if failed > 0 {
		status = color.RedString("%d failed", failed)
	}
	fmt.Fprintf(w, "%s: %d of %d completed (%s) in %.2fs\n",
		name, result.Completed, len(result.Outcomes), status, result.Elapsed.Seconds())
	for _, o := range result.Failed() {
		fmt.Fprintf(w, "  %s %s/%s: %v\n", color.RedString("x"), o.Task.Bucket, o.Task.Key, o.Err)
	}
}
