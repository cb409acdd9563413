package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/config"
	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/logger"
	"github.com/williamokano/s3_connector/pkg/node"
	"github.com/williamokano/s3_connector/pkg/transfer"
)

// session is the state shared by every command, built once in Before
type session struct {
	cfg      *config.Config
	svc      *transfer.Service
	tracker  *node.PromptTracker
	registry *node.Registry
}

func newApp() *cli.App {
	rt := &session{}

	return &cli.App{
		Name:  "s3_connector",
		Usage: "Upload and load workflow images to and from S3-compatible storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Path to a .env file with S3_* settings",
				Value:   ".env",
				EnvVars: []string{"S3_CONNECTOR_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: json, console (overrides LOG_FORMAT)",
			},
		},
		Before: rt.setup,
		After:  rt.teardown,
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload local images under {prefix}{folder}/{name}",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Folder below the prefix"},
					&cli.StringFlag{Name: "name", Usage: "Object file name", Required: true},
				},
				Action: func(c *cli.Context) error {
					return rt.upload(c, "S3UploadImage", node.Values{
						"folder_path": c.String("folder"),
						"file_name":   c.String("name"),
					})
				},
			},
			{
				Name:      "upload-path",
				Usage:     "Upload local images under {prefix}{path}",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "Object path below the prefix", Required: true},
				},
				Action: func(c *cli.Context) error {
					return rt.upload(c, "S3UploadImageFullPath", node.Values{
						"full_path": c.String("path"),
					})
				},
			},
			{
				Name:  "load",
				Usage: "Download {prefix}{folder}/{name} to a local PNG",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Folder below the prefix"},
					&cli.StringFlag{Name: "name", Usage: "Object file name", Required: true},
				}, outputFlags()...),
				Action: func(c *cli.Context) error {
					return rt.load(c, "S3LoadImage", node.Values{
						"folder_path": c.String("folder"),
						"file_name":   c.String("name"),
					})
				},
			},
			{
				Name:  "load-path",
				Usage: "Download {prefix}{path} to a local PNG",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "Object path below the prefix", Required: true},
				}, outputFlags()...),
				Action: func(c *cli.Context) error {
					return rt.load(c, "S3LoadImageFullPath", node.Values{
						"full_path": c.String("path"),
					})
				},
			},
			{
				Name:   "job-id",
				Usage:  "Print the current job id",
				Action: rt.jobID,
			},
			{
				Name:   "nodes",
				Usage:  "Print node definitions as JSON",
				Action: rt.nodes,
			},
			{
				Name:   "serve",
				Usage:  "Serve the nodes to a host over JSON lines on stdin/stdout",
				Action: rt.serve,
			},
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "Where to write the image PNG", Required: true},
		&cli.StringFlag{Name: "mask-out", Usage: "Where to write the mask PNG (optional)"},
	}
}

func (rt *session) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}

	level := cfg.GetLogLevel()
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	format := cfg.GetLogFormat()
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	logger.Init(level, format, c.App.ErrWriter)
	log := logger.Get()

	rt.cfg = cfg
	rt.svc = transfer.New(cfg.Resolver(), transfer.FactoryOpener(cfg.StorageBackend()), log.With().Str("component", "transfer").Logger())
	rt.tracker = node.NewPromptTracker()
	rt.registry = node.Default(rt.svc, rt.tracker)

	log.Debug().
		Str("backend", cfg.Backend).
		Str("bucket", cfg.Storage.BucketName).
		Str("prefix", cfg.Storage.Prefix).
		Msg("configuration loaded")

	return nil
}

func (rt *session) teardown(c *cli.Context) error {
	if rt.svc == nil {
		return nil
	}
	return rt.svc.Close()
}

func (rt *session) upload(c *cli.Context, nodeName string, in node.Values) error {
	if err := rt.cfg.Validate(); err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("%w: at least one image file is required", keys.ErrInvalidArgument)
	}

	batch := make(codec.Batch, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		frame, err := readFrame(path)
		if err != nil {
			return err
		}
		batch = append(batch, frame)
	}
	in["images"] = batch

	out, err := rt.registry.Execute(c.Context, nodeName, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "s3_url: %s\npath: %s\n", out["s3_url"], out["path"])
	return nil
}

// readFrame decodes a local image, keeping its alpha channel when it has one
func readFrame(path string) (codec.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return codec.Frame{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	frame, mask, err := codec.Decode(data)
	if err != nil {
		return codec.Frame{}, fmt.Errorf("%s: %w", path, err)
	}

	if mask.HasTransparency() {
		return codec.WithAlpha(frame, mask)
	}
	return frame, nil
}

func (rt *session) load(c *cli.Context, nodeName string, in node.Values) error {
	if err := rt.cfg.Validate(); err != nil {
		return err
	}

	out, err := rt.registry.Execute(c.Context, nodeName, in)
	if err != nil {
		return err
	}

	images, _ := out["image"].(codec.Batch)
	masks, _ := out["mask"].([]codec.MaskPlane)
	if len(images) != 1 || len(masks) != 1 {
		return errors.New("load produced no image")
	}

	data, err := codec.Encode(images[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String("out"), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.String("out"), err)
	}

	if maskOut := c.String("mask-out"); maskOut != "" {
		data, err := codec.EncodeMask(masks[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(maskOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", maskOut, err)
		}
	}

	fmt.Fprintf(c.App.Writer, "%s (%dx%d)\n", c.String("out"), images[0].Width, images[0].Height)
	return nil
}

func (rt *session) jobID(c *cli.Context) error {
	out, err := rt.registry.Execute(c.Context, "GetJobID", nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out["job_id"])
	return nil
}

func (rt *session) nodes(c *cli.Context) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rt.registry.Definitions())
}

func (rt *session) serve(c *cli.Context) error {
	log := logger.Get()

	// Requests still get a configuration error per call
	if err := rt.cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("storage is not configured")
	}

	log.Info().
		Str("backend", rt.cfg.Backend).
		Strs("nodes", rt.registry.Names()).
		Msg("serving nodes on stdin")

	bridge := node.NewBridge(rt.registry, rt.tracker, log.With().Str("component", "bridge").Logger())
	return bridge.Serve(c.Context, c.App.Reader, c.App.Writer)
}
