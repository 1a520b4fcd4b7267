package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soocke/planetrack-go/app"
	"github.com/soocke/planetrack-go/capture"
	"github.com/soocke/planetrack-go/config"
	"github.com/soocke/planetrack-go/debug"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "planetrack:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "config.json", "path to the JSON config file")
		templateDir = flag.String("templates", "", "directory of template images")
		template    = flag.String("template", "", "single template image")
		region      = flag.String("region", "", "template region: x,y,w,h or cx,cy,size")
		framesDir   = flag.String("frames", "", "directory of frames to scan")
		screen      = flag.Bool("screen", false, "track the live screen until interrupted")
		debugFlag   = flag.Bool("debug", false, "debug logging and runtime stats")
		writeConfig = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *writeConfig {
		return cfg.Save(*configPath)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		debug.StartRuntimeLogger(ctx, 5*time.Second, logger.With("component", "debug"))
	}

	c := app.BuildContainer(cfg, logger)
	defer c.Close()

	if err := loadTemplates(c, *templateDir, *template, *region); err != nil {
		return err
	}

	switch {
	case *framesDir != "":
		matched, err := c.ScanDir(ctx, *framesDir, func(r app.ScanResult) {
			reportScan(c, r)
		})
		logger.Info("scan finished", "dir", *framesDir, "matched_frames", matched)
		return err
	case *screen:
		return app.RunLive(ctx, c, func(r app.LiveResult) {
			for _, o := range r.Matched {
				logger.Info("match",
					"sequence", r.Sequence,
					"template", c.TemplateName(o.TemplateID),
					"ratio", o.MatchRatio,
					"inliers", o.Inliers,
					"center", o.Center,
				)
			}
		})
	default:
		flag.Usage()
		return fmt.Errorf("nothing to do: pass -frames or -screen")
	}
}

func loadTemplates(c *app.Container, dir, file, region string) error {
	if file != "" {
		img, err := capture.LoadImage(file)
		if err != nil {
			return err
		}
		name := filepath.Base(file)
		if region != "" {
			rect, err := capture.ParseRegion(region, img.Bounds())
			if err != nil {
				return err
			}
			_, err = c.RegisterRegion(name, file, img, rect)
			return err
		}
		_, err = c.RegisterTemplate(name, file, img)
		return err
	}
	if dir == "" {
		return fmt.Errorf("no templates: pass -templates or -template")
	}
	return c.LoadTemplates(dir)
}

func reportScan(c *app.Container, r app.ScanResult) {
	if r.Err != nil {
		c.Logger.Error("scan", "path", r.Path, "error", r.Err)
	}
	if len(r.Matched) == 0 {
		c.Logger.Info("no match", "path", r.Path, "objects", len(r.Entry.Objects))
		return
	}
	for _, o := range r.Matched {
		c.Logger.Info("match",
			"path", r.Path,
			"template", c.TemplateName(o.TemplateID),
			"ratio", o.MatchRatio,
			"inliers", o.Inliers,
			"center", o.Center,
			"rotation", o.Rotation,
			"reprojection_error", o.ReprojectionError,
		)
	}
}
