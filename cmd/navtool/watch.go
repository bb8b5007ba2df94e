package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorustyt/navcore/common/logger"
	"github.com/spf13/cobra"
)

const rebuildDelay = 300 * time.Millisecond

func WatchCmd() *cobra.Command {
	var objFile, configFile, outFile string
	var tiled bool
	c := &cobra.Command{
		Use:   "watch",
		Short: "rebuild the navmesh whenever the scene or settings change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, objFile, configFile, outFile, tiled)
		},
	}
	c.Flags().StringVar(&objFile, "obj", "", "input OBJ scene")
	c.Flags().StringVar(&configFile, "config", "", "TOML build settings")
	c.Flags().StringVar(&outFile, "out", "scene.nav", "output navmesh file")
	c.Flags().BoolVar(&tiled, "tiled", false, "build a tiled navmesh with a tile cache")
	_ = c.MarkFlagRequired("obj")
	return c
}

func rebuild(objFile, configFile, outFile string, tiled bool) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		logger.LogError("config: %v", err)
		return
	}
	start := time.Now()
	if err := buildAndSave(objFile, outFile, cfg, tiled); err != nil {
		logger.LogError("%v", err)
		return
	}
	logger.LogInfo("rebuilt %s in %v", outFile, time.Since(start).Round(time.Millisecond))
}

// watch observes the parent directories so that editors which replace files
// by rename keep triggering rebuilds.
func watch(ctx context.Context, objFile, configFile, outFile string, tiled bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	targets := map[string]bool{}
	for _, p := range []string{objFile, configFile} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}

	rebuild(objFile, configFile, outFile, tiled)

	timer := time.NewTimer(rebuildDelay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(e.Name)
			if !targets[abs] || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logger.LogDebug("changed %s (%s)", e.Name, e.Op)
			timer.Reset(rebuildDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.LogWarn("watch: %v", err)
		case <-timer.C:
			rebuild(objFile, configFile, outFile, tiled)
		}
	}
}
