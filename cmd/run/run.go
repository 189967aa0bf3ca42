// Package run provides the run command for modrun.
package run

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.modrun.dev/core/internal/rtlog"
	"go.modrun.dev/core/runtime"
	"go.modrun.dev/core/store"
)

// Cmd is the run cobra command that executes a JavaScript/TypeScript entry
// file against a real OS directory.
var Cmd = &cobra.Command{
	Use:   "run [file...]",
	Short: "Run a JavaScript or TypeScript module",
	Long: `Run a JavaScript or TypeScript module against a real OS directory.

For a single file, runs it once and exits. For multiple files (via
arguments or --glob), runs each in turn. With --watch, reruns the entry
file whenever a file under --dir changes.`,
	Example: `  # Run one entry file
  modrun run src/main.ts

  # Run every matching file once
  modrun run --glob "scripts/**/*.js"

  # Re-run on change
  modrun run src/main.ts --watch

  # Override the exports condition priority
  modrun run src/main.ts --condition production --condition browser`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("dir", "d", ".", "Project root directory")
	Cmd.Flags().String("glob", "", "Glob pattern to match entry files (e.g. \"scripts/**/*.js\")")
	Cmd.Flags().Bool("watch", false, "Re-run the entry file when a watched file changes")
	Cmd.Flags().Int64("cache-ceiling", 0, "Artifact cache total-size ceiling in bytes (default: runtime default)")
	Cmd.Flags().Float64("gc-watermark", 0, "Fraction of the cache ceiling eviction targets down to (default: runtime default)")
	Cmd.Flags().Duration("transpile-timeout", 0, "Per-file transpile timeout (default: runtime default)")
	Cmd.Flags().StringArray("condition", nil, "Export condition priority (can be repeated)")

	_ = viper.BindPFlag("dir", Cmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("glob", Cmd.Flags().Lookup("glob"))
	_ = viper.BindPFlag("watch", Cmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("cache-ceiling", Cmd.Flags().Lookup("cache-ceiling"))
	_ = viper.BindPFlag("gc-watermark", Cmd.Flags().Lookup("gc-watermark"))
	_ = viper.BindPFlag("transpile-timeout", Cmd.Flags().Lookup("transpile-timeout"))
	_ = viper.BindPFlag("condition", Cmd.Flags().Lookup("condition"))

	viper.SetEnvPrefix("MODRUN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	absRoot, err := filepath.Abs(viper.GetString("dir"))
	if err != nil {
		return fmt.Errorf("invalid project directory: %w", err)
	}

	entries, err := collectEntries(absRoot, args)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no files to run: provide file arguments or use --glob")
	}

	adapter := store.NewOSAdapter(absRoot)
	rt := runtime.NewRuntime(adapter, "")
	rt.Logger = rtlog.NewStd(os.Stderr, "modrun")
	applyConfig(rt)

	if viper.GetBool("watch") {
		return watchAndRun(rt, absRoot, entries)
	}

	exitCode := 0
	for _, entry := range entries {
		if err := execOnce(rt, entry); err != nil {
			exitCode = 1
		}
	}
	if exitCode != 0 {
		return fmt.Errorf("one or more entry files exited with an error")
	}
	return nil
}

func applyConfig(rt *runtime.Runtime) {
	if ceiling := viper.GetInt64("cache-ceiling"); ceiling > 0 {
		rt.SetCacheCeiling(ceiling)
	}
	if watermark := viper.GetFloat64("gc-watermark"); watermark > 0 {
		rt.SetGCWatermark(watermark)
	}
	if timeout := viper.GetDuration("transpile-timeout"); timeout > 0 {
		rt.SetTranspileTimeout(timeout)
	}
}

// collectEntries resolves entry file arguments and an optional --glob
// pattern into project-relative app paths, deduplicating by absolute path.
func collectEntries(absRoot string, args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var entries []string

	add := func(absPath string) {
		if _, exists := seen[absPath]; exists {
			return
		}
		seen[absPath] = struct{}{}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil {
			rel = absPath
		}
		entries = append(entries, "/"+filepath.ToSlash(rel))
	}

	for _, arg := range args {
		absPath := arg
		if !filepath.IsAbs(absPath) {
			absPath = filepath.Join(absRoot, arg)
		}
		add(absPath)
	}

	if globPattern := viper.GetString("glob"); globPattern != "" {
		matches, err := doublestar.FilepathGlob(filepath.Join(absRoot, globPattern))
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		for _, match := range matches {
			add(match)
		}
	}

	return entries, nil
}

func execOnce(rt *runtime.Runtime, entry string) error {
	result, err := rt.Execute(runtime.ExecuteOptions{
		FilePath:   entry,
		Conditions: viper.GetStringSlice("condition"),
	})
	if result.Stdout != "" {
		fmt.Fprint(os.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "modrun: %s: %v\n", entry, err)
		return err
	}
	return nil
}

// watchAndRun re-executes entries whenever a file under root changes,
// using an fsnotify.Watcher with a debounce timer rather than polling.
func watchAndRun(rt *runtime.Runtime, root string, entries []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	runAll := func() {
		rt.ClearCache()
		for _, entry := range entries {
			_ = execOnce(rt, entry)
		}
	}
	runAll()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(150*time.Millisecond, runAll)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "modrun: watch error: %v\n", err)
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if info.Name() == "node_modules" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
