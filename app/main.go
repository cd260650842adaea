// Package main is an entrypoint for application
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/Semior001/alumni/app/cmd"
	"github.com/Semior001/alumni/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
)

var opts struct {
	Server   cmd.Server   `command:"server" description:"run alumni website server"`
	Snapshot cmd.Snapshot `command:"snapshot" description:"save stories from the source into a bolt file"`
	JSONLogs bool         `long:"json-logs" env:"JSON_LOGS" description:"turn on json logs"`
	Debug    bool         `long:"dbg" env:"DEBUG" description:"turn on debug mode"`
}

var version = "unknown"

func getVersion() string {
	v, ok := debug.ReadBuildInfo()
	if !ok || v.Main.Version == "(devel)" {
		return version
	}
	return v.Main.Version
}

func main() {
	fmt.Printf("alumni, version: %s\n", getVersion())

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLog()

		if err := cmd.Execute(args); err != nil {
			slog.Error("failed to execute command", slog.Any("err", err))
			os.Exit(1)
		}

		return nil
	}

	// after failure command does not return non-zero code
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			slog.Error("failed to parse flags", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func setupLog() {
	handler := &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}

	gin.SetMode(gin.ReleaseMode)

	if opts.Debug {
		handler.Level = slog.LevelDebug
		handler.AddSource = true
		gin.SetMode(gin.DebugMode)
	}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, handler)
	if opts.JSONLogs {
		h = slog.NewJSONHandler(os.Stderr, handler)
	}

	slog.SetDefault(slog.New(&logx.Chain{
		Middleware: []logx.Middleware{logx.RequestID()},
		Handler:    h,
	}))
}
