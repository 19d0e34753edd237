package main

import (
	"embed"
	"flag"
	"os"

	"github.com/chazu/facet/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configPath := flag.String("config", "", "JSON5 configuration file")
	script := flag.String("script", "", "run a faceting script without opening a window")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal().Err(err).Msg("loading config")
		}
	}
	for _, f := range cfg.Validate() {
		log.Warn().Str("field", f.Field).Msg(f.Message)
	}
	zerolog.SetGlobalLevel(logLevel(cfg.Log, log.Logger))

	app, err := NewApp(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("creating simulator")
	}

	if *script != "" {
		os.Exit(runHeadless(app, *script))
	}

	err = wails.Run(&options.App{
		Title:     "Facet",
		Width:     1280,
		Height:    800,
		OnStartup: app.startup,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Bind: []interface{}{app},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("wails")
	}
}

// runHeadless applies a script file to the configured stone and logs the
// outcome of every cut. It returns the process exit code.
func runHeadless(app *App, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Msg("reading script")
		return 1
	}
	res := app.RunScript(string(src))
	for i, c := range res.Cuts {
		ev := log.Info().Int("cut", i+1).Bool("changed", c.Changed).Int("faces", c.Faces)
		if c.Reason != "" {
			ev = ev.Str("reason", c.Reason)
		}
		ev.Float64("removed", c.RemovedVolume).Msg("facet")
	}
	for _, e := range res.Errors {
		log.Error().Int("line", e.Line).Msg(e.Message)
	}
	log.Info().
		Int("cuts", res.State.Cuts).
		Int("faces", res.State.Faces).
		Float64("volume", res.State.Volume).
		Msg("done")
	if len(res.Errors) > 0 {
		return 1
	}
	return 0
}

// logLevel resolves the configured level, falling back to info with a
// warning when it does not parse.
func logLevel(c config.Log, logger zerolog.Logger) zerolog.Level {
	level, err := c.ZerologLevel()
	if err != nil {
		logger.Warn().Err(err).Str("configured", c.Level).Msg("unknown log level, using info")
		return zerolog.InfoLevel
	}
	return level
}
