package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/battlecore/internal/battle"
	"github.com/Garsondee/battlecore/internal/config"
	"github.com/Garsondee/battlecore/internal/logging"
	"github.com/Garsondee/battlecore/internal/scenario"
	"github.com/Garsondee/battlecore/internal/view"
)

func main() {
	var seed int64
	var squad int
	var configPath string
	var logPath string

	flag.Int64Var(&seed, "seed", 42, "battle seed")
	flag.IntVar(&squad, "squad", 4, "units per side")
	flag.StringVar(&configPath, "config", "", "battle config file (json, yaml or toml)")
	flag.StringVar(&logPath, "log", "", "also write the log to this file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		logger = logging.New(cfg.LogLevel, os.Stderr, f)
	}

	start := func(seed int64) (*battle.Game, error) {
		sk, err := scenario.Build(seed, scenario.WithSquadSize(squad))
		if err != nil {
			return nil, err
		}
		opts := cfg.BattleOptions()
		opts.Logger = sk.Logger(logger)
		return sk.Start(battle.Dependencies{Options: opts, AutoPlay: true}), nil
	}
	g, err := start(seed)
	if err != nil {
		log.Fatal(err)
	}

	v := view.New(g, view.WithRestart(seed, start), view.WithLogger(logger))
	w, h := v.WindowSize()
	ebiten.SetWindowTitle("Battlecore")
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
