package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/knightline"
	"github.com/knightline/engine"
	"github.com/knightline/game"
	"github.com/knightline/search"
)

var (
	configFile = flag.String("config", "", "JSON configuration file")
	enginePath = flag.String("engine", "", "path to a UCI engine binary (overrides the config)")
	modeName   = flag.String("mode", "", "human-human, ai-white, ai-black or ai-ai")
	difficulty = flag.String("difficulty", "", "easy, medium or hard")
	thinkTime  = flag.Duration("think", 0, "engine think time per move")
	trace      = flag.Bool("trace", false, "record the local engine's search tree; print it with the trace command")
	bridge     = flag.Bool("bridge", false, "drive the engine binary through the synchronous UCI binding instead of the process client")
	verbose    = flag.Bool("v", false, "log component activity to stderr")
)

func loadConfig(path string) (knightline.Config, error) {
	conf := knightline.DefaultConfig()
	if path == "" {
		return conf, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return conf, err
	}
	err = json.Unmarshal(data, &conf)
	return conf, err
}

func main() {
	flag.Parse()

	conf, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("error reading config: %s", err)
	}
	if *enginePath != "" {
		conf.Process.Path = *enginePath
	}
	if *modeName != "" {
		if conf.Mode, err = knightline.ParseMode(*modeName); err != nil {
			log.Fatal(err)
		}
	}
	if *difficulty != "" {
		if conf.Difficulty, err = search.ParseDifficulty(*difficulty); err != nil {
			log.Fatal(err)
		}
	}
	if *thinkTime != 0 {
		conf.ThinkTime = *thinkTime
	}
	conf.Local.Search.Trace = *trace
	conf.Process.SkillLevel = func(depth int) (int, bool) {
		level := depth * 4
		if level > 20 {
			level = 20
		}
		return level, true
	}
	if *verbose {
		conf.Logger = log.New(os.Stderr, "[pipeline] ", log.LstdFlags)
		conf.Fallback.Logger = log.New(os.Stderr, "[fallback] ", log.LstdFlags)
		conf.Process.Logger = log.New(os.Stderr, "[uci] ", log.LstdFlags)
		conf.Local.Search.Logger = log.New(os.Stderr, "[search] ", log.LstdFlags)
	}
	if !conf.IsValid() {
		log.Fatalf("invalid configuration")
	}

	rules := game.ChessRules(nil)

	var mu sync.Mutex
	var local *engine.Local
	fb := engine.NewFallback(
		func() (engine.Client, error) {
			if *bridge {
				b := &engine.UCIBridge{Path: conf.Process.Path, Options: conf.Process.Options}
				return engine.NewBridgeClient(b, rules, conf.Process.Logger), nil
			}
			return engine.NewProcess(rules, nil, conf.Process), nil
		},
		func() (engine.Client, error) {
			l := engine.NewLocal(rules, conf.Local)
			mu.Lock()
			local = l
			mu.Unlock()
			return l, nil
		},
		conf.Fallback,
	)
	if err := fb.Start(); err != nil {
		log.Fatalf("error starting engine: %s", err)
	}
	defer func() {
		if err := fb.Shutdown(); err != nil {
			log.Printf("error shutting down engine: %s", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ui := newConsole(os.Stdout)
	p := knightline.NewPipeline(rules, fb, ui, conf)
	if err := p.NewGame(ctx); err != nil {
		log.Fatalf("error starting game: %s", err)
	}
	ui.board(p.Snapshot())

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		switch fields[0] {
		case "quit", "exit":
			return
		case "new":
			err = p.NewGame(ctx)
		case "fen":
			if arg == "" {
				ui.printf("%s\n", p.FEN())
				continue
			}
			err = p.LoadFEN(ctx, arg)
		case "mode":
			var m knightline.Mode
			if m, err = knightline.ParseMode(arg); err == nil {
				err = p.SetMode(ctx, m)
			}
		case "reset":
			var n int
			if n, err = strconv.Atoi(arg); err == nil {
				err = p.ResetToHalfMove(ctx, n)
			}
		case "think":
			var d time.Duration
			if d, err = time.ParseDuration(arg); err == nil {
				p.SetThinkTime(d)
			}
		case "level":
			var d search.Difficulty
			if d, err = search.ParseDifficulty(arg); err == nil {
				p.SetDifficulty(d)
			}
		case "switch":
			v := engine.Primary
			if arg == "secondary" {
				v = engine.Secondary
			}
			err = p.ForceSwitch(v)
		case "status":
			ui.printf("%s\n", fb.Status())
		case "board":
			ui.board(p.Snapshot())
		case "trace":
			mu.Lock()
			l := local
			mu.Unlock()
			if l != nil {
				ui.printf("%s\n", l.LastTrace())
			}
		case "q", "r", "b", "n":
			if !p.ElectPromotion(game.KindFromLetter(fields[0][0])) {
				ui.printf("no promotion pending\n")
			}
		default:
			var m game.Movement
			if m, err = game.DecodeUCI(rules, p.Snapshot(), fields[0]); err != nil {
				break
			}
			// A promotion without a piece blocks until the choice is answered on a later line.
			go func() {
				if err := p.Submit(ctx, m); err != nil {
					ui.printf("%s\n", err)
				}
			}()
		}
		if err != nil {
			ui.printf("%s\n", err)
			err = nil
		}
	}
}
