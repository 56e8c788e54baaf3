package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/knightline"
	"github.com/knightline/engine"
	"github.com/knightline/game"
	"golang.org/x/sync/errgroup"
)

var (
	engineA  = flag.String("a", "", "UCI engine binary for agent A; empty uses the built-in search")
	engineB  = flag.String("b", "", "UCI engine binary for agent B; empty uses the built-in search")
	games    = flag.Int("games", 2, "games per arena")
	arenas   = flag.Int("arenas", 1, "arenas played concurrently")
	depth    = flag.Int("depth", 2, "search depth requested from both engines")
	think    = flag.Duration("think", knightline.MinThinkTime, "think time per move")
	maxPlies = flag.Int("plies", 200, "plies before a game is adjudicated as a draw")
	startFEN = flag.String("fen", game.StartFEN, "starting position")
)

func newAgent(name, path string, rules game.Rules) *knightline.Agent {
	if path == "" {
		conf := engine.DefaultLocalConfig()
		conf.PerLevelDelay = 0
		return knightline.NewAgent(name, engine.NewLocal(rules, conf))
	}
	conf := engine.DefaultProcessConfig()
	conf.Path = path
	conf.Logger = log.New(os.Stderr, "["+name+"] ", log.LstdFlags)
	return knightline.NewAgent(name, engine.NewProcess(rules, nil, conf))
}

func main() {
	flag.Parse()

	conf := knightline.DefaultArenaConfig()
	conf.Depth = *depth
	conf.ThinkTime = *think
	conf.MaxPlies = *maxPlies
	conf.StartFEN = *startFEN
	conf.Logger = log.New(os.Stderr, "[arena] ", log.LstdFlags)
	if !conf.IsValid() {
		log.Fatalf("invalid arena configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rules := game.ChessRules(nil)
	all := make([]*knightline.Arena, *arenas)
	for i := range all {
		all[i] = knightline.NewArena(rules, newAgent("A", *engineA, rules), newAgent("B", *engineB, rules), conf)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range all {
		ar := all[i]
		g.Go(func() error {
			if err := ar.Start(); err != nil {
				return err
			}
			defer func() {
				if err := ar.Close(); err != nil {
					log.Printf("error closing arena: %s", err)
				}
			}()
			for j := 0; j < *games; j++ {
				if _, err := ar.Play(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("arena stopped: %s", err)
	}

	var wins, loss, draw float32
	for i, ar := range all {
		log.Printf("arena %d after %d games", i, ar.GameNumber())
		ar.Log(os.Stdout)
		wins += ar.A.Wins
		loss += ar.A.Loss
		draw += ar.A.Draw
	}
	log.Printf("A against B: %v wins, %v losses, %v draws", wins, loss, draw)
}
