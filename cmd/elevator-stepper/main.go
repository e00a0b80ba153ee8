// Command elevator-stepper drives a dispatcher one key press at a time.
//
//	space/enter  tick
//	p            spawn a random passenger
//	h            random hall call
//	e            priority recall to the ground floor
//	s            print the state
//	q/esc        quit
package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/config"
	"elevator-dispatch/pkg/elevator"
	"elevator-dispatch/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log := logger.New(os.Stderr, zerolog.InfoLevel)
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(nil, logger.Level(cfg.Debug))

	d, err := elevator.New(cfg.Elevator(), elevator.WithLogger(log), elevator.WithIDSource(elevator.NewSequence()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dispatcher")
	}

	if err := keyboard.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open keyboard")
	}
	defer keyboard.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go logEvents(ctx, d, log)

	st := &stepper{
		dispatcher: d,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:     log,
	}
	log.Info().Msg("Ready: space to tick, p passenger, h hall call, e recall, s state, q quit")

	for {
		char, key, err := keyboard.GetKey()
		if err != nil {
			log.Error().Err(err).Msg("Keyboard read failed")
			return
		}
		if quit := st.handleKey(char, key); quit {
			return
		}
	}
}

func logEvents(ctx context.Context, d *elevator.Dispatcher, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.Events():
			log.Debug().Str("event", string(ev.Type)).Interface("payload", ev.Payload).Msg("Event")
		}
	}
}
