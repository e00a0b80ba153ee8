package main

import (
	"math/rand/v2"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/elevator"
)

type stepper struct {
	dispatcher *elevator.Dispatcher
	rng        *rand.Rand
	logger     zerolog.Logger
}

// handleKey applies one key press and reports whether to quit.
func (s *stepper) handleKey(char rune, key keyboard.Key) bool {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC || char == 'q':
		s.logger.Info().Msg("Bye")
		return true

	case key == keyboard.KeySpace || key == keyboard.KeyEnter || char == ' ':
		s.dispatcher.Tick()
		s.printState()

	case char == 'p':
		origin := s.randomFloor()
		destination := s.randomFloor()
		for destination == origin {
			destination = s.randomFloor()
		}
		if _, err := s.dispatcher.AddPassenger(origin, destination, nil, nil); err != nil {
			s.logger.Warn().Err(err).Msg("Passenger rejected")
		}

	case char == 'h':
		floor := s.randomFloor()
		btn := elevator.ButtonUp
		if floor == s.dispatcher.Config.TopFloor || (floor != 1 && s.rng.IntN(2) == 0) {
			btn = elevator.ButtonDown
		}
		if err := s.dispatcher.Request(elevator.FloorSource(floor), btn); err != nil {
			s.logger.Warn().Err(err).Msg("Hall call rejected")
		}

	case char == 'e':
		if err := s.dispatcher.Request(elevator.CarSource(), elevator.PriorityButton(1)); err != nil {
			s.logger.Warn().Err(err).Msg("Recall rejected")
		}

	case char == 's':
		s.printState()
	}
	return false
}

// randomFloor returns a floor the car can serve.
func (s *stepper) randomFloor() int {
	cfg := s.dispatcher.Config
	for {
		f := s.rng.IntN(cfg.TopFloor) + 1
		if f != cfg.ForbiddenFloor {
			return f
		}
	}
}

func (s *stepper) printState() {
	snap := s.dispatcher.Snapshot()
	s.logger.Info().
		Int("floor", snap.Floor).
		Str("direction", string(snap.Direction)).
		Bool("door_open", snap.DoorOpen).
		Ints("up", snap.UpQueue).
		Ints("down", snap.DownQueue).
		Ints("priority", snap.PriorityQueue).
		Int("riders", len(snap.Manifest)).
		Float64("load", snap.Load).
		Msg("State")
}
