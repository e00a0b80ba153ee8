package elevator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	carSentinel   = "car"
	closeSentinel = "close"
)

// Source identifies where a request was made: a hall panel on a floor or the car panel.
// Source는 호출이 발생한 위치(층의 호출 버튼 또는 엘리베이터 내부 패널)를 나타냅니다.
type Source struct {
	Car   bool
	Floor int
}

// CarSource is the car panel.
func CarSource() Source { return Source{Car: true} }

// FloorSource is the hall panel on floor f.
func FloorSource(f int) Source { return Source{Floor: f} }

func (s Source) String() string {
	if s.Car {
		return carSentinel
	}
	return strconv.Itoa(s.Floor)
}

// UnmarshalJSON accepts a floor number or the string "car".
func (s *Source) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: source: %v", ErrInvalidRequest, err)
		}
		if str != carSentinel {
			return fmt.Errorf("%w: source %q is neither a floor nor %q", ErrInvalidRequest, str, carSentinel)
		}
		*s = CarSource()
		return nil
	}
	var f int
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: source must be a floor number or %q", ErrInvalidRequest, carSentinel)
	}
	*s = FloorSource(f)
	return nil
}

// MarshalJSON writes the same shapes UnmarshalJSON reads.
func (s Source) MarshalJSON() ([]byte, error) {
	if s.Car {
		return json.Marshal(carSentinel)
	}
	return json.Marshal(s.Floor)
}

// Button is the pressed button: a hall direction, a car destination, or a priority override.
// Button은 눌린 버튼입니다: 방향 버튼, 목적지 층, 또는 우선 호출.
type Button struct {
	Dir      Direction // 호출 방향 (홀 호출)
	Floor    int       // 목적지 층 (카 호출) 또는 우선 호출 대상 층
	Priority bool      // close/override 표시
}

// ButtonUp and ButtonDown are the hall call buttons.
var (
	ButtonUp   = Button{Dir: DirUp}
	ButtonDown = Button{Dir: DirDown}
)

// DestinationButton is a car panel floor button.
func DestinationButton(f int) Button { return Button{Floor: f} }

// PriorityButton is an override that sends the car to f before anything else.
func PriorityButton(f int) Button { return Button{Floor: f, Priority: true} }

func (b Button) String() string {
	switch {
	case b.Priority:
		return closeSentinel + ":" + strconv.Itoa(b.Floor)
	case b.Dir != "":
		return string(b.Dir)
	default:
		return strconv.Itoa(b.Floor)
	}
}

// UnmarshalJSON accepts "up", "down", a floor number, or a pair holding
// exactly one "close" marker and one floor number.
func (b *Button) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty button", ErrInvalidRequest)
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: button: %v", ErrInvalidRequest, err)
		}
		switch Direction(str) {
		case DirUp, DirDown:
			*b = Button{Dir: Direction(str)}
			return nil
		}
		return fmt.Errorf("%w: button %q is not %q or %q", ErrInvalidRequest, str, DirUp, DirDown)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("%w: button: %v", ErrInvalidRequest, err)
		}
		return b.unmarshalPriority(items)
	default:
		var f int
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: button must be a direction, a floor or a priority pair", ErrInvalidRequest)
		}
		*b = DestinationButton(f)
		return nil
	}
}

func (b *Button) unmarshalPriority(items []json.RawMessage) error {
	var (
		marker bool
		floor  int
		found  bool
	)
	for _, raw := range items {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			if str != closeSentinel || marker {
				return fmt.Errorf("%w: priority button needs exactly one %q marker", ErrInvalidRequest, closeSentinel)
			}
			marker = true
			continue
		}
		var f int
		if err := json.Unmarshal(raw, &f); err != nil || found {
			return fmt.Errorf("%w: priority button needs exactly one floor", ErrInvalidRequest)
		}
		floor, found = f, true
	}
	if !marker || !found {
		return fmt.Errorf("%w: priority button needs a %q marker and a floor", ErrInvalidRequest, closeSentinel)
	}
	*b = PriorityButton(floor)
	return nil
}

// MarshalJSON writes the same shapes UnmarshalJSON reads.
func (b Button) MarshalJSON() ([]byte, error) {
	switch {
	case b.Priority:
		return json.Marshal([]any{closeSentinel, b.Floor})
	case b.Dir != "":
		return json.Marshal(string(b.Dir))
	default:
		return json.Marshal(b.Floor)
	}
}

// ParseSource reads "car" or a floor number.
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == carSentinel {
		return CarSource(), nil
	}
	f, err := strconv.Atoi(s)
	if err != nil {
		return Source{}, fmt.Errorf("%w: source %q", ErrInvalidRequest, s)
	}
	return FloorSource(f), nil
}

// ParseButton reads "up", "down", a floor number, or "close:<floor>".
func ParseButton(s string) (Button, error) {
	s = strings.TrimSpace(s)
	switch Direction(s) {
	case DirUp, DirDown:
		return Button{Dir: Direction(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, closeSentinel+":"); ok {
		f, err := strconv.Atoi(rest)
		if err != nil {
			return Button{}, fmt.Errorf("%w: priority button %q", ErrInvalidRequest, s)
		}
		return PriorityButton(f), nil
	}
	f, err := strconv.Atoi(s)
	if err != nil {
		return Button{}, fmt.Errorf("%w: button %q", ErrInvalidRequest, s)
	}
	return DestinationButton(f), nil
}

// resolve validates a source/button pair and returns the floor it asks for.
func (c Config) resolve(src Source, btn Button) (target int, priority bool, err error) {
	if src.Car && src.Floor != 0 {
		return 0, false, fmt.Errorf("%w: source is both car and floor %d", ErrInvalidRequest, src.Floor)
	}
	if !src.Car {
		if err := c.checkFloor(src.Floor); err != nil {
			return 0, false, err
		}
	}

	switch {
	case btn.Priority:
		if btn.Dir != "" {
			return 0, false, fmt.Errorf("%w: priority button carries a direction", ErrInvalidRequest)
		}
		if err := c.checkFloor(btn.Floor); err != nil {
			return 0, false, err
		}
		return btn.Floor, true, nil

	case src.Car:
		if btn.Dir != "" {
			return 0, false, fmt.Errorf("%w: car panel has no %q button", ErrInvalidRequest, btn.Dir)
		}
		if err := c.checkFloor(btn.Floor); err != nil {
			return 0, false, err
		}
		return btn.Floor, false, nil

	default:
		if btn.Floor != 0 {
			return 0, false, fmt.Errorf("%w: hall panel on floor %d has no floor buttons", ErrInvalidRequest, src.Floor)
		}
		switch {
		case btn.Dir == DirUp && src.Floor == c.TopFloor:
			return 0, false, fmt.Errorf("%w: no up button on the top floor", ErrInvalidRequest)
		case btn.Dir == DirDown && src.Floor == 1:
			return 0, false, fmt.Errorf("%w: no down button on the ground floor", ErrInvalidRequest)
		case btn.Dir != DirUp && btn.Dir != DirDown:
			return 0, false, fmt.Errorf("%w: hall button %q", ErrInvalidRequest, btn.Dir)
		}
		return src.Floor, false, nil
	}
}
