package elevator

import (
	"errors"
	"fmt"
)

// --- Domain Entities & Value Objects ---

// ErrInvalidFloor is returned for a floor outside [1, TopFloor] or equal to the forbidden floor.
// ErrInvalidFloor는 범위를 벗어나거나 금지된 층을 요청했을 때 반환됩니다.
var ErrInvalidFloor = errors.New("invalid floor")

// ErrInvalidRequest is returned for a malformed source/button combination.
// ErrInvalidRequest는 잘못된 호출 출처/버튼 조합에 대해 반환됩니다.
var ErrInvalidRequest = errors.New("invalid request")

// Direction indicates the vertical movement vector.
// Direction은 수직 이동 벡터를 나타냅니다.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
	DirIdle Direction = "idle"
)

// InCar is the Location of a passenger who has boarded.
const InCar = 0

// Config holds immutable configuration parameters.
// Config는 시스템 시작 시 설정되며, 런타임 중에 변경되지 않습니다.
type Config struct {
	ID             string
	TopFloor       int     // 최고 층
	ForbiddenFloor int     // 운행하지 않는 층 (0이면 없음)
	InitialFloor   int     // 초기 층 (0이면 1층)
	MaxCapacity    int     // 최대 탑승 인원
	MaxWeight      float64 // 최대 허용 무게 (승객 + 화물)
}

// validate fails fast on a configuration the dispatcher cannot honour.
func (c *Config) validate() error {
	if c.InitialFloor == 0 {
		c.InitialFloor = 1
	}
	if c.TopFloor < 2 {
		return fmt.Errorf("invalid config: TopFloor (%d) < 2", c.TopFloor)
	}
	if c.ForbiddenFloor != 0 && (c.ForbiddenFloor <= 1 || c.ForbiddenFloor >= c.TopFloor) {
		return fmt.Errorf("invalid config: ForbiddenFloor (%d) must lie strictly between 1 and %d", c.ForbiddenFloor, c.TopFloor)
	}
	if !c.validFloor(c.InitialFloor) {
		return fmt.Errorf("invalid config: InitialFloor (%d): %w", c.InitialFloor, ErrInvalidFloor)
	}
	if c.MaxCapacity < 1 {
		return fmt.Errorf("invalid config: MaxCapacity (%d) < 1", c.MaxCapacity)
	}
	if c.MaxWeight < minPassengerWeight {
		return fmt.Errorf("invalid config: MaxWeight (%.1f) < %d", c.MaxWeight, minPassengerWeight)
	}
	return nil
}

func (c Config) validFloor(f int) bool {
	return f > 0 && f <= c.TopFloor && f != c.ForbiddenFloor
}

func (c Config) checkFloor(f int) error {
	if !c.validFloor(f) {
		if c.ForbiddenFloor != 0 {
			return fmt.Errorf("%w: %d (want 1 <= floor <= %d, excluding %d)", ErrInvalidFloor, f, c.TopFloor, c.ForbiddenFloor)
		}
		return fmt.Errorf("%w: %d (want 1 <= floor <= %d)", ErrInvalidFloor, f, c.TopFloor)
	}
	return nil
}

// Passenger is a rider waiting on a floor or travelling in the car.
// Passenger는 층에서 대기하거나 엘리베이터에 탑승한 승객입니다.
type Passenger struct {
	ID          int     `json:"id"`
	Location    int     `json:"location"` // 층 번호 또는 InCar
	Origin      int     `json:"origin"`
	Destination int     `json:"destination"`
	Weight      float64 `json:"weight"`
	Cargo       float64 `json:"cargo"`
}

// Load is the weight the passenger adds to the car.
func (p Passenger) Load() float64 {
	return p.Weight + p.Cargo
}

// heading reports whether the passenger needs to travel up from floor.
func (p Passenger) heading(floor int) bool {
	return p.Destination > floor
}
