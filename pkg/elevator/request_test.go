package elevator

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSource_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{`"car"`, CarSource(), false},
		{`7`, FloorSource(7), false},
		{`"elevator"`, Source{}, true},
		{`"7"`, Source{}, true},
		{`[7]`, Source{}, true},
		{`7.5`, Source{}, true},
	}
	for _, tc := range tests {
		var got Source
		err := json.Unmarshal([]byte(tc.in), &got)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("%s: expected ErrInvalidRequest, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: got %+v, %v; want %+v", tc.in, got, err, tc.want)
		}
	}
}

func TestButton_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Button
		wantErr bool
	}{
		{`"up"`, ButtonUp, false},
		{`"down"`, ButtonDown, false},
		{`9`, DestinationButton(9), false},
		{`["close", 4]`, PriorityButton(4), false},
		{`[4, "close"]`, PriorityButton(4), false},
		{`"sideways"`, Button{}, true},
		{`["close"]`, Button{}, true},
		{`[4]`, Button{}, true},
		{`["close", "close", 4]`, Button{}, true},
		{`["close", 4, 5]`, Button{}, true},
		{`["open", 4]`, Button{}, true},
		{`["close", [4]]`, Button{}, true},
		{`{"floor": 4}`, Button{}, true},
	}
	for _, tc := range tests {
		var got Button
		err := json.Unmarshal([]byte(tc.in), &got)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("%s: expected ErrInvalidRequest, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: got %+v, %v; want %+v", tc.in, got, err, tc.want)
		}
	}
}

func TestButton_MarshalRoundTrip(t *testing.T) {
	for _, b := range []Button{ButtonUp, ButtonDown, DestinationButton(3), PriorityButton(11)} {
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		var got Button
		if err := json.Unmarshal(data, &got); err != nil || got != b {
			t.Errorf("%s: round trip gave %+v, %v", data, got, err)
		}
	}
}

func TestParseSourceAndButton(t *testing.T) {
	src, err := ParseSource("car")
	if err != nil || !src.Car {
		t.Errorf("ParseSource(car) = %+v, %v", src, err)
	}
	src, err = ParseSource(" 12 ")
	if err != nil || src != FloorSource(12) {
		t.Errorf("ParseSource(12) = %+v, %v", src, err)
	}
	if _, err := ParseSource("lobby"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ParseSource(lobby): expected ErrInvalidRequest, got %v", err)
	}

	cases := map[string]Button{
		"up":       ButtonUp,
		"down":     ButtonDown,
		"8":        DestinationButton(8),
		"close:15": PriorityButton(15),
	}
	for in, want := range cases {
		got, err := ParseButton(in)
		if err != nil || got != want {
			t.Errorf("ParseButton(%q) = %+v, %v; want %+v", in, got, err, want)
		}
		if got.String() != in {
			t.Errorf("Button(%q).String() = %q", in, got.String())
		}
	}
	for _, in := range []string{"close:", "close:x", "left", ""} {
		if _, err := ParseButton(in); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ParseButton(%q): expected ErrInvalidRequest, got %v", in, err)
		}
	}
}
