package gpio

type PinType string

const (
	Power  PinType = "power"
	Ground PinType = "ground"
	GPIO   PinType = "gpio"
)

type Mode string

const (
	Input  Mode = "input"
	Output Mode = "output"
)

func (m Mode) Valid() bool {
	return m == Input || m == Output
}

// PinInfo is a header position.
type PinInfo struct {
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Type   PinType `json:"type"`
}

// Header lists the 20 pin connector, pin 1 first.
var Header = []PinInfo{
	{1, "3.3V", Power},
	{2, "5V", Power},
	{3, "GPIO 2", GPIO},
	{4, "5V", Power},
	{5, "GPIO 3", GPIO},
	{6, "GND", Ground},
	{7, "GPIO 4", GPIO},
	{8, "GPIO 14", GPIO},
	{9, "GND", Ground},
	{10, "GPIO 15", GPIO},
	{11, "GPIO 17", GPIO},
	{12, "GPIO 18", GPIO},
	{13, "GPIO 27", GPIO},
	{14, "GND", Ground},
	{15, "GPIO 22", GPIO},
	{16, "GPIO 23", GPIO},
	{17, "3.3V", Power},
	{18, "GPIO 24", GPIO},
	{19, "GPIO 10", GPIO},
	{20, "GND", Ground},
}

// SimulatedInputs are the pins the input simulator drives. Pin 21 is
// beyond the header and only visible through InputLevel.
var SimulatedInputs = []int{11, 13, 15, 19, 21}

var initialModes = map[int]Mode{
	11: Input,
	13: Input,
	15: Input,
	16: Output,
	18: Output,
}

func lookupPin(n int) (PinInfo, bool) {
	if n < 1 || n > len(Header) {
		return PinInfo{}, false
	}

	return Header[n-1], true
}
