package sensor

import "time"

const (
	Temperature = "temperature"
	Humidity    = "humidity"
	Light       = "light"
	Distance    = "distance"
)

// TemperatureSpec keeps a one minute chart window at the default rate.
func TemperatureSpec(interval time.Duration, history int) Spec {
	return Spec{
		Name:     Temperature,
		Unit:     "°C",
		Initial:  25,
		Delta:    Range{Lo: -0.1, Hi: 0.1},
		Bounds:   Bounds{Min: 15, Max: 35},
		Interval: interval,
		History:  history,
	}
}

func HumiditySpec(interval time.Duration) Spec {
	return Spec{
		Name:     Humidity,
		Unit:     "%",
		Initial:  50,
		Delta:    Range{Lo: -0.5, Hi: 0.5},
		Bounds:   Bounds{Min: 30, Max: 70},
		Interval: interval,
	}
}

func LightSpec(interval time.Duration) Spec {
	return Spec{
		Name:     Light,
		Unit:     "lux",
		Initial:  500,
		Delta:    Range{Lo: -10, Hi: 10},
		Bounds:   Bounds{Min: 100, Max: 1000},
		Interval: interval,
	}
}

func DistanceSpec(interval time.Duration) Spec {
	return Spec{
		Name:     Distance,
		Unit:     "cm",
		Initial:  50,
		Delta:    Range{Lo: -2, Hi: 2},
		Bounds:   Bounds{Min: 10, Max: 100},
		Interval: interval,
	}
}
