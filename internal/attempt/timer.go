package attempt

import "time"

// TickInterval is one second of the countdown.
const TickInterval = time.Second

// Ticker is the slice of time.Ticker the countdown uses.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	*time.Ticker
}

func (t realTicker) Chan() <-chan time.Time {
	return t.C
}

func newRealTicker(d time.Duration) Ticker {
	return realTicker{Ticker: time.NewTicker(d)}
}
