package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	Ticks         Counter
	FetchFailed   Counter
	Opportunities Counter
	OrdersPlaced  Counter
	OrdersFailed  Counter
	ManualTrades  Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Ticks:         n,
		FetchFailed:   n,
		Opportunities: n,
		OrdersPlaced:  n,
		OrdersFailed:  n,
		ManualTrades:  n,
	}
}
