package port

type Metrics interface {
	OnlineUsers(n int)
	ActiveCalls(n int)
	SignalRelayed(kind string)
	EventRejected(event, reason string)
}

type NopMetrics struct{}

func (NopMetrics) OnlineUsers(int)              {}
func (NopMetrics) ActiveCalls(int)              {}
func (NopMetrics) SignalRelayed(string)         {}
func (NopMetrics) EventRejected(string, string) {}
