package stats

type NoopStatsProvider struct{}

func (n *NoopStatsProvider) Incr(name string)           {}
func (n *NoopStatsProvider) Decr(name string)           {}
func (n *NoopStatsProvider) RegisterMetric(name string) {}
func (n *NoopStatsProvider) Run()                       {}
