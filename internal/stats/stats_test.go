package stats

import (
	"expvar"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsUpdater(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric("TestMetric")
	su.Run()
	defer su.Stop()

	// an update for a metric nobody registered is dropped, not fatal;
	// it is queued first, so the updates below only land if the updater
	// survives it
	su.Incr("NotRegistered")

	su.Incr("TestMetric")
	su.Incr("TestMetric")
	su.Decr("TestMetric")

	assert.Eventually(t, func() bool {
		v, ok := su.vars.Get("TestMetric").(*expvar.Int)
		return ok && v.Value() == 1
	}, time.Second, 10*time.Millisecond)
}
