package tooling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botterverse_tool_calls_total",
	Help: "Tool dispatches by tool name and outcome",
}, []string{"tool", "outcome"})
