package chain

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/imbuefx/enrichments/internal/chain"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
