package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything in the default registry to a Pushgateway under the
// given job name. Batch commands call it once before exiting.
func Push(ctx context.Context, gatewayURL, job string) error {
	return pushFrom(ctx, gatewayURL, job, prometheus.DefaultGatherer)
}

func pushFrom(ctx context.Context, gatewayURL, job string, g prometheus.Gatherer) error {
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
