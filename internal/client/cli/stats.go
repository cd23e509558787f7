package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Stats prints request counts by endpoint and the query cache hit ratio.
func (a *App) Stats(ctx context.Context) error {
	if a.stats == nil {
		fmt.Fprintln(a.out, "Metrics are disabled")
		return nil
	}
	s, err := a.stats()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, s.String())
	fmt.Fprintf(a.out, "cache hit ratio: %.0f%%\n", s.HitRatio()*100)
	for _, k := range slices.Sorted(maps.Keys(s.Requests)) {
		fmt.Fprintf(a.out, "  %-48s %.0f\n", k, s.Requests[k])
	}
	return nil
}
