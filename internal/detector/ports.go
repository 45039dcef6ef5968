package detector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultPortScanTimeout bounds a single port scan. Socket-table inspection
// runs on every status refresh and must never hang it.
const DefaultPortScanTimeout = 500 * time.Millisecond

// ListeningPorts enumerates TCP ports in LISTEN state owned by pid or its
// immediate children, as a deduplicated sorted union. The scan is bounded by
// ctx; on timeout or any inspection failure the ports collected so far are
// returned along with the error, so callers can degrade to a partial view.
func ListeningPorts(ctx context.Context, pid int) ([]int, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPortScanTimeout)
		defer cancel()
	}

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	seen := make(map[int]struct{})
	collect := func(p *process.Process) error {
		conns, err := p.ConnectionsWithContext(ctx)
		if err != nil {
			return err
		}
		for _, c := range conns {
			if c.Status == "LISTEN" && c.Laddr.Port > 0 {
				seen[int(c.Laddr.Port)] = struct{}{}
			}
		}
		return nil
	}

	// Errors on the main pid end the scan; a child that vanished mid-scan is
	// skipped without failing the rest.
	scanErr := collect(proc)
	if scanErr == nil {
		if children, err := proc.ChildrenWithContext(ctx); err == nil {
			for _, child := range children {
				if ctx.Err() != nil {
					scanErr = ctx.Err()
					break
				}
				_ = collect(child)
			}
		}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	if scanErr != nil {
		return ports, fmt.Errorf("scan ports of pid %d: %w", pid, scanErr)
	}
	return ports, nil
}
