// Package status renders an on-demand summary of a scope's tracked
// processes. The projection is a pure function of the current store, prober,
// and log state; it holds nothing between calls.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/bgrun/internal/manager"
)

// DefaultExcerptLines is how much trailing log each entry shows.
const DefaultExcerptLines = 5

// ProcessSummary is one process's line in the projection.
type ProcessSummary struct {
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Running    bool      `json:"running"`
	Ports      []int     `json:"ports,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	LogExcerpt string    `json:"log_excerpt,omitempty"`
}

// Summary is the full projection for one scope.
type Summary struct {
	Scope       string           `json:"scope"`
	GeneratedAt time.Time        `json:"generated_at"`
	Processes   []ProcessSummary `json:"processes"`
}

// Projector recomputes summaries from a Manager.
type Projector struct {
	mgr          *manager.Manager
	excerptLines int
}

func NewProjector(mgr *manager.Manager) *Projector {
	return &Projector{mgr: mgr, excerptLines: DefaultExcerptLines}
}

// SetExcerptLines adjusts the per-process log excerpt length.
func (p *Projector) SetExcerptLines(n int) {
	if n > 0 {
		p.excerptLines = n
	}
}

// Summary builds the projection for scope. Failures are isolated per
// process: an unreadable log or failed probe empties that entry's detail
// without aborting the rest, and errors never reach the rendered output.
func (p *Projector) Summary(ctx context.Context, scope string) (Summary, error) {
	statuses, err := p.mgr.List(ctx, scope)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Scope:       scope,
		GeneratedAt: time.Now().UTC(),
		Processes:   make([]ProcessSummary, 0, len(statuses)),
	}
	for _, st := range statuses {
		ps := ProcessSummary{
			Name:      st.Name,
			PID:       st.PID,
			Running:   st.Running,
			Ports:     st.Ports,
			StartedAt: st.StartedAt,
		}
		if excerpt, err := p.mgr.Logs(ctx, st.Name, scope, p.excerptLines); err == nil {
			ps.LogExcerpt = excerpt
		}
		s.Processes = append(s.Processes, ps)
	}
	return s, nil
}

// Render produces the human-readable status block.
func (s Summary) Render() string {
	if len(s.Processes) == 0 {
		return "no tracked processes\n"
	}
	var b strings.Builder
	for _, p := range s.Processes {
		state := "stopped"
		if p.Running {
			state = "running"
		}
		fmt.Fprintf(&b, "%s  [%s]  pid %d", p.Name, state, p.PID)
		if len(p.Ports) > 0 {
			ports := make([]string, len(p.Ports))
			for i, port := range p.Ports {
				ports[i] = fmt.Sprintf("%d", port)
			}
			fmt.Fprintf(&b, "  ports %s", strings.Join(ports, ","))
		}
		b.WriteString("\n")
		if p.LogExcerpt != "" {
			for _, line := range strings.Split(strings.TrimSuffix(p.LogExcerpt, "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return b.String()
}
