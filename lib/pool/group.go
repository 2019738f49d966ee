package pool

import "fmt"

// hostKey identifies one (host, port) endpoint. Keying the groups map by a
// value type avoids formatting a "host:port" string on every Acquire.
type hostKey struct {
	host string
	port uint16
}

func (k hostKey) String() string {
	return fmt.Sprintf("%s:%d", k.host, k.port)
}

// hostGroup owns the insertion-ordered set of records for one endpoint.
// Lookups are linear scans: group size is bounded by MaxPerHost, so a scan
// is cheaper and simpler than an auxiliary index.
type hostGroup struct {
	key     hostKey
	records []*ConnectionRecord
}

// firstIdle returns the first idle record in insertion order, or nil.
// First-fit, not least-recently-used.
func (g *hostGroup) firstIdle() *ConnectionRecord {
	for _, r := range g.records {
		if r.State() == StateIdle {
			return r
		}
	}
	return nil
}

// activeCount returns the number of non-closed records.
func (g *hostGroup) activeCount() int {
	n := 0
	for _, r := range g.records {
		if r.State() != StateClosed {
			n++
		}
	}
	return n
}

// closeExpired closes every idle record whose last use is older than
// cutoffMs and returns the number closed. In-use records are never touched
// regardless of age.
func (g *hostGroup) closeExpired(cutoffMs int64) int {
	n := 0
	for _, r := range g.records {
		if r.State() == StateIdle && r.lastUsedMs() < cutoffMs {
			r.setState(StateClosed)
			n++
		}
	}
	return n
}

// compact drops closed records from storage. Closed records stay closed
// forever, so pruning them only reclaims memory; handles held by callers
// remain valid.
func (g *hostGroup) compact() {
	kept := g.records[:0]
	for _, r := range g.records {
		if r.State() != StateClosed {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(g.records); i++ {
		g.records[i] = nil
	}
	g.records = kept
}

func (g *hostGroup) empty() bool {
	return len(g.records) == 0
}
