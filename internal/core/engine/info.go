package engine

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yndnr/sidermem-go/pkg/resp"
)

var (
	defaultSections = []string{"server", "clients", "memory", "persistence", "stats", "replication", "cpu", "modules", "cluster", "keyspace"}
	sectionTitle    = cases.Title(language.English)
)

type infoField struct {
	key   string
	value any
}

// INFO [section [section ...]]
func cmdInfo(e *Engine, c *call) (resp.Reply, error) {
	sections := e.infoSections(c.args)
	var lines []string
	for _, s := range sections {
		fields := e.infoSection(s)
		if fields == nil {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "# "+sectionTitle.String(s))
		for _, f := range fields {
			lines = append(lines, fmt.Sprintf("%s:%v", f.key, f.value))
		}
	}
	return resp.BulkLines(lines), nil
}

func (e *Engine) infoSections(args []string) []string {
	if len(args) == 0 {
		return defaultSections
	}
	var out []string
	seen := make(map[string]bool)
	for _, a := range args {
		s := strings.ToLower(a)
		if s == "all" || s == "everything" || s == "default" {
			return defaultSections
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// infoSection returns the fields of one section, or nil for an unknown
// section name.
func (e *Engine) infoSection(name string) []infoField {
	switch name {
	case "server":
		return e.infoServer()
	case "clients":
		return []infoField{
			{"connected_clients", e.sessions.Count()},
			{"blocked_clients", 0},
			{"pubsub_clients", 0},
		}
	case "memory":
		return infoMemory()
	case "persistence":
		return e.infoPersistence()
	case "stats":
		return e.infoStats()
	case "replication":
		return []infoField{
			{"role", e.server.Role},
			{"connected_slaves", 0},
		}
	case "cpu":
		return []infoField{
			{"num_cpu", runtime.NumCPU()},
			{"gomaxprocs", runtime.GOMAXPROCS(0)},
			{"goroutines", runtime.NumGoroutine()},
		}
	case "modules":
		return []infoField{}
	case "cluster":
		return []infoField{{"cluster_enabled", 0}}
	case "keyspace":
		keys := e.store.Size()
		if keys == 0 {
			return []infoField{}
		}
		return []infoField{
			{"db0", fmt.Sprintf("keys=%d,expires=%d,avg_ttl=0", keys, e.store.ExpiresCount())},
		}
	}
	return nil
}

func (e *Engine) infoServer() []infoField {
	uptime := e.Uptime()
	return []infoField{
		{"server_name", e.server.Name},
		{"redis_version", e.server.Version},
		{"redis_mode", e.server.Mode},
		{"os", runtime.GOOS + " " + runtime.GOARCH},
		{"go_version", runtime.Version()},
		{"process_id", os.Getpid()},
		{"run_id", e.runID},
		{"tcp_port", e.server.Port},
		{"uptime_in_seconds", int64(uptime.Seconds())},
		{"uptime_in_days", int64(uptime.Hours() / 24)},
		{"config_file", e.server.ConfigFile},
	}
}

func infoMemory() []infoField {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return []infoField{
		{"used_memory", m.HeapAlloc},
		{"used_memory_human", humanize.IBytes(m.HeapAlloc)},
		{"used_memory_rss", m.Sys},
		{"used_memory_rss_human", humanize.IBytes(m.Sys)},
		{"total_system_memory", m.Sys},
		{"gc_cycles", m.NumGC},
		{"mem_allocator", "go"},
	}
}

func (e *Engine) infoPersistence() []infoField {
	w, ok := e.sink.(persistenceStats)
	if !ok {
		return []infoField{
			{"loading", 0},
			{"aof_enabled", 0},
		}
	}
	status := "ok"
	if w.LastError() != nil {
		status = "err"
	}
	return []infoField{
		{"loading", 0},
		{"aof_enabled", 1},
		{"aof_fsync", string(w.SyncMode())},
		{"aof_current_size", w.WrittenBytes()},
		{"aof_current_size_human", humanize.IBytes(w.WrittenBytes())},
		{"aof_last_fsync_time", w.LastSync()},
		{"aof_last_write_status", status},
	}
}

func (e *Engine) infoStats() []infoField {
	st := e.store.Stats()
	return []infoField{
		{"total_connections_received", e.sessions.Total()},
		{"total_commands_processed", e.processed.Load()},
		{"rejected_connections", e.rejected.Load()},
		{"expired_keys", st.ExpiredKeys},
		{"keyspace_hits", st.Hits},
		{"keyspace_misses", st.Misses},
	}
}
