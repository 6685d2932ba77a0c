package ch

import (
	"os"
	"runtime"
	"strings"

	"tulflow/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo describes this process to the server (visible in system.query_log)
func BuildClientInfo(name, role string) clickhouse.ClientInfo {
	if name == "" {
		name = "tulflow"
	}
	host, _ := os.Hostname()
	info := version.Info()

	type kv = struct{ Name, Version string }
	return clickhouse.ClientInfo{Products: []kv{
		{Name: name, Version: strings.TrimSpace(info.Version)},
		{Name: "role", Version: strings.TrimSpace(role)},
		{Name: "go", Version: runtime.Version()},
		{Name: "commit", Version: strings.TrimSpace(info.Commit)},
		{Name: "host", Version: strings.TrimSpace(host)},
	}}
}
