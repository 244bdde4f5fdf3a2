package xchexp

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultTable 默认表名
const DefaultTable = "xtel_spans"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

func validateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// CreateTableSQL 生成建表语句。ttl 为 0 时不设置过期。
func CreateTableSQL(table string, ttl time.Duration) string {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	timestamp DateTime64(9) CODEC(Delta, ZSTD(1)),
	trace_id String CODEC(ZSTD(1)),
	span_id String CODEC(ZSTD(1)),
	parent_span_id String CODEC(ZSTD(1)),
	trace_state String CODEC(ZSTD(1)),
	span_name LowCardinality(String) CODEC(ZSTD(1)),
	span_kind LowCardinality(String) CODEC(ZSTD(1)),
	service_name LowCardinality(String) CODEC(ZSTD(1)),
	scope_name String CODEC(ZSTD(1)),
	scope_version String CODEC(ZSTD(1)),
	duration Int64 CODEC(ZSTD(1)),
	status_code LowCardinality(String) CODEC(ZSTD(1)),
	status_message String CODEC(ZSTD(1)),
	span_attributes Map(LowCardinality(String), String) CODEC(ZSTD(1)),
	resource_attributes Map(LowCardinality(String), String) CODEC(ZSTD(1)),
	events_timestamp Array(DateTime64(9)) CODEC(ZSTD(1)),
	events_name Array(LowCardinality(String)) CODEC(ZSTD(1)),
	links_trace_id Array(String) CODEC(ZSTD(1)),
	links_span_id Array(String) CODEC(ZSTD(1)),
	INDEX idx_trace_id trace_id TYPE bloom_filter(0.001) GRANULARITY 1
) ENGINE = MergeTree
PARTITION BY toDate(timestamp)
ORDER BY (service_name, span_name, toUnixTimestamp(timestamp), trace_id)`, table)
	if ttl > 0 {
		ddl += fmt.Sprintf("\nTTL toDateTime(timestamp) + toIntervalSecond(%d)", int64(ttl.Seconds()))
	}
	return ddl + "\nSETTINGS index_granularity = 8192, ttl_only_drop_parts = 1"
}
