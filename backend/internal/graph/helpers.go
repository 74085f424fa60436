package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/samber/lo"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	return stringify(val)
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if i, ok := val.(int); ok {
		return i
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if v != nil {
				result = append(result, stringify(v))
			}
		}
		return result
	}
	return []string{}
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	return stringify(val)
}

func getIntFromMap(m map[string]interface{}, key string, defaultValue int) int {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	return defaultValue
}

func getTimeFromMap(m map[string]interface{}, key string) time.Time {
	val, ok := m[key]
	if !ok || val == nil {
		return time.Time{}
	}
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case neo4j.LocalDateTime:
		return t.Time().UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// stringify renders a scalar property; Document.index may be stored as an integer or a string.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat64s returns nil for an empty vector so no property is written.
func toFloat64s(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	return lo.Map(v, func(f float32, _ int) float64 { return float64(f) })
}

// consume drains result and converts its counters.
func consume(ctx context.Context, result neo4j.ResultWithContext) (WriteResult, error) {
	summary, err := result.Consume(ctx)
	if err != nil {
		return WriteResult{}, err
	}
	counters := summary.Counters()
	return WriteResult{
		NodesCreated:         counters.NodesCreated(),
		NodesDeleted:         counters.NodesDeleted(),
		RelationshipsCreated: counters.RelationshipsCreated(),
		RelationshipsDeleted: counters.RelationshipsDeleted(),
		PropertiesSet:        counters.PropertiesSet(),
	}, nil
}
