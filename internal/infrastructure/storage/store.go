// Package storage provides the durable mention stores: a permanent
// seen-set of processed entry identifiers and a capacity-bounded,
// score-ordered recency index of serialized mention records.
package storage

import (
	"fmt"

	"MentionScanner/internal/config"
	"MentionScanner/internal/ports"
)

// Open builds the mention store selected by cfg.Storage.Engine.
func Open(cfg config.Config) (ports.MentionStore, error) {
	switch cfg.Storage.Engine {
	case config.EngineSQLite, "":
		return NewSQLiteStore(cfg.Storage.DSN, cfg.Mentions.Max)
	case config.EnginePostgres:
		return NewPostgresStore(cfg.Storage.DSN, cfg.Mentions.Max)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}
