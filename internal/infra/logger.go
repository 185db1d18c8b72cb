package infra

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger returns a JSON production logger for "prod"/"production" and a
// console development logger for everything else.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
