package storage

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Storage.Bucket == "" {
		log.Named("providers.storage").Warn("no bucket configured, documents will not be archived")
		return &NoOpProvider{}
	}

	provider, err := NewS3(S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Named("providers.storage").Warn("storage disabled", zap.Error(err))
		return &NoOpProvider{}
	}
	return provider
}
