package main

import (
	"errors"

	"github.com/charmbracelet/log"

	"anthill.game/internal/persistence/archive"
	"anthill.game/internal/persistence/r2s3"
)

type mirrorOpts struct {
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
	region    string
	prefix    string
	workers   int
}

type archiveOpts struct {
	every uint64
	keep  int
}

// openMirror returns nil when no bucket is configured.
func openMirror(o mirrorOpts, dataDir string, logger *log.Logger) (*r2s3.Mirror, error) {
	if o.bucket == "" {
		return nil, nil
	}
	if o.endpoint == "" {
		return nil, errors.New("--r2-endpoint is required with --r2-bucket")
	}
	client, err := r2s3.New(r2s3.Config{
		Endpoint:        o.endpoint,
		Bucket:          o.bucket,
		AccessKeyID:     o.accessKey,
		SecretAccessKey: o.secretKey,
		Region:          o.region,
	})
	if err != nil {
		return nil, err
	}
	return r2s3.NewMirror(client, r2s3.MirrorConfig{
		DataDir: dataDir,
		Prefix:  o.prefix,
		Workers: o.workers,
		Logger:  logger,
	}), nil
}

// openArchive returns nil when neither milestones nor retention are enabled.
func openArchive(o archiveOpts, dataDir string, logger *log.Logger) *archive.Keeper {
	if o.every == 0 && o.keep <= 0 {
		return nil
	}
	return archive.New(archive.Config{
		DataDir:    dataDir,
		EveryTicks: o.every,
		Keep:       o.keep,
		Logger:     logger,
	})
}
