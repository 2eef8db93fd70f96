package main

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/embano1/whisper-blockifier/internal/aws"
	"github.com/embano1/whisper-blockifier/internal/backend"
	"github.com/embano1/whisper-blockifier/internal/banana"
	"github.com/embano1/whisper-blockifier/internal/blockifier"
	"github.com/embano1/whisper-blockifier/internal/config"
	"github.com/embano1/whisper-blockifier/internal/poller"
	"github.com/embano1/whisper-blockifier/internal/server"
)

// setupDI registers every component. Providers are lazy, so AWS clients are
// only built when the selected backend or payload mode needs them.
func setupDI(ctx context.Context, cfg *config.Config, log zerolog.Logger) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)

	do.Provide(injector, func(i do.Injector) (awssdk.Config, error) {
		c := do.MustInvoke[*config.Config](i)
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWS.Region))
		if err != nil {
			return awssdk.Config{}, fmt.Errorf("load AWS SDK config: %w", err)
		}
		return awsCfg, nil
	})

	do.Provide(injector, func(i do.Injector) (*aws.S3Service, error) {
		c := do.MustInvoke[*config.Config](i)
		awsCfg, err := do.Invoke[awssdk.Config](i)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg)
		return aws.NewS3Service(client, s3.NewPresignClient(client), c.AWS.Bucket, c.AWS.PresignTTL, do.MustInvoke[zerolog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (backend.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		l := do.MustInvoke[zerolog.Logger](i)

		switch c.Backend {
		case config.BackendAWS:
			awsCfg, err := do.Invoke[awssdk.Config](i)
			if err != nil {
				return nil, err
			}
			s3svc, err := do.Invoke[*aws.S3Service](i)
			if err != nil {
				return nil, err
			}
			return aws.NewTranscribeBackend(transcribe.NewFromConfig(awsCfg), s3svc, aws.TranscribeConfig{
				OutputBucket:  c.AWS.OutputBucket,
				LanguageCode:  c.AWS.LanguageCode,
				SpeakerLabels: c.AWS.SpeakerLabels,
				MaxSpeakers:   c.AWS.MaxSpeakers,
			}, l), nil
		default:
			var stager banana.Stager
			if c.Payload.Mode == banana.ModeURL {
				s3svc, err := do.Invoke[*aws.S3Service](i)
				if err != nil {
					return nil, err
				}
				stager = s3svc
			}
			encoder, err := banana.NewEncoder(c.Payload.Mode, stager)
			if err != nil {
				return nil, err
			}
			return banana.NewClient(banana.Config{
				Endpoint:  c.Banana.Endpoint,
				APIKey:    c.Secrets.BananaAPIKey,
				ModelKey:  c.Secrets.BananaModelKey,
				StartOnly: c.Banana.StartOnly,
				Timeout:   c.Banana.Timeout,
			}, encoder, l), nil
		}
	})

	do.Provide(injector, func(i do.Injector) (*blockifier.Blockifier, error) {
		c := do.MustInvoke[*config.Config](i)
		client, err := do.Invoke[backend.Client](i)
		if err != nil {
			return nil, err
		}
		return blockifier.New(blockifier.Options{
			ModelSize:      c.Whisper.ModelSize,
			ReturnSegments: c.Whisper.ReturnSegments,
			MediaPolicy:    c.Media.Policy,
			AllowedTypes:   c.Media.Allowed,
		}, client, do.MustInvoke[zerolog.Logger](i))
	})

	do.Provide(injector, func(i do.Injector) (*poller.Poller, error) {
		c := do.MustInvoke[*config.Config](i)
		b, err := do.Invoke[*blockifier.Blockifier](i)
		if err != nil {
			return nil, err
		}
		return poller.New(b, poller.Config{
			InitialInterval: c.Poll.InitialInterval,
			MaxInterval:     c.Poll.MaxInterval,
			Timeout:         c.Poll.Timeout,
		}, do.MustInvoke[zerolog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*server.Server, error) {
		c := do.MustInvoke[*config.Config](i)
		b, err := do.Invoke[*blockifier.Blockifier](i)
		if err != nil {
			return nil, err
		}
		var secret []byte
		if c.Server.Auth {
			secret = []byte(c.Secrets.JWTSecret)
		}
		return server.New(c.Server.Addr, b, secret, do.MustInvoke[zerolog.Logger](i)), nil
	})

	return injector
}
