package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/gallery"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/generation"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/gpu"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/platform"
)

// CollaboratorFlags are the external-service flags shared by both binaries.
func CollaboratorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "platform-url",
			Usage:    "Base URL of the platform API (credits, characters, gallery records)",
			Required: true,
			Sources:  cli.EnvVars("PLATFORM_URL"),
		},
		&cli.StringFlag{
			Name:    "platform-api-key",
			Usage:   "Service token for the platform API",
			Sources: cli.EnvVars("PLATFORM_API_KEY"),
		},
		&cli.StringFlag{
			Name:     "serverless-url",
			Usage:    "Base URL of the serverless GPU queue",
			Required: true,
			Sources:  cli.EnvVars("SERVERLESS_URL"),
		},
		&cli.StringFlag{
			Name:    "serverless-token",
			Usage:   "Bearer token for the serverless GPU queue",
			Sources: cli.EnvVars("SERVERLESS_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for live routing settings (static flags used when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "gpu-mode",
			Usage:   "Static routing mode (serverless, dedicated, hybrid, serverless-primary)",
			Value:   gpu.ModeServerless,
			Sources: cli.EnvVars("GPU_MODE"),
		},
		&cli.StringFlag{
			Name:    "dedicated-url",
			Usage:   "Base URL of the dedicated GPU pod",
			Sources: cli.EnvVars("DEDICATED_URL"),
		},
		&cli.StringFlag{
			Name:    "text-url",
			Usage:   "Chat-completions endpoint for prompt generation",
			Sources: cli.EnvVars("TEXT_URL"),
		},
		&cli.StringFlag{
			Name:    "text-api-key",
			Sources: cli.EnvVars("TEXT_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "text-model",
			Value:   "gpt-4o-mini",
			Sources: cli.EnvVars("TEXT_MODEL"),
		},
		&cli.StringFlag{
			Name:    "chat-image-url",
			Usage:   "Multimodal chat endpoint for the chat image family",
			Sources: cli.EnvVars("CHAT_IMAGE_URL"),
		},
		&cli.StringFlag{
			Name:    "chat-image-api-key",
			Sources: cli.EnvVars("CHAT_IMAGE_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "chat-image-model",
			Value:   "gemini-2.5-flash-image",
			Sources: cli.EnvVars("CHAT_IMAGE_MODEL"),
		},
		&cli.StringFlag{
			Name:    "direct-image-url",
			Usage:   "Synchronous generation endpoint for the direct image family",
			Sources: cli.EnvVars("DIRECT_IMAGE_URL"),
		},
		&cli.StringFlag{
			Name:    "direct-image-api-key",
			Sources: cli.EnvVars("DIRECT_IMAGE_API_KEY"),
		},
		&cli.StringFlag{
			Name:     "s3-endpoint",
			Usage:    "S3-compatible endpoint for gallery storage",
			Required: true,
			Sources:  cli.EnvVars("S3_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:     "s3-bucket",
			Required: true,
			Sources:  cli.EnvVars("S3_BUCKET"),
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Value:   "us-east-1",
			Sources: cli.EnvVars("S3_REGION"),
		},
		&cli.StringFlag{
			Name:    "s3-access-key-id",
			Sources: cli.EnvVars("S3_ACCESS_KEY_ID"),
		},
		&cli.StringFlag{
			Name:    "s3-secret-access-key",
			Sources: cli.EnvVars("S3_SECRET_ACCESS_KEY"),
		},
	}
}

// NewGPURouter builds the router from the shared flags. With a redis URL the
// routing policy is live-editable; otherwise the static flag values apply.
func NewGPURouter(logger *slog.Logger, command *cli.Command) (*gpu.Router, error) {
	var settings gpu.SettingsSource

	if redisURL := command.String("redis-url"); redisURL != "" {
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}

		settings = gpu.NewRedisSettings(logger, redis.NewClient(options))
	} else {
		settings = gpu.StaticSettings{Settings: gpu.RoutingSettings{
			Mode:         command.String("gpu-mode"),
			DedicatedURL: command.String("dedicated-url"),
		}}
	}

	serverless := gpu.NewHTTPBackend(
		command.String("serverless-url"),
		command.String("serverless-token"),
		5*time.Second,
	)

	dedicated := func(s gpu.RoutingSettings) gpu.Backend {
		return gpu.NewHTTPBackend(s.DedicatedURL, "", s.SubmitTimeout)
	}

	return gpu.NewRouter(logger, settings, serverless, dedicated, gpu.NewRouterState(), gpu.NewJobTracker(logger)), nil
}

// NewCollaborators builds the external-service clients from the shared flags.
// Image model families are registered only when their endpoint is configured;
// the queue family always rides the GPU router.
func NewCollaborators(ctx context.Context, logger *slog.Logger, command *cli.Command, router *gpu.Router) (*Collaborators, error) {
	platformClient := platform.NewClient(logger, command.String("platform-url"), command.String("platform-api-key"))

	storage, err := gallery.NewS3Storage(ctx, &gallery.S3Config{
		Endpoint:        command.String("s3-endpoint"),
		Bucket:          command.String("s3-bucket"),
		Region:          command.String("s3-region"),
		AccessKeyID:     command.String("s3-access-key-id"),
		SecretAccessKey: command.String("s3-secret-access-key"),
		UseSSL:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gallery storage: %w", err)
	}

	library := gallery.NewLibrary(logger, storage, platformClient, platformClient)

	providers := generation.NewProviderSet()
	providers.Register("comfy-lora", generation.NewQueueProvider("comfy-lora", router, generation.ComfyPayload), 5)

	if url := command.String("chat-image-url"); url != "" {
		model := command.String("chat-image-model")
		providers.Register(model, generation.NewChatProvider(model, url, command.String("chat-image-api-key"), model), 5)
	}

	if url := command.String("direct-image-url"); url != "" {
		providers.Register("flux", generation.NewDirectProvider("flux", url, command.String("direct-image-api-key")), 5)
	}

	return &Collaborators{
		Providers:  providers,
		Text:       generation.NewHTTPTextProvider(command.String("text-url"), command.String("text-api-key"), command.String("text-model")),
		Ledger:     platformClient,
		Characters: platformClient,
		Library:    library,
		Storage:    storage,
	}, nil
}
