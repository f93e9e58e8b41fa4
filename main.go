package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/miadvg/taxrise-gateway/gateway/cases"
	"github.com/miadvg/taxrise-gateway/gateway/clients"
	"github.com/miadvg/taxrise-gateway/gateway/messaging"
	serverx "github.com/miadvg/taxrise-gateway/gateway/server"
	statex "github.com/miadvg/taxrise-gateway/gateway/state"
	"github.com/miadvg/taxrise-gateway/gateway/tool"
	workflowx "github.com/miadvg/taxrise-gateway/gateway/workflow"
	configx "github.com/miadvg/taxrise-gateway/pkg/config"
	"github.com/miadvg/taxrise-gateway/pkg/heymarket"
	logx "github.com/miadvg/taxrise-gateway/pkg/logger"
	"github.com/miadvg/taxrise-gateway/pkg/mailer"
	"github.com/miadvg/taxrise-gateway/pkg/openrouter"
	"github.com/miadvg/taxrise-gateway/pkg/salesforce"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

type AppConfig struct {
	// Transport is "http" (streamable HTTP, the default) or "stdio".
	Transport   string `default:"http"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" split_words:"true" default:":3002"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" split_words:"true"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("")

	sf := salesforce.MustNew(*configx.MustNew[salesforce.Config]("SALESFORCE"))
	sms := heymarket.MustNew(*configx.MustNew[heymarket.Config]("HEYMARKET"))
	mail := mailer.MustNew(*configx.MustNew[mailer.Config]("SMTP"))

	messenger, err := messaging.New(sms, mail)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build messaging gateway")
	}

	store, closeStore := newWorkflowStore(appCfg.DatabaseDSN)
	defer closeStore()

	links := *configx.MustNew[workflowx.Links]("LINKS")
	toolCfg := *configx.MustNew[tool.Config]("TOOL")

	workflows, err := workflowx.NewService(sf, messenger, store, links)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build workflow service")
	}

	clientSvc, err := clients.NewService(sf)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build client service")
	}

	orCfg := *configx.MustNew[openrouter.Config]("OPENROUTER")
	greeter, err := clients.NewGreeter(clientSvc, openrouter.NewClient(orCfg), orCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build greeter")
	}

	caseSvc, err := cases.NewService(sf, messenger, links)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build case service")
	}

	s, err := serverx.New(serverx.Dependencies{
		Workflows: workflows,
		Clients:   clientSvc,
		Greeter:   greeter,
		Cases:     caseSvc,
		Messenger: messenger,
		Records:   sf,
		Links:     links,
		Tools:     toolCfg,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	switch appCfg.Transport {
	case "stdio":
		log.Info().Msg("serving MCP over stdio")
		if err := mcpserver.ServeStdio(s); err != nil {
			log.Fatal().Err(err).Msg("stdio server stopped")
		}
	case "http":
		log.Info().Str("addr", appCfg.HTTPAddr).Msg("serving MCP over streamable HTTP")
		httpServer := mcpserver.NewStreamableHTTPServer(s)
		if err := httpServer.Start(appCfg.HTTPAddr); err != nil {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	default:
		log.Fatal().Str("transport", appCfg.Transport).Msg("unknown transport, expected http or stdio")
	}
}

// newWorkflowStore picks Postgres when a DSN is configured and falls back to
// the in-memory store otherwise. Without Postgres, workflow state does not
// survive a restart.
func newWorkflowStore(dsn string) (statex.Store, func()) {
	if dsn == "" {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory workflow store")
		return statex.NewMemoryStore(), func() {}
	}

	pg, err := statex.NewPostgresStore(statex.PostgresConfig{DSN: dsn})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open workflow store")
	}
	if err := pg.Init(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize workflow store schema")
	}

	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Warn().Err(err).Msg("workflow store close failed")
		}
	}
}
