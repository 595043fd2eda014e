package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"plurianual/internal/app"
	"plurianual/internal/config"
	"plurianual/internal/engine"
	"plurianual/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	var requireAuth bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serve the HTTP API. When PLURIANUAL_JWT_SECRET is set or --require-auth is given every request needs a bearer token ('ppa auth token') or an API key ('ppa auth key create'); otherwise the actor comes from the X-Actor-Id header.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"), logger)
			if err != nil {
				return err
			}
			defer ws.Close()
			authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret"), Required: requireAuth, Logger: logger}
			handler, err := server.New(server.Config{Engine: ws.Engine, BasePath: basePath, Auth: authCfg, Logger: logger})
			if err != nil {
				return err
			}
			if authCfg.JWTSecret == "" && !requireAuth {
				logger.Warn("authentication disabled, set PLURIANUAL_JWT_SECRET or --require-auth to enable it")
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Printf("Serving plurianual API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n", ln.Addr(), basePath, basePath, basePath)
			srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			err = runServer(cmd.Context(), srv, ln)
			logger.Info("server stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&requireAuth, "require-auth", false, "reject requests without credentials")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

// runServer serves on ln until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "API credentials"}
	var subject string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("PLURIANUAL_JWT_SECRET is required to sign tokens")
			}
			if subject == "" {
				subject = actor()
			}
			tok, err := server.IssueToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "", "actor id carried by the token (default --actor-id)")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.AddCommand(token)
	cmd.AddCommand(authKeyCmd())
	return cmd
}

func authKeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "key", Short: "Manage API keys"}
	var owner, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				owner = actor()
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CreateAPIKey(ctx, owner, name, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("id:  %s\nkey: %s\n", res.ID, res.Key)
				return nil
			})
		},
	}
	create.Flags().StringVar(&owner, "owner", "", "actor the key authenticates as (default --actor-id)")
	create.Flags().StringVar(&name, "name", "", "label")
	var filterOwner string
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx, filterOwner)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable("ID", "Actor", "Name", "Created")
				for _, k := range keys {
					tw.AppendRow([]any{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&filterOwner, "owner", "", "actor filter")
	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RevokeAPIKey(ctx, args[0], actor()); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
	cmd.AddCommand(create, list, revoke)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configImportCmd())
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a YAML config and install it as plurianual.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			if err := config.Write(viper.GetString("workspace"), cfg); err != nil {
				return err
			}
			fmt.Println("imported", filePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			return yaml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write plurianual.yml with the default catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate plurianual.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
}
