// Package main is the Digital Indian site backend: a Cloud Run service that
// answers the chat widget, manages site content and emails subscribers when an
// admin announces new content.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"

	"digitalindian/auth"
	"digitalindian/chat"
	"digitalindian/config"
	"digitalindian/email"
	"digitalindian/metrics"
	"digitalindian/notify"
	"digitalindian/pkg/site"
	"digitalindian/server"
	"digitalindian/storage"
	"digitalindian/store"
)

const defaultUploadsDir = "./data/uploads"

var (
	configPath string
	logger     *slog.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "digitalindian",
		Short:         "Digital Indian site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger = newLogger(cfg.LogLevel, os.Getenv("K_SERVICE") != "")
			slog.SetDefault(logger)
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (environment variables override it)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(pruneImagesCmd())
	root.AddCommand(tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if logger == nil {
			logger = newLogger("info", false)
		}
		logger.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config) //nolint:forcetypeassert // set in PersistentPreRunE
}

// newLogger renders colourised text locally and JSON on Cloud Run.
func newLogger(level string, cloudRun bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	if cloudRun {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if err, ok := a.Value.Any().(error); ok {
				aErr := tint.Err(err)
				aErr.Key = a.Key
				return aErr
			}
			return a
		},
	}))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := configFrom(cmd)

			if cfg.Server.BaseURL == "" {
				logger.Warn("BASE_URL not set; notification runs will be refused")
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)

			images, closeImages, err := newImageStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeImages()

			provider, emailReady, err := newEmailProvider(ctx, cfg)
			if err != nil {
				return err
			}
			sender := email.New(provider, logger, cfg.Server.BaseURL, cfg.Email.ContactInbox)

			gen, err := chat.NewGenerator(ctx, cfg.Chat, logger)
			if err != nil {
				return err
			}
			responder := chat.NewResponder(gen, logger,
				chat.WithTimeout(cfg.Chat.Timeout),
				chat.WithAttempts(cfg.Chat.Attempts))

			verifier := auth.NewVerifier(cfg.Auth)
			if !verifier.Enabled() {
				logger.Warn("AUTH_JWT_SECRET not set; admin routes will refuse every request")
			}

			metrics.Init()

			uploadsDir := ""
			if images.Local() {
				uploadsDir = images.LocalPath()
			}

			srv := server.New(&server.Config{
				Store:     st,
				Images:    images,
				Responder: responder,
				Mailer:    sender,
				Notifier: notify.New(st, sender, notify.Config{
					BaseURL:         cfg.Server.BaseURL,
					EmailConfigured: emailReady,
				}, logger),
				Auth:            verifier,
				Logger:          logger,
				UploadsDir:      uploadsDir,
				EmailConfigured: emailReady,
			})
			return srv.Serve(ctx, cfg.Server.Port)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, configFrom(cmd))
			if err != nil {
				return err
			}
			defer closeStore(st)

			v, err := st.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			logger.Info("Schema is current", "driver", st.Driver(), "version", v)
			return nil
		},
	}
}

func notifyCmd() *cobra.Command {
	var kind, id string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Email every subscriber about a stored post, update or job opening",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := configFrom(cmd)

			k, err := site.ParseKind(kind)
			if err != nil {
				return err
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)

			item, err := st.ContentItem(ctx, k, id)
			if err != nil {
				return fmt.Errorf("load %s %s: %w", k, id, err)
			}

			provider, emailReady, err := newEmailProvider(ctx, cfg)
			if err != nil {
				return err
			}
			sender := email.New(provider, logger, cfg.Server.BaseURL, cfg.Email.ContactInbox)
			n := notify.New(st, sender, notify.Config{
				BaseURL:         cfg.Server.BaseURL,
				EmailConfigured: emailReady,
			}, logger)

			res := n.NotifySubscribers(ctx, item)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "post", "content kind: post, update or job")
	cmd.Flags().StringVar(&id, "id", "", "content ID")
	_ = cmd.MarkFlagRequired("id") //nolint:errcheck // flag exists
	return cmd
}

func pruneImagesCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune-images",
		Short: "Delete uploaded images no post or gallery item refers to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := configFrom(cmd)

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(st)

			images, closeImages, err := newImageStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeImages()

			var postKeys, galleryKeys, urls []string
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				postKeys, err = images.List(gctx, storage.PrefixPosts)
				return err
			})
			g.Go(func() error {
				var err error
				galleryKeys, err = images.List(gctx, storage.PrefixGallery)
				return err
			})
			g.Go(func() error {
				var err error
				urls, err = st.ImageURLs(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			orphans := unreferencedKeys(append(postKeys, galleryKeys...), urls, images.KeyFromURL)
			logger.Info("Scanned uploaded images",
				"objects", len(postKeys)+len(galleryKeys),
				"referenced", len(urls),
				"orphans", len(orphans),
				"dry_run", dryRun)

			for _, key := range orphans {
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), key)
					continue
				}
				if err := images.Delete(ctx, key); err != nil {
					return fmt.Errorf("delete %s: %w", key, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned images without deleting them")
	return cmd
}

// unreferencedKeys returns the keys, sorted, that no URL maps back to.
func unreferencedKeys(keys, urls []string, keyFromURL func(string) string) []string {
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		if k := keyFromURL(u); k != "" {
			referenced[k] = true
		}
	}
	var out []string
	for _, k := range keys {
		if !referenced[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func tokenCmd() *cobra.Command {
	var addr string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an admin bearer token for local use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if !cfg.Auth.IsAdmin(addr) {
				return fmt.Errorf("%s is not on the admin list", addr)
			}
			tok, err := auth.NewVerifier(cfg.Auth).GenerateToken(addr, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "email", "", "admin email address")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	return cmd
}

// openStore connects to the database and brings the schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		closeStore(st)
		return nil, err
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}

// newImageStore uses the configured bucket, or a local directory when none is set.
func newImageStore(ctx context.Context, cfg *config.Config) (*storage.Store, func(), error) {
	if cfg.Storage.Bucket == "" {
		localPath := cfg.Storage.LocalPath
		if localPath == "" {
			localPath = defaultUploadsDir
			logger.Info("No STORAGE_BUCKET set, defaulting to local image storage", "storage_path", localPath)
		}
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create local storage directory: %w", err)
		}
		return storage.New(nil, "", localPath, cfg.Storage.PublicURL, logger), func() {}, nil
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	return storage.New(client, cfg.Storage.Bucket, "", cfg.Storage.PublicURL, logger), closeFn, nil
}

// newEmailProvider selects the configured provider. It falls back to the mock
// provider when credentials are missing; the boolean reports whether mail is
// actually delivered.
func newEmailProvider(ctx context.Context, cfg *config.Config) (email.Provider, bool, error) {
	ec := cfg.Email
	if ec.Provider == "mock" {
		logger.Info("Mock email mode enabled")
		return email.NewMockProvider(logger), false, nil
	}

	if ec.Provider == "gmail" {
		svc, err := newGmailService(ctx, ec.Pass)
		if err != nil {
			logger.Warn("Failed to initialize Gmail service, using mock email", "error", err)
			return email.NewMockProvider(logger), false, nil
		}
		return email.NewGmailProvider(svc, ec.FromName, ec.SendAttempts, logger), true, nil
	}

	if !cfg.EmailConfigured() {
		logger.Warn("EMAIL_USER or EMAIL_PASS not set; using mock email")
		return email.NewMockProvider(logger), false, nil
	}

	switch ec.Provider {
	case "", "smtp":
		return email.NewSMTPProvider(ec.SMTPHost, ec.SMTPPort, ec.User, ec.Pass, ec.FromName, ec.SendAttempts, logger), true, nil
	case "brevo":
		return email.NewBrevoProvider(ec.Pass, ec.User, ec.FromName, ec.SendAttempts, logger), true, nil
	default:
		return nil, false, fmt.Errorf("unknown email provider %q", ec.Provider)
	}
}

// newGmailService uses explicit credentials when given and Application Default
// Credentials on Cloud Run.
func newGmailService(ctx context.Context, credentialsJSON string) (*gmail.Service, error) {
	if credentialsJSON != "" {
		return email.NewGmailService(ctx, credentialsJSON)
	}

	// The service account needs Gmail API access (gmail.send scope)
	if isCloudRun(ctx) {
		return gmail.NewService(ctx)
	}

	return nil, errors.New("EMAIL_PASS must hold Gmail credentials JSON when not running in Cloud Run")
}

// isCloudRun checks if we're running in a GCP environment by querying the metadata server.
func isCloudRun(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://metadata.google.internal/computeMetadata/v1/project/project-id", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // best-effort probe
	}()

	return resp.StatusCode == http.StatusOK
}
