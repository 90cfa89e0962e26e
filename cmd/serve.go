package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vibebros/analytics"
	"vibebros/blog"
	"vibebros/cache"
	"vibebros/common"
	"vibebros/config"
	"vibebros/database"
	"vibebros/logging"
	"vibebros/posts"
	"vibebros/site"
)

var serverPort int

// templates are looked up relative to the working directory
var viewsGlob = "*/views/*.html"

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site and blog over HTTP",
	Long: `The serve command loads and validates every post, then starts the HTTP
server. A post with invalid front matter stops the server from starting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			appConfig.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, appConfig, logs)
	},
}

type app struct {
	router    *gin.Engine
	analytics *analytics.AnalyticsModule
	pages     *cache.PageCache
}

func newApp(cfg config.Config, logs *logging.Provider) (*app, error) {
	logger := logs.GetLogger("server")

	repo := posts.NewRepository(cfg.ContentDir, logs.GetLogger("posts"))
	if err := repo.Load(); err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	db, err := common.ConnectAnalyticsDb(cfg.AnalyticsDB)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := database.RunMigrations(db); err != nil {
			return nil, err
		}
		logger.Info("analytics.enabled", "path", cfg.AnalyticsDB)
	}
	analyticsModule := analytics.NewAnalyticsModule(db, logs.GetLogger("analytics"))

	var pages *cache.PageCache
	if cfg.CacheMaxAge > 0 {
		pages = cache.New(cfg.CacheMaxAge)
	}

	router := gin.Default()
	router.SetFuncMap(common.TemplateFuncs(cfg.SiteURL))
	router.LoadHTMLGlob(viewsGlob)

	siteModule := site.NewSiteModule(repo, cfg.SiteURL, logs.GetLogger("site"))
	siteModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(repo, analyticsModule, pages, cfg.SiteURL, logs.GetLogger("blog"))
	blogModule.RegisterRoutes(router)

	return &app{router: router, analytics: analyticsModule, pages: pages}, nil
}

func serve(ctx context.Context, cfg config.Config, logs *logging.Provider) error {
	logger := logs.GetLogger("server")

	a, err := newApp(cfg, logs)
	if err != nil {
		return err
	}

	if a.pages != nil {
		go a.pages.Sweep(ctx, cfg.CacheMaxAge)
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.starting", "addr", srv.Addr, "content_dir", cfg.ContentDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server.stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	a.analytics.Wait()
	return err
}

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Port to serve the site on")
	rootCmd.AddCommand(serveCmd)
}
