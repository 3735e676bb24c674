package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/botura-widget/internal/handler"
	"github.com/zhouzirui/botura-widget/internal/handler/widget"
	model "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
	widgetService "github.com/zhouzirui/botura-widget/internal/service/widget"
	"github.com/zhouzirui/botura-widget/internal/store"
)

// demoPage is served when no host page is configured. It carries the embed
// snippet a shop would paste into its own markup.
const demoPage = `<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><title>Bastel Laden</title></head>
<body>
<h1>Bastel Laden</h1>
<div id="botura-chat-widget"
     data-chatbot-id="db0274b1-784f-4730-a225-d43d86444745"
     data-chatbot-name="Bastel Laden"
     data-color="#10b981"
     data-position="bottom-right"></div>
</body>
</html>`

type serveOptions struct {
	addr       string
	pagePath   string
	elementID  string
	storeKind  string
	apiURL     string
	chatbotIDs []string
}

func newServeCommand(a *app) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Mount widgets from a host page and expose them over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (defaults to PORT)")
	cmd.Flags().StringVar(&opts.pagePath, "page", "", "host page HTML file (defaults to WIDGET_HOST_PAGE, then a demo page)")
	cmd.Flags().StringVar(&opts.elementID, "element-id", "", "host element id (defaults to WIDGET_HOST_ELEMENT_ID)")
	cmd.Flags().StringVar(&opts.storeKind, "store", "", "conversation store: memory, sqlite or redis (defaults to STORE_DRIVER)")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "default backend URL for widgets without data-api-url")
	cmd.Flags().StringSliceVar(&opts.chatbotIDs, "chatbot", nil, "additionally mount a widget for this chatbot id (repeatable)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, opts *serveOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := a.logger

	addr := firstNonEmpty(opts.addr, cfg.Server.Addr)
	elementID := firstNonEmpty(opts.elementID, cfg.Widget.HostElementID)
	if opts.apiURL != "" {
		cfg.Widget.DefaultAPIURL = opts.apiURL
	}
	storeOpts := cfg.Store.Options()
	if opts.storeKind != "" {
		storeOpts.Driver = opts.storeKind
	}

	page, err := loadPage(firstNonEmpty(opts.pagePath, cfg.Widget.HostPage))
	if err != nil {
		return err
	}

	conversations, closer := store.OpenOrUnavailable(ctx, storeOpts, logger.With().Str("component", "store").Logger())
	defer closer.Close()

	registry := widget.NewRegistry(logger)
	b := mount.NewBootstrapper(conversations,
		mount.WithResolver(widgetService.NewResolver(cfg.Widget.Defaults())),
		mount.WithBinder(registry.Bind),
		mount.WithLogger(logger.With().Str("component", "mount").Logger()),
	)
	defer registry.UnmountAll()

	// A missing host element is logged by the bootstrapper and is not fatal.
	_, _ = b.MountElement(ctx, page, elementID)
	for _, id := range opts.chatbotIDs {
		_, _ = b.MountAttributes(ctx, model.Attributes{model.AttrChatbotID: id})
	}
	if len(registry.List()) == 0 {
		logger.Warn().Msg("no widget mounted, the bridge will only serve the host page")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewWidgetRouter(page, registry, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Int("widgets", len(registry.List())).Msg("widget bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadPage(path string) (*mount.HostPage, error) {
	if path == "" {
		return mount.LoadHostPage(strings.NewReader(demoPage))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open host page")
	}
	defer f.Close()
	return mount.LoadHostPage(f)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
