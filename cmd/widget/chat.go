package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	model "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/render"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
	widgetService "github.com/zhouzirui/botura-widget/internal/service/widget"
	"github.com/zhouzirui/botura-widget/internal/store"
)

type chatOptions struct {
	attrsFile string
	storeKind string
	width     int
	plain     bool
	attrs     map[string]*string
}

func newChatCommand(a *app) *cobra.Command {
	opts := &chatOptions{attrs: make(map[string]*string, len(model.KnownAttributes))}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Mount one widget from explicit attributes and chat in the terminal",
		Example: `  widget chat --chatbot-id db0274b1-784f-4730-a225-d43d86444745
  widget chat --attrs-file widget.yaml --api-url http://localhost:8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.chat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.attrsFile, "attrs-file", "", "YAML file mapping data-* attribute names to values")
	cmd.Flags().StringVar(&opts.storeKind, "store", "", "conversation store: memory, sqlite or redis (defaults to STORE_DRIVER)")
	cmd.Flags().IntVar(&opts.width, "width", 80, "wrap width for rendered replies")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print replies without markdown styling")
	for _, name := range model.KnownAttributes {
		flag := strings.TrimPrefix(name, "data-")
		opts.attrs[name] = cmd.Flags().String(flag, "", "widget attribute "+name)
	}
	return cmd
}

func (a *app) chat(cmd *cobra.Command, opts *chatOptions) error {
	ctx := cmd.Context()

	attrs := model.Attributes{}
	if opts.attrsFile != "" {
		fromFile, err := loadAttributesFile(opts.attrsFile)
		if err != nil {
			return err
		}
		attrs = fromFile
	}
	for name, value := range opts.attrs {
		if cmd.Flags().Changed(strings.TrimPrefix(name, "data-")) {
			attrs[name] = *value
		}
	}

	storeOpts := a.cfg.Store.Options()
	if opts.storeKind != "" {
		storeOpts.Driver = opts.storeKind
	}
	conversations, closer := store.OpenOrUnavailable(ctx, storeOpts, a.logger)
	defer closer.Close()

	b := mount.NewBootstrapper(conversations,
		mount.WithResolver(widgetService.NewResolver(a.cfg.Widget.Defaults())),
		mount.WithLogger(a.logger),
	)
	w, err := b.MountAttributes(ctx, attrs)
	if err != nil {
		return err
	}
	defer w.Unmount()

	renderFn := render.NewTerminal(opts.width).Render
	if opts.plain {
		renderFn = func(s string) string { return s + "\n" }
	}
	return runREPL(ctx, w, cmd.InOrStdin(), cmd.OutOrStdout(), renderFn)
}

// loadAttributesFile reads a flat YAML mapping of attribute names to values.
// Keys may omit the "data-" prefix.
func loadAttributesFile(path string) (model.Attributes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read attributes file")
	}

	var values map[string]string
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrapf(err, "parse attributes file %s", path)
	}

	attrs := make(model.Attributes, len(values))
	for key, value := range values {
		key = strings.ToLower(strings.TrimSpace(key))
		if !strings.HasPrefix(key, "data-") {
			key = "data-" + key
		}
		attrs[key] = value
	}
	return attrs, nil
}

// runREPL prints the welcome message, then sends every input line and prints
// the reply. It returns at EOF, on "/quit" or when ctx is done.
func runREPL(ctx context.Context, w *mount.Widget, in io.Reader, out io.Writer, renderFn func(string) string) error {
	cfg := w.Config
	fmt.Fprintf(out, "%s\n", cfg.ChatbotName)
	fmt.Fprint(out, renderFn(cfg.WelcomeMessage))

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	prompt := func() { fmt.Fprintf(out, "%s > ", cfg.PlaceholderText) }
	prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			text := strings.TrimSpace(line)
			switch text {
			case "":
				prompt()
				continue
			case "/quit", "/exit":
				return nil
			}

			if err := w.Session.Send(ctx, text); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				prompt()
				continue
			}
			w.Session.Wait()

			if reply, ok := lastAssistant(w.Session.State()); ok {
				fmt.Fprint(out, renderFn(reply.Content))
			}
			prompt()
		}
	}
}

func lastAssistant(state chat.State) (chat.Message, bool) {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == chat.RoleAssistant {
			return state.Messages[i], true
		}
	}
	return chat.Message{}, false
}
