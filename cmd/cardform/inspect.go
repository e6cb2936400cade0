package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cardform/internal/config"
	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/render/text"
)

type inspectOptions struct {
	account     string
	templateDir string
	template    string
}

func newInspectCmd(a *app) *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect [product-id]",
		Short: "List catalog products or show the field set of one product",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.listProducts(cmd)
			}
			return a.inspectProduct(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.account, "account", "", "YAML account-on-file overlay to apply")
	cmd.Flags().StringVar(&opts.templateDir, "template-dir", "", "directory of summary templates")
	cmd.Flags().StringVar(&opts.template, "template", text.DefaultTemplate, "summary template name")
	return cmd
}

func (a *app) listProducts(cmd *cobra.Command) error {
	if a.cfg.Resolver.Kind != config.ResolverCatalog {
		return errors.New("listing products needs the catalog resolver")
	}
	cat, err := a.catalog()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, p := range cat.Products() {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d fields\n", p.ID, p.Label, len(p.Fields)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) inspectProduct(cmd *cobra.Command, id string, opts inspectOptions) error {
	c, err := a.classifier()
	if err != nil {
		return err
	}
	product, err := c.FetchProduct(cmd.Context(), id)
	if err != nil {
		return err
	}
	account, err := loadAccount(opts.account)
	if err != nil {
		return err
	}

	f, err := form.New(c, nil,
		form.WithLogger(a.logger.Named("form")),
		form.WithCardNumberField(a.cfg.Form.CardNumberField),
		form.WithProduct(product),
		form.WithAccount(account),
		form.WithRecurring(a.cfg.Form.Recurring),
	)
	if err != nil {
		return err
	}
	defer f.Close()

	renderer, err := a.textRenderer(opts.templateDir, opts.template)
	if err != nil {
		return err
	}
	return renderer.Render(cmd.OutOrStdout(), text.Snapshot(f))
}

func (a *app) textRenderer(dir, name string) (*text.Renderer, error) {
	options := []text.Option{text.WithTemplate(name)}
	if dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, err
		}
		options = append(options, text.WithFS(os.DirFS(expanded)))
	}
	return text.New(options...)
}

// loadAccount reads a YAML account overlay; an empty path means none.
func loadAccount(path string) (*model.AccountOverlay, error) {
	if path == "" {
		return nil, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand account path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}
	var account model.AccountOverlay
	if err := yaml.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("parse account %s: %w", expanded, err)
	}
	return &account, nil
}
