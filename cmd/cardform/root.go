package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-cardform/internal/config"
	"github.com/goliatone/go-cardform/internal/observability"
	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/renderers/tui"
	"github.com/goliatone/go-cardform/pkg/resolver/catalog"
	"github.com/goliatone/go-cardform/pkg/resolver/httpresolver"
)

// app carries what the persistent pre-run resolved for the subcommands.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	driver  tui.PromptDriver
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "cardform",
		Short:         "Classify card numbers and fill dynamic card payment forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./cardform.yaml or ~/.cardform.yaml)")
	flags.String("resolver", config.ResolverCatalog, "resolver kind: catalog or http")
	flags.String("catalog-dir", "", "directory of catalog YAML/JSON files (embedded catalog when empty)")
	flags.String("base-url", "", "base URL of the http resolver")
	flags.Int("min-digits", 6, "digits required before a card number is classified")
	flags.String("log-level", "info", "log level")
	bindFlags(a.v, root, map[string]string{
		"resolver.kind":         "resolver",
		"resolver.catalog_dir":  "catalog-dir",
		"resolver.base_url":     "base-url",
		"classifier.min_digits": "min-digits",
		"logger.level":          "log-level",
	})

	root.AddCommand(
		newClassifyCmd(a),
		newInspectCmd(a),
		newFillCmd(a),
	)
	return root, a
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

func (a *app) init() error {
	if err := config.ReadInConfig(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	observability.InitializeLogger(cfg.Logger)
	a.logger = observability.GetLogger()
	a.logger.Debug("configuration loaded",
		zap.String("resolver", cfg.Resolver.Kind),
		zap.Int("min_digits", cfg.Classifier.MinDigits))
	return nil
}

// resolver builds the classify.Resolver selected by the configuration.
func (a *app) resolver() (classify.Resolver, error) {
	rc := a.cfg.Resolver
	switch rc.Kind {
	case config.ResolverHTTP:
		client, err := httpresolver.New(rc.BaseURL,
			httpresolver.WithHTTPClient(&http.Client{Timeout: rc.Timeout}),
			httpresolver.WithToken(rc.Token),
			httpresolver.WithRateLimit(rc.RateLimit, rc.Burst),
			httpresolver.WithLogger(a.logger.Named("resolver")),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		cat, err := a.catalog()
		if err != nil {
			return nil, err
		}
		return cat, nil
	}
}

func (a *app) catalog() (*catalog.Catalog, error) {
	dir := a.cfg.Resolver.CatalogDir
	if dir == "" {
		return catalog.Default()
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	return catalog.LoadFS(os.DirFS(dir))
}

func (a *app) classifier() (*classify.Classifier, error) {
	r, err := a.resolver()
	if err != nil {
		return nil, err
	}
	return classify.New(r,
		classify.WithMinDigits(a.cfg.Classifier.MinDigits),
		classify.WithLogger(a.logger.Named("classify")),
	), nil
}
