package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/render/text"
	"github.com/goliatone/go-cardform/pkg/renderers/tui"
	"github.com/goliatone/go-cardform/pkg/session/preview"
)

const cardNumberMask = "{{9999}} {{9999}} {{9999}} {{9999}} {{999}}"

type fillOptions struct {
	account   string
	recurring bool
	summary   bool
}

func newFillCmd(a *app) *cobra.Command {
	var opts fillOptions
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a card payment form interactively and print the payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("recurring") {
				a.cfg.Form.Recurring = opts.recurring
			}
			driver := a.driver
			if driver == nil {
				driver = tui.NewSurveyDriver(cmd.ErrOrStderr())
			}
			return a.fill(cmd, opts, driver)
		},
	}
	cmd.Flags().StringVar(&opts.account, "account", "", "YAML account-on-file overlay to apply")
	cmd.Flags().BoolVar(&opts.recurring, "recurring", false, "recurring payment, never offers remember-me")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print the field summary after submitting")
	return cmd
}

func (a *app) fill(cmd *cobra.Command, opts fillOptions, driver tui.PromptDriver) error {
	c, err := a.classifier()
	if err != nil {
		return err
	}
	account, err := loadAccount(opts.account)
	if err != nil {
		return err
	}

	var f *form.Form
	session := preview.New(
		preview.WithProductSource(func() *model.NetworkProduct { return f.Product() }),
		preview.WithLogger(a.logger.Named("session")),
	)
	options := []form.Option{
		form.WithLogger(a.logger.Named("form")),
		form.WithCardNumberField(a.cfg.Form.CardNumberField),
		form.WithFields(cardNumberField(a.cfg.Form.CardNumberField)),
		form.WithAccount(account),
		form.WithRecurring(a.cfg.Form.Recurring),
	}
	if account != nil && account.ProductID != "" {
		product, err := c.FetchProduct(cmd.Context(), account.ProductID)
		if err != nil {
			return err
		}
		options = append(options, form.WithProduct(product))
	}
	f, err = form.New(c, session, options...)
	if err != nil {
		return err
	}
	defer f.Close()

	renderer := tui.New(
		tui.WithPromptDriver(driver),
		tui.WithMaxAttempts(a.cfg.Form.MaxAttempts),
		tui.WithLogger(a.logger.Named("tui")),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
	)
	payload, err := renderer.Fill(cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.summary {
		summary, err := text.New()
		if err != nil {
			return err
		}
		if err := summary.Render(out, text.Snapshot(f)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, payload)
	return err
}

// cardNumberField is the single field shown until a product is resolved.
func cardNumberField(id string) model.FieldDefinition {
	return model.FieldDefinition{
		ID:                 id,
		Kind:               model.KindNumeric,
		Label:              "Card number",
		MaskPattern:        cardNumberMask,
		Required:           true,
		PreferredInputType: "IntegerKeyboard",
		Rules:              []model.Rule{{Kind: model.RuleLuhn}},
	}
}
