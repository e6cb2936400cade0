package main

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardform/pkg/classify"
	"github.com/goliatone/go-cardform/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type classifyOutput struct {
	Outcome  string   `json:"outcome"`
	Product  string   `json:"product,omitempty"`
	Label    string   `json:"label,omitempty"`
	CoBrands []string `json:"coBrands,omitempty"`
	Failure  string   `json:"failure,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func newClassifyCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "classify <card-number>",
		Short: "Resolve the network product of a (partial) card number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.classifier()
			if err != nil {
				return err
			}
			if !c.Eligible(args[0]) {
				return fmt.Errorf("at least %d digits are required", c.MinDigits())
			}
			out := summarizeResult(c.Classify(cmd.Context(), args[0]))
			return writeClassifyOutput(cmd.OutOrStdout(), out, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func summarizeResult(result classify.Result) classifyOutput {
	out := classifyOutput{Outcome: result.Outcome.String()}
	if result.Product != nil {
		out.Product = result.Product.ID
		out.Label = result.Product.Label
	}
	for _, cb := range result.CoBrands {
		out.CoBrands = append(out.CoBrands, productLabel(cb))
	}
	if result.Outcome == classify.OutcomeFailed {
		out.Failure = string(result.Kind)
		if result.Err != nil {
			out.Error = result.Err.Error()
		}
	}
	return out
}

func writeClassifyOutput(w io.Writer, out classifyOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if _, err := fmt.Fprintf(w, "outcome: %s\n", out.Outcome); err != nil {
		return err
	}
	if out.Product != "" {
		fmt.Fprintf(w, "product: %s (%s)\n", out.Label, out.Product)
	}
	for _, cb := range out.CoBrands {
		fmt.Fprintf(w, "co-brand: %s\n", cb)
	}
	if out.Failure != "" {
		fmt.Fprintf(w, "failure: %s\n", out.Failure)
	}
	return nil
}

func productLabel(p model.NetworkProduct) string {
	if p.Label == "" {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", p.Label, p.ID)
}
