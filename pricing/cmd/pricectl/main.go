// pricectl evaluates pricing rule configs offline.
//
// Usage:
//
//	pricectl quote --config rules.toml --base 100 --spend 150 --visits 3
//	pricectl validate --config rules.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"storefront/pricing/internal/logic"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Pricing rule config (.toml or .json)",
		Required: true,
		EnvVars:  []string{"PRICECTL_CONFIG"},
	}

	return &cli.App{
		Name:  "pricectl",
		Usage: "Evaluate MCD/RCD pricing rules without a running service",
		Commands: []*cli.Command{
			{
				Name:  "quote",
				Usage: "Compute the price breakdown for one product and customer",
				Flags: []cli.Flag{
					configFlag,
					&cli.Float64Flag{Name: "base", Usage: "Base price", Required: true},
					&cli.Float64Flag{Name: "spend", Usage: "Customer spend"},
					&cli.Float64Flag{Name: "visits", Usage: "Customer visits"},
					&cli.BoolFlag{Name: "round", Usage: "Round prices to cents"},
				},
				Action: quoteAction,
			},
			{
				Name:   "validate",
				Usage:  "Parse a config file and print it with defaults filled in",
				Flags:  []cli.Flag{configFlag},
				Action: validateAction,
			},
		},
	}
}

func quoteAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	breakdown, err := logic.CalculateFinalPrice(logic.PriceInput{
		BasePrice:      c.Float64("base"),
		MCD:            cfg.MCD,
		RCD:            cfg.RCD,
		CustomerSpend:  c.Float64("spend"),
		CustomerVisits: c.Float64("visits"),
	})
	if err != nil {
		return err
	}
	if c.Bool("round") {
		breakdown.MCDPrice = logic.RoundCents(breakdown.MCDPrice)
		breakdown.RCDPrice = logic.RoundCents(breakdown.RCDPrice)
		breakdown.Discount = logic.RoundCents(breakdown.Discount)
	}
	return writeJSON(c.App.Writer, breakdown)
}

func validateAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, cfg.Normalize())
}

// loadConfig decodes TOML for .toml files and JSON otherwise.
func loadConfig(path string) (*logic.PricingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg logic.PricingConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("decode toml config: %w", err)
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode json config: %w", err)
	}
	return &cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
