package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/postgres"
)

// seedFile формат products.yaml
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	SKU          string `yaml:"sku"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
	Manufacturer string `yaml:"manufacturer"`
	Unit         string `yaml:"unit"`
	Price        string `yaml:"price"`
	Stock        int    `yaml:"stock"`
	Active       *bool  `yaml:"active"`
}

// parseSeed читает и проверяет YAML; ошибки указывают номер позиции
func parseSeed(r io.Reader) ([]repository.Product, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	seen := make(map[string]bool, len(f.Products))
	out := make([]repository.Product, 0, len(f.Products))
	for i, p := range f.Products {
		sku := strings.TrimSpace(p.SKU)
		if sku == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("products[%d]: sku and name are required", i)
		}
		if seen[sku] {
			return nil, fmt.Errorf("products[%d]: duplicate sku %q", i, sku)
		}
		seen[sku] = true

		price, err := decimal.NewFromString(p.Price)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("products[%d]: price must be a positive decimal", i)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("products[%d]: stock must not be negative", i)
		}

		active := true
		if p.Active != nil {
			active = *p.Active
		}
		out = append(out, repository.Product{
			ID:           uuid.NewString(),
			SKU:          sku,
			Name:         strings.TrimSpace(p.Name),
			Description:  p.Description,
			Category:     p.Category,
			Manufacturer: p.Manufacturer,
			Unit:         p.Unit,
			Price:        price.Round(2),
			Stock:        p.Stock,
			Active:       active,
		})
	}
	return out, nil
}

// seedProducts upsert по SKU; события и realtime не публикуются
func seedProducts(ctx context.Context, repo repository.ProductRepository, products []repository.Product) (created, updated int, err error) {
	for _, p := range products {
		isNew, err := repo.UpsertBySKU(ctx, p)
		if err != nil {
			return created, updated, fmt.Errorf("upsert %s: %w", p.SKU, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func newSeedCmd(c *cli) *cobra.Command {
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	var file string
	products := &cobra.Command{
		Use:   "products",
		Short: "Upsert catalog products from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			items, err := parseSeed(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			pool, err := pgxpool.New(cmd.Context(), c.dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			created, updated, err := seedProducts(cmd.Context(), postgres.NewProductRepository(pool), items)
			if err != nil {
				return err
			}
			c.logger.Info("products seeded",
				zap.String("file", file),
				zap.Int("created", created),
				zap.Int("updated", updated),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "created=%d updated=%d\n", created, updated)
			return nil
		},
	}
	products.Flags().StringVar(&file, "file", "products.yaml", "YAML file with products")
	_ = products.MarkFlagRequired("file")

	seed.AddCommand(products)
	return seed
}
