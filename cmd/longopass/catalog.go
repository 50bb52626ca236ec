package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/longopass/internal/catalog"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the SQL product catalog",
	}
	cmd.AddCommand(newCatalogListCmd(a), newCatalogAddCmd(a), newCatalogFindCmd(a))
	return cmd
}

func newCatalogListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog products by supplement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			rows, err := store.ListProducts(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SUPPLEMENT\tID\tNAME\tPRICE\tSTOCK")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f %s\t%d\n", r.Supplement, r.ID, r.Name, r.Price, r.Currency, r.Stock)
			}
			return tw.Flush()
		},
	}
}

func newCatalogAddCmd(a *app) *cobra.Command {
	var (
		supplement string
		aliases    []string
		p          catalog.Product
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product for a supplement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.AddProduct(cmd.Context(), supplement, aliases, &p); err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}

	f := cmd.Flags()
	f.StringVar(&supplement, "supplement", "", "Supplement the product is offered for")
	f.StringSliceVar(&aliases, "alias", nil, "Other names of the supplement (repeatable)")
	f.StringVar(&p.Name, "name", "", "Product name")
	f.Float64Var(&p.Price, "price", 0, "Price")
	f.StringVar(&p.Currency, "currency", "TRY", "Currency")
	f.StringVar(&p.Image, "image", "", "Image URL")
	f.StringVar(&p.Description, "description", "", "Description")
	f.StringVar(&p.Category, "category", "", "Category")
	f.IntVar(&p.Stock, "stock", 0, "Units in stock")
	f.StringVar(&p.URL, "url", "", "Product page URL")
	_ = cmd.MarkFlagRequired("supplement")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCatalogFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <supplement>",
		Short: "Show the products the configured catalog matches for a supplement name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, closeCatalog, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer closeCatalog()

			products, err := cat.FindProducts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(products)
		},
	}
}
