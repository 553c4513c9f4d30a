package cli

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"practicelab/state"
	"practicelab/table"
)

func productsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the product catalog",
	}

	var q table.Query
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List products",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			products, err := opts.client().Products(ctx)
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}

			out := cmd.OutOrStdout()
			page := table.Apply(products, q, productFields)
			t := newTable(out, "ID", "Name", "Price", "Category", "Brand")
			for _, p := range page.Rows {
				t.Append(strconv.Itoa(p.ID), p.Name, strconv.Itoa(p.Price), p.Category, p.Brand)
			}
			t.Render()
			subtleColor.Fprintf(out, "Page %d of %d (%d products)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	bindQueryFlags(listCmd, &q)

	cmd.AddCommand(listCmd)
	return cmd
}

func productFields(p state.Product) map[string]any {
	return map[string]any{
		"id":       p.ID,
		"name":     p.Name,
		"price":    p.Price,
		"category": p.Category,
		"brand":    p.Brand,
	}
}

func loginCommand(opts *Options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Check a user's credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var email string
			if len(args) > 0 {
				email = args[0]
			} else if err := survey.AskOne(&survey.Input{Message: "Email:"}, &email, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
			if password == "" {
				if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()
			user, err := opts.client().Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Logged in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func orderCommand(opts *Options) *cobra.Command {
	var productID, quantity int
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			c := opts.client()

			if productID == 0 {
				products, err := c.Products(ctx)
				if err != nil {
					return fmt.Errorf("list products: %w", err)
				}
				options := make([]string, len(products))
				for i, p := range products {
					options[i] = fmt.Sprintf("%d - %s (%d)", p.ID, p.Name, p.Price)
				}
				var idx int
				if err := survey.AskOne(&survey.Select{Message: "Product:", Options: options}, &idx); err != nil {
					return err
				}
				productID = products[idx].ID
			}
			if quantity == 0 {
				var s string
				if err := survey.AskOne(&survey.Input{Message: "Quantity:", Default: "1"}, &s, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
				n, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("invalid quantity %q", s)
				}
				quantity = n
			}

			order, err := c.CreateOrder(ctx, productID, quantity)
			if err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			out := cmd.OutOrStdout()
			successColor.Fprintln(out, "✅ Order created")
			infoColor.Fprintf(out, "   ID: %d\n", order.ID)
			infoColor.Fprintf(out, "   Product: %s x%d\n", order.Product, order.Quantity)
			infoColor.Fprintf(out, "   Total: %d\n", order.TotalPrice)
			return nil
		},
	}
	cmd.Flags().IntVar(&productID, "product", 0, "Product id (prompted when omitted)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 0, "Quantity (prompted when omitted)")
	return cmd
}

func bindQueryFlags(cmd *cobra.Command, q *table.Query) {
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Only rows where any column contains this text")
	cmd.Flags().StringVar(&q.SortKey, "sort", "", "Column to sort by")
	cmd.Flags().BoolVar(&q.Desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", table.DefaultPerPage, "Rows per page")
}
