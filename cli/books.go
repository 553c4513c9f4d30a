package cli

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"practicelab/state"
	"practicelab/table"
)

func booksCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage books on the mock server",
	}

	var q table.Query
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List books",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			books, err := opts.client().Books(ctx)
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}

			out := cmd.OutOrStdout()
			page := table.Apply(books, q, bookFields)
			if page.Total == 0 {
				infoColor.Fprintln(out, "📝 No books found")
				return nil
			}
			printBooks(cmd, page.Rows)
			subtleColor.Fprintf(out, "Page %d of %d (%d books)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	bindQueryFlags(listCmd, &q)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			book, err := opts.client().Book(ctx, id)
			if err != nil {
				return fmt.Errorf("get book %d: %w", id, err)
			}
			printBooks(cmd, []state.Book{book})
			return nil
		},
	}

	var in state.BookInput
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Title == "" {
				if err := survey.AskOne(&survey.Input{Message: "Title:"}, &in.Title, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			if in.Author == "" {
				if err := survey.AskOne(&survey.Input{Message: "Author:"}, &in.Author, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()
			book, err := opts.client().AddBook(ctx, in)
			if err != nil {
				return fmt.Errorf("add book: %w", err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Added book %d: %s by %s\n", book.ID, book.Title, book.Author)
			return nil
		},
	}
	bookFlags(addCmd, &in.Title, &in.Author, &in.ISBN)

	var title, author, isbn string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch state.BookPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("author") {
				patch.Author = &author
			}
			if cmd.Flags().Changed("isbn") {
				patch.ISBN = &isbn
			}
			if patch == (state.BookPatch{}) {
				return fmt.Errorf("nothing to update: pass --title, --author or --isbn")
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()
			book, err := opts.client().UpdateBook(ctx, id, patch)
			if err != nil {
				return fmt.Errorf("update book %d: %w", id, err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Updated book %d\n", book.ID)
			printBooks(cmd, []state.Book{book})
			return nil
		},
	}
	bookFlags(updateCmd, &title, &author, &isbn)

	var yes bool
	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a book",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				confirm := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete book %d?", id)}
				if err := survey.AskOne(prompt, &confirm); err != nil || !confirm {
					infoColor.Fprintln(cmd.OutOrStdout(), "❌ Deletion cancelled")
					return nil
				}
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()
			book, err := opts.client().DeleteBook(ctx, id)
			if err != nil {
				return fmt.Errorf("delete book %d: %w", id, err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Deleted book %d: %s\n", book.ID, book.Title)
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(listCmd, getCmd, addCmd, updateCmd, deleteCmd)
	return cmd
}

func bookFlags(cmd *cobra.Command, title, author, isbn *string) {
	cmd.Flags().StringVar(title, "title", "", "Book title")
	cmd.Flags().StringVar(author, "author", "", "Book author")
	cmd.Flags().StringVar(isbn, "isbn", "", "Book ISBN")
}

func bookFields(b state.Book) map[string]any {
	return map[string]any{
		"id":     b.ID,
		"title":  b.Title,
		"author": b.Author,
		"isbn":   b.ISBN,
	}
}

func printBooks(cmd *cobra.Command, books []state.Book) {
	t := newTable(cmd.OutOrStdout(), "ID", "Title", "Author", "ISBN")
	for _, b := range books {
		t.Append(strconv.Itoa(b.ID), truncate(b.Title, 40), b.Author, b.ISBN)
	}
	t.Render()
}
