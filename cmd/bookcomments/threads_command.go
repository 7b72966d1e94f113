package main

import (
	"context"
	"fmt"

	"bookcomments/internal/app"
	"bookcomments/internal/model"
	"bookcomments/internal/service"
	"bookcomments/pkg/pagination"

	"github.com/spf13/cobra"
)

func newThreadsCommand(ctx *commandContext) *cobra.Command {
	var asTable bool

	cmd := &cobra.Command{
		Use:   "threads <bookID>",
		Short: "Print the comment threads of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			threads, err := allThreads(cmd.Context(), a.Service(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(threads) == 0 {
				fmt.Fprintln(out, "No comments yet.")
				return nil
			}
			if asTable {
				fmt.Fprintln(out, renderThreadTable(threads))
			} else {
				fmt.Fprintln(out, renderThreadList(threads))
			}
			fmt.Fprintln(out, summary(threads))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asTable, "table", false, "Show a flat table instead of a tree")
	return cmd
}

type threadLister interface {
	GetThreads(ctx context.Context, bookID string, in pagination.PageRequest) (pagination.Page[model.Thread], error)
}

// allThreads walks every page of the book's threads, newest first.
func allThreads(ctx context.Context, svc threadLister, bookID string) ([]model.Thread, error) {
	var (
		out []model.Thread
		req = pagination.PageRequest{Limit: service.MaxThreadsLimit}
	)
	for {
		page, err := svc.GetThreads(ctx, bookID, req)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if !page.HasNextPage {
			return out, nil
		}
		req.AfterCursor = page.EndCursor
	}
}
