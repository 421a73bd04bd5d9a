package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobmate/aggregator-service/internal/pipeline"
	"jobmate/aggregator-service/internal/store"
)

func newScrapeCmd() *cobra.Command {
	var (
		query  string
		sample int
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one aggregation cycle and print the newest stored jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.runner.Run(cmd.Context(), query)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Message)
			if res.Err != nil {
				return res.Err
			}
			if sample <= 0 {
				return nil
			}

			jobs, err := a.repo.Search(cmd.Context(), store.Filter{Limit: sample})
			if err != nil {
				return err
			}
			for _, j := range jobs {
				fmt.Fprintf(out, "%s | %s | %s | %s\n",
					j.PublicationDate.Format("2006-01-02"), j.Source, j.Title, j.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", pipeline.DefaultQuery, "search term")
	cmd.Flags().IntVar(&sample, "sample", 5, "number of stored jobs to print afterwards")
	return cmd
}
