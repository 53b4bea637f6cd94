package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/mongo-bridge/mongo"
	"github.com/wippyai/mongo-bridge/runtime"
)

func newFetchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the engine binary into the cache and print its path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			path, err := runtime.Fetch(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newDatabasesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			names, err := client.ListDatabases(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), names)
		},
	}
}

func newCollectionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "collections <database>",
		Short: "List collections in a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			names, err := client.Database(args[0]).ListCollectionNames(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), names)
		},
	}
}

func newFindCmd(g *globals) *cobra.Command {
	var (
		filter, sort, projection string
		skip, limit              int64
	)
	cmd := &cobra.Command{
		Use:   "find <database> <collection>",
		Short: "Find documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDocument("filter", filter)
			if err != nil {
				return err
			}
			opts := &mongo.FindOptions{Skip: skip, Limit: limit}
			if sort != "" {
				if opts.Sort, err = parseDocument("sort", sort); err != nil {
					return err
				}
			}
			if projection != "" {
				if opts.Projection, err = parseDocument("projection", projection); err != nil {
					return err
				}
			}

			client, done, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			docs, err := client.Database(args[0]).Collection(args[1]).Find(cmd.Context(), f, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "query filter as JSON")
	cmd.Flags().StringVar(&sort, "sort", "", "sort document as JSON")
	cmd.Flags().StringVar(&projection, "projection", "", "projection document as JSON")
	cmd.Flags().Int64Var(&skip, "skip", 0, "documents to skip")
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum documents to return")
	return cmd
}

func newCountCmd(g *globals) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "count <database> <collection>",
		Short: "Count documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDocument("filter", filter)
			if err != nil {
				return err
			}
			client, done, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			n, err := client.Database(args[0]).Collection(args[1]).Count(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "query filter as JSON")
	return cmd
}

func newInsertCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <database> <collection> <document|array>",
		Short: "Insert one document, or many when given a JSON array",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDocument("document", args[2])
			if err != nil {
				return err
			}
			client, done, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			coll := client.Database(args[0]).Collection(args[1])
			if docs, ok := doc.([]any); ok {
				ids, err := coll.InsertMany(cmd.Context(), docs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ids)
			}
			id, err := coll.InsertOne(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
}
