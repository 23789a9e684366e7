package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"datalanding/config"
	"datalanding/dataset"
	"datalanding/landing"
	"datalanding/posix"
	"datalanding/source"
	"datalanding/store"
	"datalanding/target"
	"datalanding/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStoreClient(ctx context.Context) (*store.Client, error) {
	return store.NewClient(ctx, config.GetConfig().StoreOptions())
}

func newBucketsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newStoreClient(cmd.Context())
			if err != nil {
				return err
			}
			buckets, err := client.ListBuckets(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), buckets)
			}
			printBuckets(cmd.OutOrStdout(), buckets)
			return nil
		},
	}
}

func newObjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "objects BUCKET",
		Short: "List the objects of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient(cmd.Context())
			if err != nil {
				return err
			}
			objects, err := client.ListObjects(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), objects)
			}
			printObjects(cmd.OutOrStdout(), objects)
			return nil
		},
	}
}

func newSummarizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize BUCKET [PREFIX]",
		Short: "Count the objects under a prefix and add up their sizes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient(cmd.Context())
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) > 1 {
				prefix = args[1]
			}
			summary, err := client.SummarizePrefix(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls PATH",
		Short: "List an allow-listed directory like ls -l",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			lister := posix.NewLister(cfg.MountRoot, cfg.AllowList)
			entries, err := lister.ListDirectory(args[0])
			if err != nil {
				return err
			}
			posix.SortByName(entries)
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			printListing(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

// landingFlags select the target and shape of the written dataset.
type landingFlags struct {
	bucket   string
	dir      string
	table    string
	name     string
	format   string
	drop     string
	mask     string
	flatten  bool
	truncate bool
}

func (f *landingFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.bucket, "bucket", "", "Land in this bucket (created when missing)")
	flags.StringVar(&f.dir, "dir", "", "Land in this directory under the mount root (not checked against the --allow list, which limits ls only)")
	flags.StringVar(&f.table, "table", "", "Land in this PostgreSQL table ([schema.]table, created when missing)")
	flags.StringVar(&f.name, "name", "", "Destination object or file name; the format extension is added when missing")
	flags.StringVar(&f.format, "format", string(dataset.CSV), "Output format: csv, json or parquet")
	flags.StringVar(&f.drop, "drop", "", "Comma-separated columns to remove")
	flags.StringVar(&f.mask, "mask", "", "Comma-separated columns to mask, keeping the first two characters")
	flags.BoolVar(&f.flatten, "flatten", false, "Store nested values as JSON text")
	flags.BoolVar(&f.truncate, "truncate", false, "Empty an existing --table before copying the rows")
	cmd.MarkFlagsMutuallyExclusive("bucket", "dir", "table")
	cmd.MarkFlagsOneRequired("bucket", "dir", "table")
}

func (f *landingFlags) target() landing.StorageTarget {
	switch {
	case f.bucket != "":
		return landing.Bucket{Name: f.bucket}
	case f.dir != "":
		return landing.Directory{Path: f.dir}
	case f.table != "":
		return landing.Table{Name: f.table}
	}
	return nil
}

// refines reports whether the flags change the columns or values of the dataset.
func (f *landingFlags) refines() bool {
	return f.drop != "" || f.mask != "" || f.flatten
}

// newLander sets up only the client the target needs. The returned function releases it.
func newLander(ctx context.Context, t landing.StorageTarget, truncate bool) (*landing.Lander, func(), error) {
	cfg := config.GetConfig()
	lander := &landing.Lander{}
	release := func() {}
	switch t.(type) {
	case landing.Bucket:
		client, err := store.NewClient(ctx, cfg.StoreOptions())
		if err != nil {
			return nil, nil, err
		}
		lander.Objects = client
	case landing.Directory:
		lander.Directories = posix.NewDirectoryWriter(cfg.MountRoot)
	case landing.Table:
		writer := target.NewDatabaseWriter(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPassword, cfg.DBSSLMode)
		writer.Truncate = truncate
		if err := writer.Connect(ctx); err != nil {
			return nil, nil, err
		}
		lander.Tables = writer
		release = writer.Close
	default:
		return nil, nil, fmt.Errorf("%w: %v", landing.ErrUnknownTarget, t)
	}
	return lander, release, nil
}

// land refines ds as the flags ask and writes it through a landing session.
func (f *landingFlags) land(cmd *cobra.Command, ds *dataset.Dataset, defaultName string) error {
	format, err := dataset.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if f.flatten {
		if ds, err = ds.Flatten(); err != nil {
			return err
		}
	}

	lander, release, err := newLander(cmd.Context(), f.target(), f.truncate)
	if err != nil {
		return err
	}
	defer release()

	session := landing.NewSession(lander, nil)
	session.SetSource(ds)
	session.RemoveColumns = utils.SplitList(f.drop)
	session.MaskColumns = utils.SplitList(f.mask)
	if len(session.RemoveColumns) > 0 || len(session.MaskColumns) > 0 {
		if err := session.Refine(); err != nil {
			return err
		}
	}
	session.Target = f.target()
	session.Format = format
	session.DestinationName = f.name
	if session.DestinationName == "" {
		session.DestinationName = defaultName
	}

	result, err := session.Save(cmd.Context())
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func newPutCommand() *cobra.Command {
	var flags landingFlags
	var input string
	cmd := &cobra.Command{
		Use:   "put --input FILE (--bucket NAME | --dir PATH | --table NAME)",
		Short: "Land a CSV, JSON or Parquet file",
		Long: "Land a CSV, JSON or Parquet file. The input is a local path or s3://bucket/key; " +
			"it is parsed, optionally refined and written in the requested format. " +
			"A Parquet file landed unchanged in a table is streamed row by row.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, relativePath, err := openInput(cmd.Context(), input)
			if err != nil {
				return err
			}
			if flags.table != "" && !flags.refines() && strings.EqualFold(filepath.Ext(relativePath), ".parquet") {
				return flags.stream(cmd, src, relativePath)
			}

			ds, err := source.Load(cmd.Context(), src, relativePath)
			if err != nil {
				return err
			}
			log.Info("Loaded dataset", zap.String("input", input), zap.Int("rows", ds.Len()), zap.Int("columns", ds.Width()))
			base := filepath.Base(input)
			return flags.land(cmd, ds, strings.TrimSuffix(base, filepath.Ext(base)))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file: a local path or s3://bucket/key")
	_ = cmd.MarkFlagRequired("input")
	flags.register(cmd)
	return cmd
}

// stream copies a Parquet file into the --table without loading it into memory.
func (f *landingFlags) stream(cmd *cobra.Command, src source.Source, relativePath string) error {
	file, err := src.GetFile(cmd.Context(), relativePath)
	if err != nil {
		return err
	}
	defer src.Dispose(file)

	table := landing.Table{Name: f.table}
	lander, release, err := newLander(cmd.Context(), table, f.truncate)
	if err != nil {
		return err
	}
	defer release()

	result, err := lander.StreamToTable(cmd.Context(), source.NewParquetReader(file, nil), table)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

// openInput resolves a local file or an object given as s3://bucket/key to a source and a path in it.
func openInput(ctx context.Context, input string) (source.Source, string, error) {
	cfg := config.GetConfig()
	if rest, ok := strings.CutPrefix(input, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || key == "" {
			return nil, "", fmt.Errorf("input %q must be s3://bucket/key", input)
		}
		client, err := store.NewClient(ctx, cfg.StoreOptions())
		if err != nil {
			return nil, "", err
		}
		return source.NewS3Source(client, bucket, cfg.TempDir), key, nil
	}
	local, err := source.NewLocalSource(filepath.Dir(input))
	if err != nil {
		return nil, "", err
	}
	return local, filepath.Base(input), nil
}

func newQueryCommand() *cobra.Command {
	var flags landingFlags
	cmd := &cobra.Command{
		Use:   "query SQL (--bucket NAME | --dir PATH | --table NAME)",
		Short: "Land the result of a SQL query against the configured PostgreSQL database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if !cfg.DBConfigured() {
				return fmt.Errorf("no database configured, use --db-name or PGDATABASE")
			}
			connectionString := target.NewDatabaseWriter(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser,
				cfg.DBPassword, cfg.DBSSLMode).ConnectionString
			querySource, err := source.OpenQuerySource(cmd.Context(), connectionString)
			if err != nil {
				return err
			}
			defer func() {
				if err := querySource.Close(); err != nil {
					log.Warn("Failed to close the database", zap.Error(err))
				}
			}()

			ds, err := querySource.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return flags.land(cmd, ds, "query")
		},
	}
	flags.register(cmd)
	return cmd
}
