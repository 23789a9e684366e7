// Command datalanding lands tabular files and query results in buckets, directories and tables,
// and lists what is stored there.
package main

import (
	"fmt"
	"os"

	"datalanding/config"
	"datalanding/utils"

	"github.com/spf13/cobra"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

// options are the global command-line flags.
type options struct {
	configFile string
	args       config.Config

	jsonLogs    bool
	devLogs     bool
	verboseLogs bool
	traceLogs   bool
	jsonOutput  bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:           "datalanding",
	Short:         "Land datasets in buckets, directories and tables",
	Long:          "datalanding uploads CSV, JSON and Parquet datasets to S3-compatible buckets, mounted directories or PostgreSQL tables, and lists storage locations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// the logger initialization should happen first of all
		utils.InitLogger(opts.jsonLogs, opts.devLogs, opts.verboseLogs, opts.traceLogs)
		_, err := config.Init(&opts.args, opts.configFile)
		return err
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")

	flags.BoolVar(&opts.jsonLogs, "json-logs", false, "Enable production JSON-formatted logs")
	flags.BoolVar(&opts.devLogs, "dev-logs", false, "Enable development logs formatting with time stamps and source files")
	flags.BoolVarP(&opts.verboseLogs, "verbose", "v", false, "Enable verbose DEBUG-level logging")
	flags.BoolVar(&opts.traceLogs, "trace", false, "Enable TRACE-level logging of every object, row and directory entry")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON instead of tables")

	args := &opts.args
	flags.StringVar(&args.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL (empty for AWS)")
	flags.StringVar(&args.S3Region, "s3-region", "", "S3 region (default 'us-east-1')")
	flags.StringVar(&args.S3AccessKey, "s3-access-key", "", "S3 access key")
	flags.StringVar(&args.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	flags.StringVar(&args.S3CredentialsFile, "s3-credentials-file", "", "Shared credentials file")
	flags.StringVar(&args.S3Profile, "s3-profile", "", "Profile in the shared credentials file")
	flags.StringVar(&args.S3CABundle, "s3-ca-bundle", "", "PEM file with additional trusted certificate authorities")
	flags.BoolVar(&args.S3PathStyle, "s3-path-style", false, "Address buckets by path instead of virtual host")
	flags.DurationVar(&args.S3Timeout, "s3-timeout", 0, "Timeout of every S3 request (default 30s)")

	flags.StringVar(&args.MountRoot, "mount-root", "", "Directory where the allow-listed folders are mounted")
	flags.StringSliceVar(&args.AllowList, "allow", nil, "Directories that may be listed (default: the demo volume layout)")
	flags.StringVar(&args.TempDir, "temp-dir", "", "Directory for objects downloaded from buckets")

	flags.StringVar(&args.DBHost, "db-host", "", "Database host (default 'localhost')")
	flags.IntVar(&args.DBPort, "db-port", 0, "Database port (default 5432)")
	flags.StringVar(&args.DBName, "db-name", "", "Database name")
	flags.StringVar(&args.DBUser, "db-user", "", "Database username")
	flags.StringVar(&args.DBPassword, "db-password", "", "Database password")
	flags.StringVar(&args.DBSSLMode, "db-sslmode", "", "Database SSL mode (default 'disable')")

	rootCmd.AddCommand(newBucketsCommand())
	rootCmd.AddCommand(newObjectsCommand())
	rootCmd.AddCommand(newSummarizeCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newPutCommand())
	rootCmd.AddCommand(newQueryCommand())
}
