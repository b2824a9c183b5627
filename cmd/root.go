/*
Copyright © 2024 Jake Rogers <code@supportoss.org>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/JakeTRogers/hpoBuddy/filter"
	"github.com/JakeTRogers/hpoBuddy/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	colorEnabled               bool
	searchTerm                 string
	cfg                        settings
	appFs                      = afero.NewOsFs()
	v                          = viper.New()
	l                          = logger.GetLogger()
	replaceHyphenWithCamelCase = false
)

const configName = ".hpoBuddy"

// configDir returns the directory holding the config file and, by default, the filter file.
func configDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

// initializeConfig initializes the configuration for the root command.
// It loads a .env file from the working directory if present, reads the config file if it exists,
// creates a new config file if it doesn't exist, and binds command flags to environment variables.
func initializeConfig(cmd *cobra.Command) error {
	verboseCount, _ := cmd.Flags().GetCount("verbose")
	logger.SetLogLevel(verboseCount)

	// .env is optional; S3 credentials commonly live there
	if err := godotenv.Load(); err == nil {
		l.Debug().Msg("loaded .env")
	}

	v.SetConfigName(configName)
	configType := "yaml"
	v.SetConfigType(configType)
	configPath := configDir()
	l.Debug().Str("configPath", configPath).Send()
	v.AddConfigPath(configPath)

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Create config file if it doesn't exist
			if err := v.SafeWriteConfig(); err != nil {
				l.Error().Err(err).Send()
			}
			l.Info().Str("configFile", filepath.Join(configPath, configName+"."+configType)).Msg("New config file created:")
		} else {
			// Config file was found but another error was produced
			l.Error().Str("viper", err.Error()).Send()
		}
	}

	// Flags bind to prefixed environment variables, e.g. --filter-file binds to HPOBUDDY_FILTER_FILE.
	v.SetEnvPrefix("HPOBUDDY")

	// Environment variables can't have dashes in them, so bind them to their equivalent keys with underscores
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Bind the current command's flags to viper
	bindFlags(cmd, v)

	return nil
}

// bindFlags binds the command flags to the corresponding values in the viper configuration.
// It iterates over each flag, determines the naming convention of the flag in the config file,
// and applies the corresponding value from the viper configuration to the flag if it is not already set.
// If the value is an array, it loops through each element and adds it to the flag.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Determine the naming convention of the flags when represented in the config file
		configName := f.Name
		// Viper compares case-insensitively, so camelCase only needs the hyphens removed.
		if replaceHyphenWithCamelCase {
			configName = strings.ReplaceAll(f.Name, "-", "")
		}

		l.Trace().Str("flag", f.Name).Str("configName", configName).Msg("Binding flag to viper config:")
		if f.Changed || !v.IsSet(configName) {
			return
		}

		var values []string
		switch val := v.Get(configName).(type) {
		case []interface{}:
			for _, item := range val {
				values = append(values, fmt.Sprintf("%v", item))
			}
		case []string:
			values = val
		default:
			values = []string{fmt.Sprintf("%v", val)}
		}
		for _, value := range values {
			if err := cmd.Flags().Set(f.Name, value); err != nil {
				l.Error().Str("viper", err.Error()).Send()
			}
		}
	})
}

// savePreferences writes the data settings back to the config file so later runs reuse them.
func savePreferences(v *viper.Viper) {
	v.Set("source", cfg.source)
	v.Set("chunk", cfg.chunks)
	v.Set("delimiter", cfg.delimiter)
	v.Set("filter-format", cfg.filterFormat)
	v.Set("color", colorEnabled)
	if err := v.WriteConfig(); err != nil {
		l.Error().Str("viper", err.Error()).Send()
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "hpoBuddy",
	Version: "v0.1.0",
	Short:   "Browse and select Human Phenotype Ontology terms",
	Long: `hpoBuddy loads the Human Phenotype Ontology (HPO) term table and lets you pick phenotypes from its
hierarchy. Selecting a term selects everything beneath it. The selection is written to a filter file that other
tools read, either as "{id} - {label}" entries joined by commas or as a JSON array of ids.

Without a subcommand hpoBuddy prints the current selection. With --search it prints the part of the hierarchy
matching the term, along with the ancestors of every match.

Settings are remembered in a configuration file:

  - Linux/Mac: $HOME/.config/.hpoBuddy.yaml
  - Windows: %APPDATA%\.hpoBuddy.yaml

Every setting can also be given as an environment variable prefixed with HPOBUDDY_, e.g. HPOBUDDY_SOURCE. A .env file
in the working directory is loaded first.

Examples:

  # Load the table from two local chunks and show the current selection:
  $ hpoBuddy --source ./data --chunk hpo-1.csv --chunk hpo-2.csv

  # Show every term matching "cleft", with its ancestors:
  $ hpoBuddy --search cleft

  # Read the table from S3 and write the filter as a JSON array:
  $ hpoBuddy --source s3://phenotypes/hpo --filter-format array

  # Pick phenotypes interactively:
  $ hpoBuddy browse`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// bind cobra and viper
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		for k, v := range v.AllSettings() {
			l.Debug().Str(k, fmt.Sprintf("%v", v)).Msg("viper:")
		}

		tree, err := cfg.loadTree(cmd.Context())
		if err != nil {
			l.Error().Stack().Err(err).Msg("loading phenotype data")
			return err
		}
		ch, _, err := cfg.channel()
		if err != nil {
			return err
		}
		restoreSelection(tree, ch)
		savePreferences(v)

		if searchTerm != "" {
			tree.SetSearch(searchTerm)
			printSearchTable(cmd.OutOrStdout(), tree, colorEnabled)
			return nil
		}
		printSelectionTable(cmd.OutOrStdout(), tree, colorEnabled)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "hpoBuddy %s\n" .Version}}`)
	rootCmd.PersistentFlags().CountP("verbose", "v", "``increase logging verbosity, 1=warn, 2=info, 3=debug, 4=trace")
	rootCmd.PersistentFlags().BoolVarP(&colorEnabled, "color", "c", false, "enable colorized table output. If previously enabled, use --color=false to disable it.")
	rootCmd.PersistentFlags().StringVarP(&cfg.source, "source", "s", "data", "``location of the term table: a directory, an http(s) URL, or s3://bucket/prefix")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.chunks, "chunk", []string{"hpo.csv"}, "``name of a table chunk under the source. Can be used multiple times; chunks are joined in order.")
	rootCmd.PersistentFlags().StringVar(&cfg.delimiter, "delimiter", ",", "``field delimiter of the table. Use \"tab\" for tab separated data.")
	rootCmd.PersistentFlags().StringVarP(&cfg.filterFile, "filter-file", "f", "", "``file holding the "+filter.DefaultName+" value. Defaults to the config directory.")
	rootCmd.PersistentFlags().StringVar(&cfg.filterFormat, "filter-format", string(filter.ModeString), "``representation written to the filter file: string or array")
	rootCmd.PersistentFlags().StringVar(&cfg.s3.Endpoint, "s3-endpoint", "", "``S3 endpoint used for s3:// sources. Defaults to s3.amazonaws.com.")
	rootCmd.PersistentFlags().StringVar(&cfg.s3.AccessKey, "s3-access-key", "", "``S3 access key")
	rootCmd.PersistentFlags().StringVar(&cfg.s3.SecretKey, "s3-secret-key", "", "``S3 secret key")
	rootCmd.PersistentFlags().StringVar(&cfg.s3.Region, "s3-region", "", "``S3 region. Defaults to us-east-1.")
	rootCmd.PersistentFlags().BoolVar(&cfg.s3.UseSSL, "s3-ssl", true, "use TLS for the S3 endpoint")
	rootCmd.Flags().StringVarP(&searchTerm, "search", "q", "", "``print the terms matching this text instead of the selection")

	err := rootCmd.RegisterFlagCompletionFunc("filter-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(filter.ModeString), string(filter.ModeArray)}, cobra.ShellCompDirectiveNoFileComp
	})
	if err != nil {
		l.Error().Err(err).Send()
	}

	rootCmd.AddCommand(NewBrowseCmd(v))
	rootCmd.AddCommand(NewSelectCmd(v))
}
