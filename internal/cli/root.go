package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	envFile string
	verbose bool
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tenders",
	Short: "Assam tenders - incremental procurement loader and river attribution",
	Long: `Tenders loads weekly public-procurement exports into a relational store
and resolves which tenders concern flood management and which river each
one names.

Loading is incremental: rows already persisted are skipped, so the same
export can be loaded any number of times.

Resolution recomputes relevance over every persisted tender, grows the
canonical river vocabulary (names are never renamed or removed) and
rebuilds the tender to river links.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of tenders.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tenders %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tenders/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with DB_HOST, DB_NAME, DB_USER, DB_PASS")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the dotenv file, config file and ENV variables
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", envFile, err)
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".tenders"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := configureViper(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers every default so env variables can override
// nested keys, e.g. TENDERS_DATABASE_HOST or TENDERS_CANONICAL_THRESHOLD
func configureViper(v *viper.Viper) error {
	// Read in environment variables that match TENDERS_*
	v.SetEnvPrefix("TENDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the deployment's dotenv names
	_ = v.BindEnv("database.host", "TENDERS_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.name", "TENDERS_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.user", "TENDERS_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "TENDERS_DATABASE_PASSWORD", "DB_PASS")

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", defaults)

	// omitted from the marshalled defaults when empty
	for _, key := range []string{"database.dsn", "database.password", "logging.file", "metrics.push_url"} {
		v.SetDefault(key, "")
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, value)
	}
}

// loadConfig resolves defaults, config file, env and flags into a validated config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
