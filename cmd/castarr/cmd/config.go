package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/castarr/internal/config"
	"github.com/jmylchreest/castarr/pkg/bytesize"
	"github.com/jmylchreest/castarr/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing castarr configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration values in YAML format.

This shows all available configuration options with their current values.
You can redirect this output to a file to create a configuration template:

  castarr config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml in ., ./configs, /etc/castarr, $HOME/.castarr)
  - Environment variables (CASTARR_SERVER_PORT, CASTARR_DATABASE_DSN, etc.)
  - Command-line flags (for some options)

Environment variables use the CASTARR_ prefix and underscores for nesting.
Example: server.port -> CASTARR_SERVER_PORT`,
	RunE: runConfigDump,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check it for errors.

Exits non-zero and prints the first validation failure when the effective
configuration is invalid.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
	configCmd.AddCommand(configValidateCmd)
}

// toMap converts a config struct to a map, formatting durations and sizes
// for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = strings.ToLower(fieldType.Name)
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		case bytesize.Size:
			result[key] = bytesize.Format(v)
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# castarr Configuration File")
	fmt.Println("# ==========================")
	fmt.Println("#")
	fmt.Println("# All values shown below reflect the current effective configuration.")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d")
	fmt.Println("# Size format: 5MB, 1GB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   CASTARR_SERVER_HOST, CASTARR_SERVER_PORT")
	fmt.Println("#   CASTARR_DATABASE_DRIVER, CASTARR_DATABASE_DSN")
	fmt.Println("#   CASTARR_STREAMING_SEGMENT_DIR, CASTARR_GUIDE_DAYS")
	fmt.Println("#   CASTARR_LOGGING_LEVEL, CASTARR_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("configuration OK (server %s, database %s, data dir %s)\n",
		cfg.Server.Address(), cfg.Database.Driver, cfg.DataDir)
	return nil
}
