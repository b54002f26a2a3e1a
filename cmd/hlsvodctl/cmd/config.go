package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hlsvod/originserver/internal/config"
	"github.com/hlsvod/originserver/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

Configuration can be set via:
  - Config file (config.yaml, /etc/hlsvod/config.yaml, $HOME/.hlsvod/config.yaml)
  - Environment variables (HLSVOD_REGISTRY_INACTIVITY_TTL, HLSVOD_CACHE_MAX_BYTES, etc.)
  - Command-line flags (log level/format only)

Environment variables use the HLSVOD_ prefix and underscores for nesting.
Example: cache.max_bytes -> HLSVOD_CACHE_MAX_BYTES`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and byte sizes
// for human readability the way the config file itself accepts them.
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

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(fv)
		case config.ByteSize:
			result[key] = fv.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = fv
			}
		}
	}
	return result
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfgMap := toMap(cfg)
	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# hlsvodctl configuration file")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d. Size format: 5MB, 1GB.")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides use the HLSVOD_ prefix, e.g.")
	fmt.Println("#   HLSVOD_FFMPEG_FFPROBE_PATH, HLSVOD_REGISTRY_INACTIVITY_TTL")
	fmt.Println("#   HLSVOD_CACHE_MAX_BYTES, HLSVOD_LOGGING_LEVEL")
	fmt.Println()
	fmt.Print(string(yamlData))

	return nil
}
