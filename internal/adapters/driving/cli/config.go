package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/ai"
	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Settings live in config.toml under the configuration directory.
Environment variables (TOPICSEEK_INDEX_CHUNK_SIZE and so on) override the
file for a single run without being saved.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Save a setting to the configuration file.

Examples:
  topicseek config set embedding.provider ollama
  topicseek config set index.chunk_size 800
  topicseek config set retrieval.summaries false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the AI providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNoSettings
		}
		cmd.Println(settingsService.Path())
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every setting key",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.KnownKeys() {
			cmd.Println(k)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configCheckCmd, configPathCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

// loadSettings returns settings even when they fail validation so that
// they can still be inspected and fixed.
func loadSettings(cmd *cobra.Command) (domain.Settings, error) {
	if settingsService == nil {
		return domain.Settings{}, errNoSettings
	}
	settings, err := settingsService.Get()
	if err != nil {
		if !errors.Is(err, domain.ErrConfigInvalid) {
			return settings, err
		}
		cmd.PrintErrln(warningStyle.Render("Warning: " + err.Error()))
	}
	return settings, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	values := services.SettingsValues(settings)
	cmd.Println(titleStyle.Render("Configuration"))
	cmd.Println(mutedStyle.Render(settingsService.Path()))
	cmd.Println()

	section := ""
	for _, key := range services.KnownKeys() {
		prefix, _, _ := strings.Cut(key, ".")
		if prefix != section {
			if section != "" {
				cmd.Println()
			}
			section = prefix
			cmd.Println(headingStyle.Render(prefix))
		}
		cmd.Printf("  %-34s %s\n", key, displayValue(key, values[key]))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !services.IsKnownKey(key) {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cmd.Println(displayValue(key, services.SettingsValues(settings)[key]))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	key, raw := args[0], args[1]
	if err := settingsService.Set(key, parseValue(raw)); err != nil {
		return err
	}
	cmd.Printf("%s %s = %s\n", statusMark(true), key, displayValue(key, raw))
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	check := checkAI
	if check == nil {
		check = func(ctx context.Context, s domain.Settings) []ai.Check {
			return ai.NewConfigValidator(ctx).ValidateAll(s)
		}
	}

	failed := false
	for _, c := range check(commandContext(cmd), settings) {
		switch {
		case !c.Configured:
			cmd.Printf("%s %-10s %s\n", warningStyle.Render("-"), c.Name, mutedStyle.Render("not configured"))
			if c.Name == "embedding" {
				failed = true
			}
		case c.Err != nil:
			failed = true
			cmd.Printf("%s %-10s %s %s\n", statusMark(false), c.Name, c.Model, errorStyle.Render(c.Err.Error()))
		default:
			cmd.Printf("%s %-10s %s\n", statusMark(true), c.Name, c.Model)
		}
	}
	if failed {
		return fmt.Errorf("%w: run 'topicseek config set' to fix", domain.ErrConfigInvalid)
	}
	return nil
}

// parseValue converts a command-line value to the narrowest type it fits.
func parseValue(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func displayValue(key string, v any) string {
	s := fmt.Sprint(v)
	if services.IsSecretKey(key) {
		if s == "" {
			return mutedStyle.Render("(not set)")
		}
		return maskSecret(s)
	}
	if s == "" {
		return mutedStyle.Render("(not set)")
	}
	return s
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
