package cli

import (
	"fmt"
	"io"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the campusbot config file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return configGet(cmd.OutOrStdout(), paths.Config, args[0])
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long:  "Set a configuration value. The edited file must still validate; a running gateway picks the change up on restart.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := parseValue(args[1])
				err := editConfig(paths.Config, args[0], func(raw map[string]any, path []string) error {
					config.SetValueAtPath(raw, path, value)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a configuration value so its default applies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				err := editConfig(paths.Config, args[0], func(raw map[string]any, path []string) error {
					if !config.UnsetValueAtPath(raw, path) {
						return fmt.Errorf("key %q not found", args[0])
					}
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s unset\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
			},
		},
	)

	return cmd
}

func configGet(w io.Writer, file, key string) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(file)
	if err != nil {
		return err
	}
	val, ok := config.GetValueAtPath(raw, path)
	if !ok {
		return fmt.Errorf("key %q not found", key)
	}

	switch val.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		_, err = fmt.Fprintln(w, val)
		return err
	}
}

// editConfig applies edit to the file's raw map and writes it back only
// when the result still loads into a valid config.
func editConfig(file, key string, edit func(raw map[string]any, path []string) error) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(file)
	if err != nil {
		return err
	}
	if err := edit(raw, path); err != nil {
		return err
	}
	if err := config.CheckRaw(raw); err != nil {
		return fmt.Errorf("refusing to write %s: %w", key, err)
	}
	return config.SaveRaw(file, raw)
}

// parseValue reads a command-line value as a YAML scalar, so "18790"
// becomes an int and "true" a bool. Anything else stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	switch v.(type) {
	case map[string]any, []any:
		return s
	}
	return v
}
