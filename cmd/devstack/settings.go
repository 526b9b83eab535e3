// File: cmd/devstack/settings.go
// Brief: Fills unset flags from DEVSTACK_* variables and the config file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix    = "DEVSTACK"
	configEnvVar = "DEVSTACK_CONFIG"
)

// applySettings runs before every command. Flags given on the command line
// win; otherwise DEVSTACK_<FLAG> and then the config file key <flag> apply.
// Slice flags (enable, mode) accept YAML lists.
func applySettings(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := readSettingsFile(v, os.Getenv(configEnvVar)); err != nil {
		return err
	}

	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := setFlag(v, f); err != nil {
			errs = append(errs, fmt.Errorf("setting %q: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func setFlag(v *viper.Viper, f *pflag.Flag) error {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.Replace(v.GetStringSlice(f.Name))
	}
	val := v.GetString(f.Name)
	if val == "" {
		return nil
	}
	return f.Value.Set(val)
}

// readSettingsFile loads explicit (which must exist) or the first config.*
// found in the search directories.
func readSettingsFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		return v.ReadInConfig()
	}
	v.SetConfigName("config")
	for _, dir := range settingsDirs() {
		v.AddConfigPath(dir)
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func settingsDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "devstack"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		for _, dir := range []string{filepath.Join(home, ".config", "devstack"), filepath.Join(home, ".devstack")} {
			if len(dirs) == 0 || dirs[0] != dir {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
