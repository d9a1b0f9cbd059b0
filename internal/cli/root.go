// Package cli implements tonectl, the operator tool for toneai.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// set by the linker
var (
	version = "dev"
	commit  = "unknown"
)

// NewRootCmd builds the tonectl command tree. Values not given as flags
// come from the server config file (--config) or TONEAI_* env vars.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "tonectl",
		Short: "Operator tool for the toneai server",
		Long: `tonectl signs user ids, issues identity tokens, inspects a toneai
database and replays reveal gestures against stored conversations.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}
	// Disable completion command
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringP("config", "c", "", "server config file (yaml)")

	root.AddCommand(
		newSignCmd(v),
		newTokenCmd(v),
		newInspectCmd(v),
		newRevealCmd(v),
		newVersionCmd(),
	)
	return root
}

// Execute runs tonectl with os.Args.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("TONEAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("TONEAI_CONFIG")
	}
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// flagKey pairs a config key with the flag that can set it.
type flagKey struct{ key, flag string }

// bindOnRun binds flags to keys only for the command that actually runs;
// viper keeps one flag per key, and several commands share server.db_path.
func bindOnRun(v *viper.Viper, pairs ...flagKey) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for _, p := range pairs {
			if err := v.BindPFlag(p.key, cmd.Flags().Lookup(p.flag)); err != nil {
				return fmt.Errorf("bind --%s: %w", p.flag, err)
			}
		}
		return nil
	}
}

// firstString returns the first non-empty string of a list-valued key.
func firstString(v *viper.Viper, key string) string {
	for _, s := range v.GetStringSlice(key) {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
