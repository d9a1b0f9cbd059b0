package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"toneai/pkg/api/auth"
	"toneai/pkg/store"
)

func newSignCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the X-User-Signature for a user id",
		Long: `sign computes the HMAC-SHA256 signature a frontend sends in
X-User-Signature. The key defaults to the first signing key, then the first
backend API key of the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := strings.TrimSpace(v.GetString("sign.user"))
			if err := store.ValidateID("user id", user); err != nil {
				return err
			}
			key := v.GetString("sign.key")
			if key == "" {
				key = firstString(v, "security.signing_keys")
			}
			if key == "" {
				key = firstString(v, "security.api_keys.backend")
			}
			if key == "" {
				return errors.New("no signing key: pass --key or configure security.api_keys.backend")
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.CreateHMACSignature(user, key))
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "user id to sign")
	cmd.Flags().StringP("key", "k", "", "signing key")
	cmd.PreRunE = bindOnRun(v,
		flagKey{"sign.user", "user"},
		flagKey{"sign.key", "key"},
	)
	return cmd
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an X-User-Token identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := v.GetString("security.jwt.secret")
			if secret == "" {
				return errors.New("no jwt secret: pass --secret or configure security.jwt.secret")
			}
			ttl := v.GetDuration("token.ttl")
			if ttl < 0 {
				return fmt.Errorf("invalid --ttl %s", ttl)
			}
			tok, err := auth.IssueToken(strings.TrimSpace(v.GetString("token.user")), secret, v.GetString("security.jwt.issuer"), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "user id (token subject)")
	cmd.Flags().StringP("secret", "s", "", "HS256 secret")
	cmd.Flags().String("issuer", "", "issuer claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.PreRunE = bindOnRun(v,
		flagKey{"token.user", "user"},
		flagKey{"security.jwt.secret", "secret"},
		flagKey{"security.jwt.issuer", "issuer"},
		flagKey{"token.ttl", "ttl"},
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tonectl %s (commit: %s)\n", version, commit)
		},
	}
}
