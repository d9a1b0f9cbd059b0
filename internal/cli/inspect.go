package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// key families in store order of interest
var keyFamilies = []struct {
	prefix string
	name   string
}{
	{"c:", "Contact keys"},
	{"u:", "User keys"},
	{"m:", "Message keys"},
	{"mi:", "Message index keys"},
	{"meta:", "Meta keys"},
}

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Read-only key dump of a toneai database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := v.GetString("server.db_path")
			if dbPath == "" {
				return errors.New("no database: pass --db or configure server.db_path")
			}
			return inspectDatabase(cmd.OutOrStdout(), dbPath, v.GetString("inspect.prefix"), v.GetInt("inspect.limit"))
		},
	}
	cmd.Flags().String("db", "", "database path")
	cmd.Flags().String("prefix", "", "only keys with this prefix, e.g. c:alice:")
	cmd.Flags().Int("limit", 5, "keys printed per family")
	cmd.PreRunE = bindOnRun(v,
		flagKey{"server.db_path", "db"},
		flagKey{"inspect.prefix", "prefix"},
		flagKey{"inspect.limit", "limit"},
	)
	return cmd
}

func inspectDatabase(w io.Writer, dbPath, prefix string, limit int) error {
	db, err := pebble.Open(dbPath, &pebble.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	opts := &pebble.IterOptions{}
	if prefix != "" {
		opts.LowerBound = []byte(prefix)
		opts.UpperBound = upperBound([]byte(prefix))
	}
	iter, err := db.NewIter(opts)
	if err != nil {
		return err
	}
	defer iter.Close()

	counts := make([]int, len(keyFamilies))
	other := 0
	total := 0

	fmt.Fprintln(w, "Inspecting database keys:")
	fmt.Fprintln(w, "=====================================")
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		total++
		idx := family(key)
		if idx < 0 {
			other++
			if other <= limit {
				fmt.Fprintf(w, "Other key %d: %s\n", other, key)
			}
			continue
		}
		counts[idx]++
		if counts[idx] <= limit {
			fmt.Fprintf(w, "%s %d: %s (%s)\n", strings.TrimSuffix(keyFamilies[idx].name, "s"), counts[idx], key,
				humanize.Bytes(uint64(len(iter.Value()))))
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nKey Summary:")
	fmt.Fprintf(w, "  Total keys: %s\n", humanize.Comma(int64(total)))
	for i, f := range keyFamilies {
		fmt.Fprintf(w, "  %s: %s\n", f.name, humanize.Comma(int64(counts[i])))
	}
	fmt.Fprintf(w, "  Other keys: %s\n", humanize.Comma(int64(other)))
	fmt.Fprintf(w, "  Disk usage: %s\n", humanize.IBytes(db.Metrics().DiskSpaceUsage()))
	return nil
}

func family(key string) int {
	for i, f := range keyFamilies {
		if strings.HasPrefix(key, f.prefix) {
			return i
		}
	}
	return -1
}

func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
