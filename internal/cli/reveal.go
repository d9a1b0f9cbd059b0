package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"toneai/pkg/gesture"
	"toneai/pkg/models"
	"toneai/pkg/store"
)

func newRevealCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reveal",
		Short: "Replay input events against a stored conversation",
		Long: `reveal loads the conversation between --user and --with and feeds it
input events read from stdin, one per line:

  touchstart 2      press on the second message (ids work too)
  wait 600ms        let time pass
  touchend          release

After each line the conversation is printed as the receiver would see it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := v.GetString("server.db_path")
			if dbPath == "" {
				return errors.New("no database: pass --db or configure server.db_path")
			}
			hold := v.GetDuration("gesture.hold_threshold")
			if hold <= 0 {
				hold = gesture.DefaultHoldThreshold
			}

			db, err := store.Open(dbPath, store.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer db.Close()

			msgs, err := db.ListConversation(context.Background(), v.GetString("reveal.user"), v.GetString("reveal.with"), models.PageRequest{})
			if err != nil {
				return err
			}
			return replay(cmd.InOrStdin(), cmd.OutOrStdout(), msgs, gesture.New(hold))
		},
	}
	cmd.Flags().String("db", "", "database path")
	cmd.Flags().String("user", "", "viewing user")
	cmd.Flags().String("with", "", "conversation partner")
	cmd.Flags().Duration("hold", 0, "hold threshold (default 500ms)")
	cmd.PreRunE = bindOnRun(v,
		flagKey{"server.db_path", "db"},
		flagKey{"reveal.user", "user"},
		flagKey{"reveal.with", "with"},
		flagKey{"gesture.hold_threshold", "hold"},
	)
	return cmd
}

func replay(in io.Reader, out io.Writer, msgs []models.Message, ctl *gesture.Controller) error {
	defer ctl.Cancel()
	render(out, "start", msgs, ctl)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "wait" {
			if len(fields) != 2 {
				return fmt.Errorf("wait needs a duration: %q", line)
			}
			d, err := time.ParseDuration(fields[1])
			if err != nil {
				return err
			}
			time.Sleep(d)
			render(out, line, msgs, ctl)
			continue
		}

		ev := gesture.InputEvent{Type: fields[0]}
		if len(fields) > 1 {
			ev.MessageID = resolveMessage(fields[1], msgs)
		}
		tap, err := ctl.Handle(ev)
		if err != nil {
			return err
		}
		if tap {
			line += " (tap)"
		}
		render(out, line, msgs, ctl)
	}
	return sc.Err()
}

// a 1-based position or a message id
func resolveMessage(ref string, msgs []models.Message) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(msgs) {
		return msgs[n-1].ID
	}
	return ref
}

func render(w io.Writer, label string, msgs []models.Message, ctl *gesture.Controller) {
	snap := ctl.Snapshot()
	fmt.Fprintf(w, "> %s [%s]\n", label, snap.State)
	revealed := ctl.RevealedID()
	for i, m := range msgs {
		mark := " "
		if m.ID == revealed {
			mark = "*"
		}
		fmt.Fprintf(w, " %s%d %s: %s\n", mark, i+1, m.SenderID, gesture.Display(m, revealed))
	}
}
