package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulenet/internal/logging"
	"github.com/danielpatrickdp/rulenet/internal/store"
)

var snapshotsCmd = &cobra.Command{
	Use:     "snapshots",
	Aliases: []string{"snap"},
	Short:   "Inspect and roll back rule snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("last")
		return withStore(func(st *store.Store) error {
			return runList(cmd.OutOrStdout(), st, limit, jsonOut(cmd))
		})
	},
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show VERSION",
	Short: "Show the rules in one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return runShow(cmd.OutOrStdout(), st, args[0], jsonOut(cmd))
		})
	},
}

var snapshotsRollbackCmd = &cobra.Command{
	Use:   "rollback VERSION",
	Short: "Make an earlier snapshot the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.Rollback(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active snapshot is now %s\n", args[0])
			return nil
		})
	},
}

var snapshotsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the resolution log, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("last")
		return withStore(func(st *store.Store) error {
			return runLog(cmd.OutOrStdout(), st, limit, jsonOut(cmd))
		})
	},
}

func init() {
	snapshotsCmd.PersistentFlags().Bool("json", false, "output as JSON instead of table")
	snapshotsListCmd.Flags().Int("last", 20, "show N most recent snapshots")
	snapshotsLogCmd.Flags().Int("last", 20, "show N most recent entries")

	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsShowCmd, snapshotsRollbackCmd, snapshotsLogCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func withStore(fn func(*store.Store) error) error {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func jsonOut(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// #region list
type listRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Rules     int    `json:"rules"`
	MaxConds  *int   `json:"max_conds,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func runList(w io.Writer, st *store.Store, limit int, asJSON bool) error {
	snaps, err := st.ListVersions(limit)
	if err != nil {
		return err
	}
	var active string
	if cur, err := st.GetCurrent(); err == nil {
		active = cur.VersionID
	}

	rows := make([]listRow, len(snaps))
	for i, s := range snaps {
		rows[i] = listRow{
			VersionID: s.VersionID,
			ParentID:  s.ParentID,
			Rules:     len(s.Rules),
			MaxConds:  s.MaxConds,
			Active:    s.VersionID == active,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if asJSON {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no snapshots found")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-12s  %5s  %9s  %s\n", "Version", "Parent", "Rules", "Max Conds", "Time")
	fmt.Fprintf(w, "%-12s+-%-12s+-%5s+-%9s+-%s\n",
		"------------", "------------", "-----", "---------", "--------------------")
	for _, r := range rows {
		vid := shortID(r.VersionID)
		if r.Active {
			vid += " *"
		}
		parent := "-"
		if r.ParentID != "" {
			parent = shortID(r.ParentID)
		}
		maxConds := "-"
		if r.MaxConds != nil {
			maxConds = fmt.Sprintf("%d", *r.MaxConds)
		}
		fmt.Fprintf(w, "%-12s  %-12s  %5d  %9s  %s\n", vid, parent, r.Rules, maxConds, r.CreatedAt)
	}
	return nil
}
// #endregion list

// #region show
func runShow(w io.Writer, st *store.Store, versionID string, asJSON bool) error {
	snap, err := st.GetVersion(versionID)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, snap)
	}

	fmt.Fprintf(w, "Version:  %s\n", snap.VersionID)
	fmt.Fprintf(w, "Parent:   %s\n", snap.ParentID)
	fmt.Fprintf(w, "Created:  %s\n", snap.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if snap.MaxConds != nil {
		fmt.Fprintf(w, "Max Conds: %d\n", *snap.MaxConds)
	}
	fmt.Fprintf(w, "\nRules:\n")
	for _, r := range snap.Rules {
		conds := make([]string, 0, len(r.Weights))
		for c := range r.Weights {
			conds = append(conds, c)
		}
		sort.Strings(conds)
		for i, c := range conds {
			conds[i] = fmt.Sprintf("%s*%.3f", c, r.Weights[c])
		}
		fmt.Fprintf(w, "  %-12s %s <- %s\n", r.ID, r.Conclusion, strings.Join(conds, " + "))
	}
	return nil
}
// #endregion show

// #region log
func runLog(w io.Writer, st *store.Store, limit int, asJSON bool) error {
	entries, err := logging.ListResolutions(st.DB(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no resolutions logged")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-8s  %5s  %-20s  %-20s  %s\n", "Version", "Trigger", "Rules", "Added", "Deleted", "Reason")
	fmt.Fprintf(w, "%-12s+-%-8s+-%5s+-%-20s+-%-20s+-%s\n",
		"------------", "--------", "-----", "--------------------", "--------------------", "----------")
	for _, e := range entries {
		fmt.Fprintf(w, "%-12s  %-8s  %5d  %-20s  %-20s  %s\n",
			shortID(e.VersionID), e.TriggerType, e.RuleCount, orDash(e.Added), orDash(e.Deleted), e.Reason)
	}
	return nil
}
// #endregion log

// #region output
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
// #endregion output
