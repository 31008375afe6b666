package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage rotating snapshots of the decision collection",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE:  runBackupList,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a manual snapshot",
	RunE:  runBackupCreate,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace all decisions with a snapshot's contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

func init() {
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	backups, err := a.Backups().List(cmd.Context())
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No snapshots yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tREASON\tDECISIONS")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			shortID(b.ID), b.Timestamp.Format("2006-01-02 15:04"), b.Reason, len(b.Decisions))
	}
	return w.Flush()
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.Backups().Create(cmd.Context(), "Manual backup")
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot %s holds %d decisions\n", shortID(b.ID), len(b.Decisions))
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveBackupID(cmd, a, args[0])
	if err != nil {
		return err
	}
	count, err := a.Backups().Restore(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d decisions\n", count)
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveBackupID(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Backups().Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Println("Snapshot deleted")
	return nil
}

// resolveBackupID accepts a full snapshot id or an unambiguous prefix.
func resolveBackupID(cmd *cobra.Command, a *kiroku.App, ref string) (string, error) {
	backups, err := a.Backups().List(cmd.Context())
	if err != nil {
		return "", err
	}
	var matches []string
	for _, b := range backups {
		if b.ID == ref {
			return ref, nil
		}
		if len(ref) >= 4 && len(b.ID) >= len(ref) && b.ID[:len(ref)] == ref {
			matches = append(matches, b.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no snapshot matches %q", ref)
	default:
		return "", fmt.Errorf("ambiguous id %q matches %d snapshots", ref, len(matches))
	}
}
