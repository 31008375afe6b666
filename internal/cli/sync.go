package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku"
	syncsvc "github.com/ashita-ai/kiroku/internal/sync"
	"github.com/ashita-ai/kiroku/internal/vault"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Back up the journal to a private GitHub Gist",
}

var syncTokenFlags struct {
	token      string
	passphrase string
}

// session holds the decrypted token for the duration of one command. It is
// dropped when the process exits; the passphrase is needed again next run.
var session syncsvc.TokenHolder

var syncVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that a token is accepted by the remote service",
	RunE:  runSyncVerify,
}

var syncSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Encrypt and store an access token",
	Long: "Verifies the token, encrypts it under the passphrase, and stores the " +
		"encrypted record. The plaintext token is never written to disk.",
	RunE: runSyncSetup,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the full collection to the linked gist",
	RunE:  runSyncPush,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull <gist-id>",
	Short: "Replace the local collection with a gist's contents",
	Long: "Fetches and validates the remote backup, snapshots the local state, " +
		"then applies the remote collection. Any invalid remote record aborts the pull.",
	Args: cobra.ExactArgs(1),
	RunE: runSyncPull,
}

var syncForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the stored credential and gist link",
	RunE:  runSyncForget,
}

func init() {
	syncCmd.AddCommand(syncVerifyCmd)
	syncCmd.AddCommand(syncSetupCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncForgetCmd)

	for _, c := range []*cobra.Command{syncVerifyCmd, syncSetupCmd, syncPushCmd, syncPullCmd} {
		c.Flags().StringVar(&syncTokenFlags.token, "token", "", "GitHub access token")
		c.Flags().StringVar(&syncTokenFlags.passphrase, "passphrase", "", "passphrase protecting the stored token")
	}
	_ = syncVerifyCmd.MarkFlagRequired("token")
	_ = syncSetupCmd.MarkFlagRequired("token")
	_ = syncSetupCmd.MarkFlagRequired("passphrase")
}

func runSyncVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Sync().VerifyToken(cmd.Context(), syncTokenFlags.token) {
		return errors.New("token rejected by the remote service")
	}
	fmt.Println("Token accepted")
	return nil
}

func runSyncSetup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Sync().VerifyToken(cmd.Context(), syncTokenFlags.token) {
		return errors.New("token rejected by the remote service")
	}
	if err := a.Sync().StoreToken(cmd.Context(), syncTokenFlags.token, syncTokenFlags.passphrase); err != nil {
		return err
	}
	fmt.Println("Token encrypted and stored")
	return nil
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := sessionToken(cmd, a)
	if err != nil {
		return err
	}
	gistID, err := a.Sync().Push(cmd.Context(), token)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed to gist %s\n", gistID)
	return nil
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := sessionToken(cmd, a)
	if err != nil {
		return err
	}
	count, err := a.Sync().SyncFromGist(cmd.Context(), token, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d decisions from gist %s\n", count, args[0])
	return nil
}

func runSyncForget(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Sync().ClearCredential(cmd.Context()); err != nil {
		return err
	}
	session.Clear()
	fmt.Println("Credential and gist link removed")
	return nil
}

// sessionToken resolves the token for this invocation: an explicit --token
// wins, otherwise the stored credential is decrypted with --passphrase.
func sessionToken(cmd *cobra.Command, a *kiroku.App) (string, error) {
	if tok, ok := session.Get(); ok {
		return tok, nil
	}
	if syncTokenFlags.token != "" {
		session.Set(syncTokenFlags.token)
		return syncTokenFlags.token, nil
	}
	if syncTokenFlags.passphrase == "" {
		return "", errors.New("provide --token, or --passphrase to unlock the stored token")
	}
	tok, err := a.Sync().LoadToken(cmd.Context(), syncTokenFlags.passphrase)
	if errors.Is(err, syncsvc.ErrNoCredential) {
		return "", errors.New("no stored token; run `kiroku sync setup` first")
	}
	if errors.Is(err, vault.ErrCannotDecrypt) {
		return "", errors.New("wrong passphrase")
	}
	if err != nil {
		return "", err
	}
	session.Set(tok)
	return tok, nil
}
