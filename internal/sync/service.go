package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashita-ai/kiroku/internal/backup"
	"github.com/ashita-ai/kiroku/internal/exchange"
	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
	"github.com/ashita-ai/kiroku/internal/vault"
)

// Settings keys for sync state. The encrypted credential and the gist id
// live in the settings table; the decrypted token never does.
const (
	settingCredential = "sync.credential"
	settingGistID     = "sync.gist_id"
)

var (
	// ErrNoCredential means no encrypted token has been stored yet.
	ErrNoCredential = errors.New("sync: no stored credential")
	// ErrNoBackupFile means the fetched gist does not contain the backup file.
	ErrNoBackupFile = errors.New("sync: backup file not found in gist")
)

// ValidationError aggregates per-record diagnostics from a pulled payload.
// A remote payload with any invalid record is rejected whole.
type ValidationError struct {
	Diagnostics []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sync: remote data failed validation: %s", strings.Join(e.Diagnostics, "; "))
}

// ImportMode selects how pulled or imported decisions land in the store.
type ImportMode string

const (
	// ModeReplace discards the local collection in favor of the incoming one.
	ModeReplace ImportMode = "replace"
	// ModeMerge inserts incoming decisions whose ids are not already present.
	ModeMerge ImportMode = "merge"
)

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Service coordinates gist transport, credential storage, and the safety
// backup taken before destructive applies.
type Service struct {
	db      *storage.DB
	client  *Client
	backups *backup.Manager
	logger  *slog.Logger
}

// NewService wires the sync service.
func NewService(db *storage.DB, client *Client, backups *backup.Manager, logger *slog.Logger) *Service {
	return &Service{db: db, client: client, backups: backups, logger: logger}
}

// VerifyToken probes whether a token is accepted by the remote service.
func (s *Service) VerifyToken(ctx context.Context, token string) bool {
	return s.client.VerifyToken(ctx, token)
}

// StoreToken encrypts the token under the passphrase and persists the
// resulting credential record.
func (s *Service) StoreToken(ctx context.Context, token, passphrase string) error {
	cred, err := vault.EncryptToken(token, passphrase)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("sync: encode credential: %w", err)
	}
	if err := s.db.SetSetting(ctx, settingCredential, string(data)); err != nil {
		return err
	}
	s.logger.Info("sync: credential stored")
	return nil
}

// LoadToken decrypts the stored credential with the passphrase. A missing
// credential is ErrNoCredential; a wrong passphrase is vault.ErrCannotDecrypt.
func (s *Service) LoadToken(ctx context.Context, passphrase string) (string, error) {
	data, err := s.db.GetSetting(ctx, settingCredential)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", err
	}
	var cred vault.Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return "", fmt.Errorf("sync: decode credential: %w", err)
	}
	return vault.DecryptToken(cred, passphrase)
}

// HasStoredCredential reports whether an encrypted token is on disk.
func (s *Service) HasStoredCredential(ctx context.Context) (bool, error) {
	_, err := s.db.GetSetting(ctx, settingCredential)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearCredential removes the stored credential and the linked gist id.
func (s *Service) ClearCredential(ctx context.Context) error {
	if err := s.db.DeleteSetting(ctx, settingCredential); err != nil {
		return err
	}
	return s.db.DeleteSetting(ctx, settingGistID)
}

// GistID returns the linked gist id, or empty when none is linked.
func (s *Service) GistID(ctx context.Context) (string, error) {
	id, err := s.db.GetSetting(ctx, settingGistID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return id, err
}

// Push uploads the full local collection as a versioned export. The first
// push creates the gist and remembers its id; later pushes update it in
// place. Returns the gist id.
func (s *Service) Push(ctx context.Context, token string) (string, error) {
	decisions, err := s.db.ListDecisions(ctx)
	if err != nil {
		return "", err
	}
	data := exchange.NewExportData(decisions)
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sync: encode export: %w", err)
	}

	gistID, err := s.GistID(ctx)
	if err != nil {
		return "", err
	}
	if gistID == "" {
		gistID, err = s.client.CreateGist(ctx, token, string(content))
		if err != nil {
			return "", err
		}
		if err := s.db.SetSetting(ctx, settingGistID, gistID); err != nil {
			return "", err
		}
		s.logger.Info("sync: gist created", "gist_id", gistID, "decisions", len(decisions))
		return gistID, nil
	}

	if err := s.client.UpdateGist(ctx, token, gistID, string(content)); err != nil {
		return "", err
	}
	s.logger.Info("sync: gist updated", "gist_id", gistID, "decisions", len(decisions))
	return gistID, nil
}

// Pull fetches the backup file from a gist and validates every record.
// Unlike file import, remote payloads are all-or-nothing: any diagnostic
// fails the pull with a ValidationError. Returns the decisions and the
// remote update timestamp.
func (s *Service) Pull(ctx context.Context, token, gistID string) ([]model.Decision, string, error) {
	gist, err := s.client.FetchGist(ctx, token, gistID)
	if err != nil {
		return nil, "", err
	}
	file, ok := gist.Files[GistFileName]
	if !ok {
		return nil, "", ErrNoBackupFile
	}

	data, err := exchange.ParseImportData([]byte(file.Content))
	if err != nil {
		return nil, "", err
	}
	result := exchange.ValidateDecisions(data.Decisions)
	if !result.Valid {
		return nil, "", &ValidationError{Diagnostics: result.Errors}
	}
	return result.Accepted, gist.UpdatedAt, nil
}

// SyncFromGist pulls a gist and replaces the local collection with its
// contents, snapshotting the pre-sync state first. Returns the number of
// decisions applied.
func (s *Service) SyncFromGist(ctx context.Context, token, gistID string) (int, error) {
	decisions, updatedAt, err := s.Pull(ctx, token, gistID)
	if err != nil {
		return 0, err
	}
	err = s.backups.WithBackup(ctx, "Before remote sync", func(ctx context.Context) error {
		return s.db.ReplaceDecisions(ctx, decisions)
	})
	if err != nil {
		return 0, err
	}
	if err := s.db.SetSetting(ctx, settingGistID, gistID); err != nil {
		return 0, err
	}
	s.logger.Info("sync: applied remote collection",
		"gist_id", gistID, "decisions", len(decisions), "remote_updated_at", updatedAt)
	return len(decisions), nil
}

// ImportWithMode applies already-validated decisions to the store. Replace
// mode snapshots the current collection first and then swaps it out; merge
// mode inserts only ids not already present and counts the rest as skipped.
func (s *Service) ImportWithMode(ctx context.Context, decisions []model.Decision, mode ImportMode) (ImportResult, error) {
	switch mode {
	case ModeReplace:
		err := s.backups.WithBackup(ctx, "Before import", func(ctx context.Context) error {
			return s.db.ReplaceDecisions(ctx, decisions)
		})
		if err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Imported: len(decisions)}, nil
	case ModeMerge:
		inserted, err := s.db.InsertMissingDecisions(ctx, decisions)
		if err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Imported: inserted, Skipped: len(decisions) - inserted}, nil
	default:
		return ImportResult{}, fmt.Errorf("sync: unknown import mode %q", mode)
	}
}
