package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rightsnet/app/config"
	"rightsnet/app/models"
	"rightsnet/app/repositories"
	"rightsnet/app/services"

	"gopkg.in/yaml.v3"
)

var (
	ErrDatabaseExists  = errors.New("database already exists")
	ErrNoDatabase      = errors.New("no database exists")
	ErrInMemoryStorage = errors.New("operation needs an on-disk database")
)

func openStore(cfg config.Storage) (*repositories.Store, error) {
	return repositories.OpenStore(repositories.StoreOptions{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
	})
}

func onDisk(cfg config.Storage) error {
	if cfg.InMemory {
		return ErrInMemoryStorage
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InitDB creates a new empty database.
func InitDB(cfg config.Storage) error {
	if err := onDisk(cfg); err != nil {
		return err
	}
	if exists(cfg.Path) {
		return fmt.Errorf("%s: %w", cfg.Path, ErrDatabaseExists)
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	return store.Close()
}

// CleanDB removes the database directory.
func CleanDB(cfg config.Storage) error {
	if err := onDisk(cfg); err != nil {
		return err
	}
	if !exists(cfg.Path) {
		return fmt.Errorf("%s: %w", cfg.Path, ErrNoDatabase)
	}
	if err := os.RemoveAll(cfg.Path); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	return nil
}

// BackupDB writes a full backup to out, or to a timestamped file under the
// backup directory when out is empty. It returns the file written.
func BackupDB(cfg config.Storage, out string) (string, error) {
	if err := onDisk(cfg); err != nil {
		return "", err
	}
	if !exists(cfg.Path) {
		return "", fmt.Errorf("%s: %w", cfg.Path, ErrNoDatabase)
	}
	if out == "" {
		out = filepath.Join(cfg.BackupDir, fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return "", err
	}
	defer store.Close()

	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := store.Backup(f); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	return out, f.Sync()
}

// RestoreDB replaces the database with the contents of a backup file.
func RestoreDB(cfg config.Storage, backupFile string) error {
	if err := onDisk(cfg); err != nil {
		return err
	}
	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to remove existing data: %w", err)
	}
	if err := store.Restore(f); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

// listingFile is the layout of a directory seed file.
type listingFile struct {
	Listings []*models.Listing `yaml:"listings"`
}

// LoadListings parses a directory seed file.
func LoadListings(path string) ([]*models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file listingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(file.Listings) == 0 {
		return nil, fmt.Errorf("%s has no listings", path)
	}
	return file.Listings, nil
}

// SeedListings imports the verified listings in a seed file.
func SeedListings(cfg config.Storage, path string) (int, error) {
	listings, err := LoadListings(path)
	if err != nil {
		return 0, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return services.NewDirectoryService(store.Listings, store.Users).Import(listings)
}

// VerifyListing marks a directory listing as checked by an operator.
func VerifyListing(cfg config.Storage, id int) (*models.Listing, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return services.NewDirectoryService(store.Listings, store.Users).Verify(id)
}
