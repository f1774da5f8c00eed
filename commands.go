package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"rightsnet/server"

	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API and realtime server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if inMemory {
				c.cfg.Storage.InMemory = true
			}
			ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.RunAppServer(ctx, c.cfg, c.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&inMemory, "memory", false, "Keep all data in memory")
	return cmd
}

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := server.InitDB(c.cfg.Storage)
			if errors.Is(err, server.ErrDatabaseExists) {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already exists. Use 'clean' first if you want to reinitialize.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialized at %s\n", c.cfg.Storage.Path)
			return nil
		},
	}
}

func (c *cli) cleanCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.cfg.Storage.Path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is already clean (does not exist)")
				return nil
			}
			if !yes && !confirm(cmd, "Are you sure you want to clean the database? This cannot be undone.") {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}
			if err := server.CleanDB(c.cfg.Storage); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database cleaned successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) backupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full backup of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := server.BackupDB(c.cfg.Storage, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up successfully to %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Backup file (default: a timestamped file under storage.backup_dir)")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("backup file does not exist: %s", args[0])
			}
			if _, err := os.Stat(c.cfg.Storage.Path); err == nil && !yes {
				if !confirm(cmd, "Existing database found. Do you want to replace it?") {
					fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
					return nil
				}
			}
			if err := server.RestoreDB(c.cfg.Storage, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	var listings string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import verified service directory listings from YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := server.SeedListings(c.cfg.Storage, listings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d listings\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&listings, "listings", "l", "", "YAML file with a top-level listings list")
	cmd.MarkFlagRequired("listings")
	return cmd
}

func (c *cli) verifyListingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-listing ID",
		Short: "Mark a service directory listing as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid listing id %q", args[0])
			}
			l, err := server.VerifyListing(c.cfg.Storage, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verified listing %d (%s)\n", l.ID, l.Name)
			return nil
		},
	}
}

// background is the context for commands run without one.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
