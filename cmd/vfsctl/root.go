// Package main implements vfsctl, a thin cobra command tree over the VFS
// facade (package vfs): ls, cat, cp, rm, stat, mkdir. Grounded on gcsfuse's
// cmd/root.go for the cobra+viper config-file wiring (PersistentFlags bound
// through viper, an optional --config-file overriding process-environment
// defaults) and on rclone's per-subcommand command tree shape (one
// *cobra.Command per operation, registered onto a shared root in init).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/filetree/vfscore/backend/boltfs"
	"github.com/filetree/vfscore/vfs"
)

var (
	cfgFile string
	dbPath  string

	root *vfs.VFS
	be   *boltfs.FS
)

var rootCmd = &cobra.Command{
	Use:   "vfsctl",
	Short: "Inspect and manipulate a durable vfscore filesystem",
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a vfsctl config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "vfsctl.db", "path to the bbolt database backing this filesystem")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(lsCmd, catCmd, cpCmd, rmCmd, statCmd, mkdirCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "vfsctl: reading config file:", err)
			os.Exit(1)
		}
	}
	if v := viper.GetString("db"); v != "" {
		dbPath = v
	}
}

// openVFS lazily mounts a boltfs-backed filesystem at "/", the same
// database file every invocation of vfsctl reopens, so state persists
// across one-shot CLI runs.
func openVFS() *vfs.VFS {
	if root != nil {
		return root
	}
	ctx := context.Background()
	var err error
	be, err = boltfs.Open(ctx, "vfsctl", dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vfsctl: opening store:", err)
		os.Exit(1)
	}
	root = vfs.New(vfs.Config{})
	root.Mount("/", be)
	return root
}

func closeVFS() {
	if be != nil {
		_ = be.Close()
	}
}

func fatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "vfsctl:", err)
		closeVFS()
		os.Exit(1)
	}
}

func main() {
	defer closeVFS()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
