package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/filetree/vfscore/fs"
	"github.com/filetree/vfscore/vfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's entries",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/"
		if len(args) == 1 {
			path = args[0]
		}
		v := openVFS()
		names, err := v.Readdir(context.Background(), path, false)
		fatal(err)
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var catCmd = &cobra.Command{
	Use:   "cat path",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVFS()
		ctx := context.Background()
		fd, err := v.Open(ctx, args[0], fs.O_RDONLY)
		fatal(err)
		defer v.Close(ctx, fd, true)

		buf := make([]byte, 64*1024)
		for {
			n, err := v.Read(ctx, fd, buf, -1)
			if n > 0 {
				if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
					fatal(werr)
				}
			}
			if err == io.EOF || n == 0 {
				break
			}
			fatal(err)
		}
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp src dst",
	Short: "Copy src to dst, recursing into directories",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVFS()
		fatal(v.Cp(context.Background(), args[0], args[1], vfs.CopyOptions{Recursive: true}))
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm path",
	Short: "Remove a file or, with --recursive, a directory tree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recursive, _ := cmd.Flags().GetBool("recursive")
		force, _ := cmd.Flags().GetBool("force")
		v := openVFS()
		fatal(v.Rm(context.Background(), args[0], recursive, force))
	},
}

func init() {
	rmCmd.Flags().BoolP("recursive", "r", false, "remove directories and their contents recursively")
	rmCmd.Flags().BoolP("force", "f", false, "ignore nonexistent paths")
}

var statCmd = &cobra.Command{
	Use:   "stat path",
	Short: "Print a path's attributes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVFS()
		stats, err := v.Stat(context.Background(), args[0])
		fatal(err)
		fmt.Printf("ino:   %d\n", stats.Ino)
		fmt.Printf("mode:  %s\n", stats.Mode.String())
		fmt.Printf("size:  %d\n", stats.Size)
		fmt.Printf("nlink: %d\n", stats.Nlink)
		fmt.Printf("uid:   %d\n", stats.UID)
		fmt.Printf("gid:   %d\n", stats.GID)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir path",
	Short: "Create a directory, with --parents creating missing segments",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		parents, _ := cmd.Flags().GetBool("parents")
		v := openVFS()
		_, err := v.Mkdir(context.Background(), args[0], 0o755, 0, 0, parents)
		fatal(err)
	},
}

func init() {
	mkdirCmd.Flags().BoolP("parents", "p", false, "create missing parent directories")
}
