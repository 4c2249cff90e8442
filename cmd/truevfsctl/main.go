// Command truevfsctl is the CLI front-end standing in for the
// out-of-scope "end-user path façade" spec.md defers: a minimal
// runnable entry point driving the kernel's stat/ls/sync
// operations, in place of a library with no executable surface.
//
// Grounded on the teacher's own cmd/ tree: backend/torrent/cmd's
// commandDefinition/subcommand pattern (a parent *cobra.Command with
// AddCommand-registered children, each wrapping a plain function that
// does the work so it stays independently testable), generalized from
// one backend's admin surface to the kernel's.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/truevfs/truevfs"
	"github.com/truevfs/truevfs/config"
	"github.com/truevfs/truevfs/vfsmodel"
	"github.com/truevfs/truevfs/vfspath"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "truevfsctl",
	Short: "Inspect and drive a TrueVFS kernel from the command line",
}

func init() {
	cfg.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(statCommand, lsCommand, syncCommand)
}

var statCommand = &cobra.Command{
	Use:   "stat mount-point entry",
	Short: "Print an entry's metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(ctx context.Context, c controllerHandle) error {
			entry, err := c.Stat(ctx, 0, args[1])
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("truevfsctl: %s: no such entry", args[1])
			}
			fmt.Printf("%s\t%s\t%d bytes\n", entry.Name, entry.Type, entry.Size(vfsmodel.SizeData))
			return nil
		})
	},
}

var lsCommand = &cobra.Command{
	Use:   "ls mount-point",
	Short: "List the top-level entries of a mounted archive or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(ctx context.Context, c controllerHandle) error {
			entry, err := c.Stat(ctx, 0, "")
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("truevfsctl: %s: root entry not found", args[0])
			}
			for _, child := range entry.Children {
				fmt.Println(child)
			}
			return nil
		})
	},
}

var syncCommand = &cobra.Command{
	Use:   "sync mount-point",
	Short: "Flush and unmount a mount point (and everything nested inside it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(ctx context.Context, c controllerHandle) error {
			return c.Sync(ctx, vfsmodel.SyncOptions(vfsmodel.Umount))
		})
	},
}

// controllerHandle is the subset of archivedriver.Controller the
// subcommands above need.
type controllerHandle interface {
	Stat(ctx context.Context, opts vfsmodel.AccessOptions, name string) (*vfsmodel.Entry, error)
	Sync(ctx context.Context, opts vfsmodel.SyncOptions) error
}

// withController starts a throwaway kernel scoped to this single
// invocation, resolves uri's mount point, runs fn, and always shuts
// the kernel down afterward — truevfsctl is a one-shot CLI, not a
// long-lived daemon (that's cmd/truevfsd), so there is no persistent
// kernel to attach to.
func withController(uri string, fn func(ctx context.Context, c controllerHandle) error) error {
	k, err := truevfs.New(cfg)
	if err != nil {
		return err
	}
	defer k.Shutdown(context.Background())

	mp, err := vfspath.NewHostMountPoint("file", uri)
	if err != nil {
		return err
	}
	c, err := k.Manager().Controller(mp)
	if err != nil {
		return err
	}
	return fn(context.Background(), c)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
