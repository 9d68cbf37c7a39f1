package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebymarcos/vbox/internal/config"
	"github.com/codebymarcos/vbox/internal/disk"
)

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Inspect or clear the host disk image",
}

var diskInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show block count, size and digest of a disk image",
	Args:  cobra.NoArgs,
	RunE:  runDiskInfo,
}

var diskClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every block of a disk image",
	Args:  cobra.NoArgs,
	RunE:  runDiskClear,
}

var diskPath string

func init() {
	diskCmd.PersistentFlags().StringVar(&diskPath, "path", "", "disk image (default: the configured host disk)")
	diskCmd.AddCommand(diskInfoCmd)
	diskCmd.AddCommand(diskClearCmd)
}

func openDisk() *disk.FileStore {
	path := diskPath
	if path == "" {
		path = config.Global.DiskPath()
	}
	return disk.OpenFile(path)
}

func runDiskInfo(cmd *cobra.Command, args []string) error {
	store := openDisk()

	d, err := store.Digest()
	if err != nil {
		return fmt.Errorf("digest %s: %w", store.Path(), err)
	}
	if d == "" {
		d = "(not written)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Image:             %s\n", store.Path())
	fmt.Fprintf(out, "Blocks allocated:  %d\n", store.AllocatedCount())
	fmt.Fprintf(out, "Total data size:   %d bytes\n", store.TotalBytes())
	fmt.Fprintf(out, "Digest:            %s\n", d)
	return nil
}

func runDiskClear(cmd *cobra.Command, args []string) error {
	store := openDisk()
	n := store.AllocatedCount()
	if err := store.ClearAll(); err != nil {
		return fmt.Errorf("clear %s: %w", store.Path(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d blocks from %s\n", n, store.Path())
	return nil
}
