package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"filerelay/internal/archive"
	"filerelay/internal/attachments"
	"filerelay/internal/fileutil"
	"filerelay/internal/routing"
)

func newArchiveCommand() *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:         "archive",
		Short:       "Pack, unpack, and identify transfer containers",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	archiveCmd.AddCommand(newArchivePackCommand())
	archiveCmd.AddCommand(newArchiveUnpackCommand())
	archiveCmd.AddCommand(newArchiveIDCommand())

	return archiveCmd
}

func newArchivePackCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack <file>",
		Short: "Pack a file into a container the way the dispatcher does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			container, err := archive.PackFile(source)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				target = source + ".zip"
			}
			if err := os.WriteFile(target, container.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write container: %w", err)
			}
			id, err := attachments.ID(container.Bytes())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %s into %s (%d bytes, attachment %s)\n",
				filepath.Base(source), target, container.Len(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Container path (default <file>.zip)")
	return cmd
}

func newArchiveUnpackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <container> <directory>",
		Short: "Unpack a container into a directory, refusing entries that escape it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read container: %w", err)
			}
			dir, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			reader, err := archive.Unpack(archive.FromBytes(data))
			if err != nil {
				return err
			}

			fs := afero.NewOsFs()
			out := cmd.OutOrStdout()
			for {
				entry, err := reader.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if entry.IsDir() {
					continue
				}
				target, err := routing.Join(dir, entry.Name)
				if err != nil {
					return err
				}
				rc, err := entry.Open()
				if err != nil {
					return fmt.Errorf("open entry %q: %w", entry.Name, err)
				}
				result, err := fileutil.WriteAtomic(fs, target, rc, 0o644)
				rc.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %d  %s\n", result.SHA256, result.Bytes, result.Path)
			}
		},
	}
}

func newArchiveIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "id <container>",
		Short: "Print the attachment ID of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read container: %w", err)
			}
			id, err := attachments.ID(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
}
