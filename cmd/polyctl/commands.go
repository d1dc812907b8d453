package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/polystore/polystore"
)

func newLsCmd(a *app) *cobra.Command {
	var (
		recursive bool
		long      bool
	)
	cmd := &cobra.Command{
		Use:   "ls PROFILE:PATH",
		Short: "list a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			var opts []polystore.ListOption
			if recursive {
				opts = append(opts, polystore.WithRecursive())
			}
			lister, err := op.List(path, opts...)
			if err != nil {
				return err
			}
			defer lister.Close()

			var tw *tabwriter.Writer
			if long {
				tw = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			}
			for {
				entry, err := lister.Next()
				if err != nil {
					return err
				}
				if entry == nil {
					break
				}
				if !long {
					fmt.Fprintln(cmd.OutOrStdout(), entry.Path())
					continue
				}
				mode, size, modified := "?", "-", "-"
				if meta := entry.Metadata(); meta != nil {
					mode = modeWord(meta.Mode())
					if meta.IsFile() {
						size = strconv.FormatInt(meta.ContentLength(), 10)
					}
					if !meta.LastModified().IsZero() {
						modified = meta.LastModified().Format(time.RFC3339)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mode, size, modified, entry.Path())
			}
			if long {
				return tw.Flush()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show mode, size and modification time")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat PROFILE:PATH",
		Short: "print a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			data, err := op.Read(path)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat PROFILE:PATH",
		Short: "show the metadata of a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			meta, err := op.Stat(path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintf(tw, "path\t%s\n", path)
			fmt.Fprintf(tw, "mode\t%s\n", modeWord(meta.Mode()))
			if meta.IsFile() {
				fmt.Fprintf(tw, "content-length\t%d\n", meta.ContentLength())
			}
			if !meta.LastModified().IsZero() {
				fmt.Fprintf(tw, "last-modified\t%s\n", meta.LastModified().Format(time.RFC3339))
			}
			if meta.ContentType() != "" {
				fmt.Fprintf(tw, "content-type\t%s\n", meta.ContentType())
			}
			if meta.ETag() != "" {
				fmt.Fprintf(tw, "etag\t%s\n", meta.ETag())
			}
			return tw.Flush()
		},
	}
}

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put FILE PROFILE:PATH",
		Short: "upload a local file, or stdin when FILE is -",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[1])
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			return op.Write(path, data)
		},
	}
}

func newCpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cp PROFILE:SRC PROFILE:DST",
		Short: "copy a file, within one backend or across two",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			dst, err := parseTarget(args[1])
			if err != nil {
				return err
			}
			srcOp, err := a.operatorFor(src.profile)
			if err != nil {
				return err
			}
			if src.profile == dst.profile {
				return srcOp.Copy(src.path, dst.path)
			}
			dstOp, err := a.operatorFor(dst.profile)
			if err != nil {
				return err
			}
			return transferAcross(srcOp, src.path, dstOp, dst.path)
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv PROFILE:SRC PROFILE:DST",
		Short: "move a file, within one backend or across two",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			dst, err := parseTarget(args[1])
			if err != nil {
				return err
			}
			srcOp, err := a.operatorFor(src.profile)
			if err != nil {
				return err
			}
			if src.profile == dst.profile {
				return srcOp.Rename(src.path, dst.path)
			}
			dstOp, err := a.operatorFor(dst.profile)
			if err != nil {
				return err
			}
			if err := transferAcross(srcOp, src.path, dstOp, dst.path); err != nil {
				return err
			}
			return srcOp.Delete(src.path)
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm PROFILE:PATH",
		Short: "remove a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if !recursive || !polystore.IsDirPath(polystore.NormalizePath(path)) {
				return op.Delete(path)
			}
			return removeTree(op, path)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove a directory and everything below it")
	return cmd
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir PROFILE:PATH",
		Short: "create a directory; a trailing slash is implied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if path != "" && path[len(path)-1] != '/' {
				path += "/"
			}
			return op.CreateDir(path)
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check PROFILE",
		Short: "verify that a profile's backend is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A trailing colon is tolerated, so "check media:" works too.
			name, _, _ := strings.Cut(args[0], ":")
			op, err := a.operatorFor(name)
			if err != nil {
				return err
			}
			if err := op.Check(); err != nil {
				return fmt.Errorf("backend of profile %q is not reachable: %w", name, err)
			}
			info := op.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s backend reachable\n", name, info.Scheme)
			return nil
		},
	}
}

// transferAcross copies a file between two backends through the client.
func transferAcross(src *polystore.BlockingOperator, srcPath string, dst *polystore.BlockingOperator, dstPath string) error {
	data, err := src.Read(srcPath)
	if err != nil {
		return err
	}
	return dst.Write(dstPath, data)
}

// removeTree deletes a directory and everything below it. Children are
// deleted before their parents, so backends that refuse to drop a
// non-empty directory are satisfied.
func removeTree(op *polystore.BlockingOperator, path string) error {
	lister, err := op.List(path, polystore.WithRecursive())
	if err != nil {
		return err
	}
	entries, err := lister.All()
	lister.Close()
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path())
	}
	// Reverse lexicographic order puts every child before its parent.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, p := range paths {
		if err := op.Delete(p); err != nil {
			return err
		}
	}
	return op.Delete(path)
}

func modeWord(mode polystore.EntryMode) string {
	switch mode {
	case polystore.EntryModeFile:
		return "file"
	case polystore.EntryModeDir:
		return "dir"
	default:
		return "?"
	}
}
