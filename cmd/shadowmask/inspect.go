package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-shadowmask/internal/h5"
	"github.com/robert-malhotra/go-shadowmask/shadow"
)

func newInspectCmd() *cobra.Command {
	var (
		dataset string
		frames  int
		tree    bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <file.h5>",
		Short: "describe a shadow mask file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if tree {
				if err := printTree(out, args[0]); err != nil {
					return err
				}
			}
			return inspect(out, args[0], dataset, frames)
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", shadow.DefaultDatasetPath, "dataset path inside the file")
	cmd.Flags().IntVar(&frames, "frames", 20, "number of frames to list, 0 for all")
	cmd.Flags().BoolVar(&tree, "tree", false, "list every group and dataset first")
	return cmd
}

func inspect(out io.Writer, path, dataset string, limit int) error {
	r, err := shadow.OpenVolume(path, dataset)
	if err != nil {
		return err
	}
	defer r.Close()

	filters := "none"
	if names := r.Filters(); len(names) > 0 {
		filters = fmt.Sprint(names)
	}
	fmt.Fprintf(out, "File:        %s\n", path)
	fmt.Fprintf(out, "Dataset:     %s\n", dataset)
	fmt.Fprintf(out, "Shape:       %s\n", r.Shape())
	fmt.Fprintf(out, "Chunks:      %v\n", r.ChunkShape())
	fmt.Fprintf(out, "Compression: %s\n", filters)
	fmt.Fprintf(out, "Fill value:  %d\n\n", r.FillValue())

	n := r.Shape().Frames
	if limit > 0 && limit < n {
		n = limit
	}
	pixels := r.Shape().Height * r.Shape().Width
	data := [][]string{{"Frame", "Stored", "Shadowed pixels", "Shadowed %"}}
	for i := 0; i < n; i++ {
		f, written, err := r.Frame(i)
		if err != nil {
			return err
		}
		shadowed := f.ShadowedCount()
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.FormatBool(written),
			strconv.Itoa(shadowed),
			fmt.Sprintf("%.2f", 100*float64(shadowed)/float64(pixels)),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return err
	}
	if n < r.Shape().Frames {
		fmt.Fprintf(out, "... %d more frames\n", r.Shape().Frames-n)
	}
	return nil
}

func printTree(out io.Writer, path string) error {
	f, err := h5.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	walkGroup(out, f.Root(), "", 0)
	fmt.Fprintln(out)
	return nil
}

func walkGroup(out io.Writer, g *h5.Group, indent string, depth int) {
	if depth > 20 {
		fmt.Fprintf(out, "%s[MAX DEPTH REACHED]\n", indent)
		return
	}
	members, err := g.Names()
	if err != nil {
		fmt.Fprintf(out, "%sERROR getting members: %v\n", indent, err)
		return
	}
	fmt.Fprintf(out, "%sGroup %q: %d members\n", indent, g.Path(), len(members))

	for _, name := range members {
		// Try as group first
		if sub, err := g.OpenGroup(name); err == nil {
			walkGroup(out, sub, indent+"  ", depth+1)
			continue
		}
		ds, err := g.OpenDataset(name)
		if err != nil {
			fmt.Fprintf(out, "%s  %q: %v\n", indent, name, err)
			continue
		}
		fmt.Fprintf(out, "%s  Dataset %q: %s %v, chunks %v\n", indent, name, ds.Datatype(), ds.Shape(), ds.ChunkShape())
	}
}
