package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/classes"
)

type archiveListing struct {
	Path         string        `json:"path"`
	UnityVersion string        `json:"unity_version"`
	Nodes        []nodeListing `json:"nodes"`
	Error        string        `json:"error,omitempty"`
}

type nodeListing struct {
	Path    string          `json:"path"`
	Size    uint64          `json:"size"`
	Kind    string          `json:"kind"`
	Objects []objectListing `json:"objects,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type objectListing struct {
	PathID int64  `json:"path_id"`
	Class  string `json:"class"`
	Size   uint32 `json:"size"`
	Name   string `json:"name,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list [archive or directory...]",
		Short: "List the nodes and objects of archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.archives(args)
			if err != nil {
				return err
			}

			listings := make([]archiveListing, 0, len(paths))
			for _, path := range paths {
				listings = append(listings, a.list(path))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(listings)
			}
			return printListings(cmd.OutOrStdout(), listings)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// list describes one archive. Failures are recorded in the listing and
// logged; listing continues with the next node or archive.
func (a *app) list(path string) archiveListing {
	out := archiveListing{Path: path}

	ar, err := archive.OpenFile(path)
	if err != nil {
		a.logger.Warn("open archive failed, skipping", "archive", path, "error", err)
		out.Error = err.Error()
		return out
	}
	defer ar.Close()

	out.UnityVersion = ar.Header().UnityRevision
	for node := range ar.Entries() {
		out.Nodes = append(out.Nodes, a.listNode(path, node))
	}
	return out
}

func (a *app) listNode(path string, node *archive.Node) nodeListing {
	n := nodeListing{Path: node.Path(), Size: node.Size, Kind: "raw"}

	content, err := node.Read()
	if err != nil {
		a.logger.Warn("read node failed", "archive", path, "node", node.Path(), "error", err)
		n.Error = err.Error()
		return n
	}
	if content.Serialized == nil {
		return n
	}

	n.Kind = "serialized"
	objects, err := content.Serialized.Objects()
	if err != nil {
		a.logger.Warn("read objects failed", "archive", path, "node", node.Path(), "error", err)
		n.Error = err.Error()
		return n
	}
	for _, o := range objects {
		entry := objectListing{PathID: o.PathID(), Class: o.ClassID().String(), Size: o.Size()}
		if name, ok, err := classes.ObjectName(o); err != nil {
			a.logger.Debug("object name unavailable", "archive", path, "path_id", o.PathID(), "error", err)
		} else if ok {
			entry.Name = name
		}
		n.Objects = append(n.Objects, entry)
	}
	return n
}

func printListings(w io.Writer, listings []archiveListing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range listings {
		if l.Error != "" {
			fmt.Fprintf(tw, "%s\terror: %s\n", l.Path, l.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", l.Path, l.UnityVersion)
		for _, n := range l.Nodes {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", n.Path, n.Kind, n.Size)
			if n.Error != "" {
				fmt.Fprintf(tw, "    error: %s\n", n.Error)
			}
			for _, o := range n.Objects {
				fmt.Fprintf(tw, "    %d\t%s\t%d\t%s\n", o.PathID, o.Class, o.Size, o.Name)
			}
		}
	}
	return tw.Flush()
}
