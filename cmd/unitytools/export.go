package main

import (
	"github.com/spf13/cobra"

	"github.com/houston-tools/unityFileTools/pkg/export"
)

func newTexturesCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "textures [archive or directory...]",
		Short: "Decode Texture2D objects to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args, (*export.Exporter).Textures, export.WithNameFilter(name))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only export textures with this name, ignoring case")
	cmd.Flags().Bool("flip", true, "flip images so the first row is the top one")
	a.bind(cmd.Flags(), "texture.flip", "flip")
	return cmd
}

func newMeshesCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "meshes [archive or directory...]",
		Short: "Resolve Mesh objects to Wavefront OBJ",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args, (*export.Exporter).Meshes, export.WithNameFilter(name))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only export meshes with this name, ignoring case")
	return cmd
}

func newTextCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "text [archive or directory...]",
		Short: "Write TextAsset scripts as files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args, (*export.Exporter).Text, export.WithNameFilter(name))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only export text assets with this name, ignoring case")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var node string
	cmd := &cobra.Command{
		Use:   "dump [archive or directory...]",
		Short: "Write the decompressed bytes of every node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args, (*export.Exporter).Dump, export.WithNameFilter(node))
		},
	}
	cmd.Flags().StringVar(&node, "node", "", "only dump the node with this path, ignoring case")
	cmd.Flags().Bool("compress", true, "write zstd dump containers instead of raw bytes")
	a.bind(cmd.Flags(), "dump.compress", "compress")
	return cmd
}
