package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houston-tools/unityFileTools/internal/fixture"
	"github.com/houston-tools/unityFileTools/pkg/serialized"
)

func writeBundle(t *testing.T, dir string) string {
	t.Helper()
	tree := fixture.Struct(0, "TextAsset", "Base", fixture.String(0, "m_Name"), fixture.String(0, "m_Script"))
	file := fixture.SerializedFile{Version: 17, Objects: []fixture.Object{{
		PathID: 11, ClassID: int32(serialized.ClassTextAsset), Tree: tree,
		Data: fixture.NewWriter(nil).String("readme").String("hello").Bytes(),
	}}}
	buf, err := fixture.Archive{
		Nodes: []fixture.Node{
			{Path: "CAB-cli", Data: file.Bytes()},
			{Path: "CAB-cli.resS", Data: []byte("raw")},
		},
		BlockSize:        64,
		BlockCompression: []uint16{fixture.CompressionLZ4},
	}.Bytes()
	require.NoError(t, err)

	path := filepath.Join(dir, "cli.unity3d")
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestListJSON(t *testing.T) {
	bundle := writeBundle(t, t.TempDir())

	out, err := run(t, "list", "--json", bundle)
	require.NoError(t, err)

	var listings []archiveListing
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	require.Len(t, listings, 1)
	require.Len(t, listings[0].Nodes, 2)

	node := listings[0].Nodes[0]
	assert.Equal(t, "CAB-cli", node.Path)
	assert.Equal(t, "serialized", node.Kind)
	assert.Equal(t, []objectListing{{PathID: 11, Class: "TextAsset", Size: node.Objects[0].Size, Name: "readme"}}, node.Objects)
	assert.Equal(t, "raw", listings[0].Nodes[1].Kind)
}

func TestListText(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir)

	out, err := run(t, "list", "--assets", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "CAB-cli.resS")
	assert.Contains(t, out, "readme")
}

func TestExportCommands(t *testing.T) {
	dir := t.TempDir()
	bundle := writeBundle(t, dir)
	out := t.TempDir()

	_, err := run(t, "text", "--output", out, "--workers", "2", bundle)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "cli", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, filepath.Join(out, "manifest.json"))

	_, err = run(t, "dump", "--output", out, "--compress=false", "--node", "CAB-cli.resS", bundle)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(out, "cli", "CAB-cli.resS"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(data))
}

func TestNoArchives(t *testing.T) {
	_, err := run(t, "textures", "--assets", t.TempDir())
	assert.ErrorContains(t, err, "no UnityFS archives")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "list", "--log-level", "loud", t.TempDir())
	assert.Error(t, err)
}
