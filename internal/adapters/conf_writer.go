package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

type ConfWriterAdapter struct{}

func NewConfWriterAdapter() ConfWriterAdapter {
	return ConfWriterAdapter{}
}

// WriteConf writes conf/bblayers.conf and conf/local.conf in the build
// dir. Settings use ?= so the headers can override them.
func (a ConfWriterAdapter) WriteConf(ws types.Workspace) error {
	confDir := filepath.Join(ws.BuildDir, "conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create conf directory").
			WithCause(err)
	}

	var layers []string
	for _, repo := range ws.Repos {
		layers = append(layers, repo.LayerPaths()...)
	}
	sort.Strings(layers)
	var bblayers strings.Builder
	writeHeader(&bblayers, ws.BblayersConfHeader)
	bblayers.WriteString("BBLAYERS ?= \" \\\n    ")
	bblayers.WriteString(strings.Join(layers, " \\\n    "))
	bblayers.WriteString("\"\n")
	if err := writeConfFile(filepath.Join(confDir, "bblayers.conf"), bblayers.String()); err != nil {
		return err
	}

	var local strings.Builder
	writeHeader(&local, ws.LocalConfHeader)
	fmt.Fprintf(&local, "MACHINE ?= \"%s\"\n", ws.Config.Machine)
	fmt.Fprintf(&local, "DISTRO ?= \"%s\"\n", ws.Config.Distro)
	return writeConfFile(filepath.Join(confDir, "local.conf"), local.String())
}

func writeHeader(builder *strings.Builder, header string) {
	if header == "" {
		return
	}
	builder.WriteString(header)
	if !strings.HasSuffix(header, "\n") {
		builder.WriteString("\n")
	}
}

func writeConfFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + filepath.Base(path)).
			WithCause(err)
	}
	return nil
}

var _ ports.ConfWriterPort = ConfWriterAdapter{}
