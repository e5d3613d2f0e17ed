package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

var pythonVersionPattern = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)

// VersionSourceAdapter reads the packaged tool's version either from its
// Python metadata file or by running a command in the built image.
type VersionSourceAdapter struct {
	Images ports.ImageBuilderPort
	// BaseDir resolves relative metadata file paths.
	BaseDir string
}

func NewVersionSourceAdapter(images ports.ImageBuilderPort, baseDir string) VersionSourceAdapter {
	return VersionSourceAdapter{Images: images, BaseDir: baseDir}
}

func (a VersionSourceAdapter) ReadVersion(ctx context.Context, source types.VersionSource, image string) (string, error) {
	switch source.Kind {
	case types.VersionSourceFile:
		return a.readFile(source.File)
	case types.VersionSourceImage:
		return a.readImage(ctx, source.Command, image)
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("publish.version is not configured")
	}
}

func (a VersionSourceAdapter) readFile(path string) (string, error) {
	if !filepath.IsAbs(path) && a.BaseDir != "" {
		path = filepath.Join(a.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("version file not found: " + path).
			WithCause(err)
	}
	match := pythonVersionPattern.FindSubmatch(data)
	if match == nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no __version__ assignment in " + path)
	}
	return strings.TrimSpace(string(match[1])), nil
}

func (a VersionSourceAdapter) readImage(ctx context.Context, command []string, image string) (string, error) {
	if a.Images == nil || image == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("reading the version from the image needs a built image")
	}
	result, err := a.Images.Run(ctx, image, command)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("version command exited with %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)))
	}
	version := lastLine(result.Stdout)
	if version == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("version command printed nothing")
	}
	log.Ctx(ctx).Debug().Str("version", version).Msg("version read from image")
	return version, nil
}

// lastLine returns the last non-empty line, so tools that print a banner
// before the version still work. "kas 4.3" yields "4.3".
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	line := strings.TrimSpace(lines[len(lines)-1])
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

var _ ports.VersionSourcePort = VersionSourceAdapter{}
