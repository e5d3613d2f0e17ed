package adapters

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/moby/go-archive"
	"github.com/moby/patternmatcher/ignorefile"

	"kas-container/internal/ports"
)

const dockerignoreFile = ".dockerignore"

type BuildContextAdapter struct{}

func NewBuildContextAdapter() BuildContextAdapter {
	return BuildContextAdapter{}
}

// Create tars dir honouring its .dockerignore and injects the generated
// Dockerfile as dockerfileName, replacing any file already at that path.
func (a BuildContextAdapter) Create(dir string, dockerfileName string, dockerfile []byte) (io.ReadCloser, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build context directory not found: " + dir).
			WithCause(err)
	}
	excludes, err := readDockerignore(dir)
	if err != nil {
		return nil, err
	}
	tarball, err := archive.TarWithOptions(dir, &archive.TarOptions{
		ExcludePatterns: excludes,
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create build context").
			WithCause(err)
	}
	content := append([]byte(nil), dockerfile...)
	return archive.ReplaceFileTarWrapper(tarball, map[string]archive.TarModifierFunc{
		dockerfileName: func(_ string, _ *tar.Header, _ io.Reader) (*tar.Header, []byte, error) {
			header := &tar.Header{
				Name:     dockerfileName,
				Typeflag: tar.TypeReg,
				Mode:     0o644,
				Size:     int64(len(content)),
				ModTime:  time.Unix(0, 0),
			}
			return header, content, nil
		},
	}), nil
}

// readDockerignore returns the exclude patterns of dir, or none when it
// has no .dockerignore.
func readDockerignore(dir string) ([]string, error) {
	file, err := os.Open(filepath.Join(dir, dockerignoreFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open .dockerignore").
			WithCause(err)
	}
	defer file.Close()
	patterns, err := ignorefile.ReadAll(file)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse .dockerignore").
			WithCause(err)
	}
	return patterns, nil
}

var _ ports.BuildContextPort = BuildContextAdapter{}
