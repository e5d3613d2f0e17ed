package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

const (
	DockerfileName       = "Dockerfile"
	ImageIntentName      = "image.intent"
	PublishReportName    = "publish.report"
	generatedFileComment = "# generated by kas-container\n"
)

type OutputFileAdapter struct {
	Dir string
}

func NewOutputFileAdapter(dir string) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir}
}

// WriteDockerfile stores the rendered Dockerfile for inspection and
// returns its path.
func (a OutputFileAdapter) WriteDockerfile(content string) (string, error) {
	path, err := a.ensurePath(DockerfileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write Dockerfile").
			WithCause(err)
	}
	return path, nil
}

func (a OutputFileAdapter) WriteImageIntent(intent types.ImageIntent) error {
	path, err := a.ensurePath(ImageIntentName)
	if err != nil {
		return err
	}
	content := fmt.Sprintf(
		"repository=%s\nimage_id=%s\nlocal_ref=%s\nversion=%s\ncreated_at=%s\n",
		intent.Repository,
		intent.ImageID,
		intent.LocalRef,
		intent.Version,
		intent.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write image intent").
			WithCause(err)
	}
	return nil
}

// RemoveImageIntent drops a previous run's intent so a failed assemble
// cannot leave a stale image behind for publish.
func (a OutputFileAdapter) RemoveImageIntent() error {
	if a.Dir == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	err := os.Remove(filepath.Join(a.Dir, ImageIntentName))
	if err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove image intent").
			WithCause(err)
	}
	return nil
}

// WritePublishReport records the plan and what was pushed, one ref per
// line as ref,digest.
func (a OutputFileAdapter) WritePublishReport(plan types.PublishPlan, pushed []types.PushedRef) error {
	path, err := a.ensurePath(PublishReportName)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(generatedFileComment)
	fmt.Fprintf(&b, "publish=%t\nreason=%s\n", plan.Publish, plan.Reason)
	for _, ref := range pushed {
		fmt.Fprintf(&b, "%s,%s\n", ref.Ref, ref.Digest)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write publish report").
			WithCause(err)
	}
	return nil
}

func (a OutputFileAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

var _ ports.OutputPort = OutputFileAdapter{}
