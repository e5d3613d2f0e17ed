package adapters

import (
	"bytes"
	"embed"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	dockerfileTemplateOnce sync.Once
	dockerfileTemplate     *template.Template
	dockerfileTemplateErr  error
)

type DockerfileRendererAdapter struct{}

func NewDockerfileRendererAdapter() DockerfileRendererAdapter {
	return DockerfileRendererAdapter{}
}

func (a DockerfileRendererAdapter) Render(plan types.DockerfilePlan) (string, error) {
	dockerfileTemplateOnce.Do(func() {
		dockerfileTemplate, dockerfileTemplateErr = template.New("dockerfile.tmpl").
			Funcs(sprig.TxtFuncMap()).
			ParseFS(templateFS, "templates/dockerfile.tmpl")
	})
	if dockerfileTemplateErr != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse dockerfile template").
			WithCause(dockerfileTemplateErr)
	}
	var buf bytes.Buffer
	if err := dockerfileTemplate.Execute(&buf, plan); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to render dockerfile").
			WithCause(err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
