package adapters

import (
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

type OutputReaderAdapter struct{}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadImageIntent(path string) (types.ImageIntent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.ImageIntent{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("image.intent not found").
			WithCause(err)
	}
	intent := types.ImageIntent{}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return types.ImageIntent{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid image.intent format")
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "repository":
			intent.Repository = value
		case "image_id":
			intent.ImageID = value
		case "local_ref":
			intent.LocalRef = value
		case "version":
			intent.Version = value
		case "created_at":
			if value == "" {
				continue
			}
			createdAt, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return types.ImageIntent{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("invalid created_at in image.intent").
					WithCause(err)
			}
			intent.CreatedAt = createdAt.UTC()
		}
	}
	if strings.TrimSpace(intent.ImageID) == "" {
		return types.ImageIntent{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("image.intent missing image_id")
	}
	if strings.TrimSpace(intent.Repository) == "" {
		return types.ImageIntent{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("image.intent missing repository")
	}
	return intent, nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}
