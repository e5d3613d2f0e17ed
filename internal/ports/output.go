package ports

import "kas-container/internal/types"

type OutputPort interface {
	WriteDockerfile(content string) (string, error)
	WriteImageIntent(intent types.ImageIntent) error
	RemoveImageIntent() error
	WritePublishReport(plan types.PublishPlan, pushed []types.PushedRef) error
}
