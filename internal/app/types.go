package app

import "kas-container/internal/types"

type AssembleRequest struct {
	RecipePath string
	ContextDir string
	OutputDir  string
	Tag        string
	NoCache    bool
	Pull       bool
	Verify     bool
}

type AssembleResult struct {
	Recipe         types.ImageRecipe
	RecipePath     string
	ContextDir     string
	ImageID        string
	LocalRef       string
	Version        string
	Dockerfile     string
	DockerfilePath string
}

type PublishRequest struct {
	RecipePath string
	SourceDir  string
	OutputDir  string
	Branch     string
	Tag        string
	Username   string
	Password   string
	DryRun     bool
}

type PublishResult struct {
	Plan   types.PublishPlan
	Pushed []types.PushedRef
	CI     types.CIContext
}

type PipelineRequest struct {
	Assemble AssembleRequest
	Publish  PublishRequest
}

type PipelineResult struct {
	Assemble AssembleResult
	Publish  PublishResult
}

// Steps of a kas run that can be skipped by name.
const (
	StepReposFetch    = "repos_fetch"
	StepReposCheckout = "repos_checkout"
	StepSetupEnviron  = "setup_environ"
	StepWriteConf     = "write_conf"
)

type KasRequest struct {
	ConfigPath string
	Cwd        string
	Target     string
	Task       string
	Command    string
	Skip       []string
}

type KasResult struct {
	Workspace types.Workspace
	Env       map[string]string
	ExitCode  int
}
