package types

import "time"

// CIContext carries what the CI runner tells us about the current run.
type CIContext struct {
	Branch   string
	ExactTag bool
	Tag      string
	Username string
	Password string
}

func (c CIContext) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

type PublishPlan struct {
	Publish bool
	Reason  string
	Refs    []string
}

// ImageIntent is written by assemble and read back by publish so the two
// can run as separate CI steps.
type ImageIntent struct {
	Repository string
	ImageID    string
	LocalRef   string
	Version    string
	CreatedAt  time.Time
}

type PushedRef struct {
	Ref    string
	Digest string
}
