package types

// Instruction is one line of a generated Dockerfile. Exec is used instead
// of Args for exec-form instructions such as ENTRYPOINT.
type Instruction struct {
	Keyword string
	Args    string
	Exec    []string
}

// DockerfilePlan is the ordered instruction list rendered into a
// Dockerfile.
type DockerfilePlan struct {
	Recipe       string
	Instructions []Instruction
}
