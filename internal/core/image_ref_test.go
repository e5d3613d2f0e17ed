package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRepository(t *testing.T) {
	got, err := NormalizeRepository("docker.io/kasproject/kas")
	require.NoError(t, err)
	assert.Equal(t, "kasproject/kas", got)

	got, err = NormalizeRepository("ghcr.io/siemens/kas")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/siemens/kas", got)

	_, err = NormalizeRepository("kasproject/kas:latest")
	require.Error(t, err)

	_, err = NormalizeRepository("Kasproject/Kas")
	require.Error(t, err)

	_, err = NormalizeRepository("  ")
	require.Error(t, err)
}

func TestComposeRef(t *testing.T) {
	got, err := ComposeRef("kasproject/kas", "latest")
	require.NoError(t, err)
	assert.Equal(t, "kasproject/kas:latest", got)

	got, err = ComposeRef("localhost:5000/kas", "0.9.0")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000/kas:0.9.0", got)

	_, err = ComposeRef("kasproject/kas", "bad tag!")
	require.Error(t, err)
}

func TestRegistryServer(t *testing.T) {
	got, err := RegistryServer("kasproject/kas")
	require.NoError(t, err)
	assert.Equal(t, DockerHubAuthServer, got)

	got, err = RegistryServer("localhost:5000/kas")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", got)
}

func TestValidateImageRef(t *testing.T) {
	require.NoError(t, ValidateImageRef("debian:bookworm-slim"))
	require.NoError(t, ValidateImageRef("debian@sha256:"+sha256Hex))
	require.Error(t, ValidateImageRef("Debian::"))
}

const sha256Hex = "4ab1b2d3c4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f"
