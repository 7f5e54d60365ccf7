package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundErrorMessage(t *testing.T) {
	err := &NotFoundError{Resource: "service:checkout-api"}
	assert.Equal(t, "service: not found: service:checkout-api", err.Error())
}

func TestErrChecksumMismatchMessage(t *testing.T) {
	err := &ErrChecksumMismatch{Expected: "sha256:aaaa", Actual: "sha256:bbbb"}
	assert.Equal(t, "service: checksum mismatch: expected sha256:aaaa, got sha256:bbbb", err.Error())
}
