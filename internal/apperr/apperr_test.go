package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedChain(t *testing.T) {
	base := Generation(errors.New("connection refused"), "could not generate an answer")
	err := fmt.Errorf("chat: %w", base)

	assert.Equal(t, KindGeneration, KindOf(err))
	assert.True(t, Is(err, KindGeneration))
	assert.Equal(t, "could not generate an answer", PublicMessage(err))
	assert.Equal(t, http.StatusBadGateway, Status(err))
}

func TestEventKind_Timeout(t *testing.T) {
	err := Generation(fmt.Errorf("ollama chat: %w", context.DeadlineExceeded), "timed out")

	assert.Equal(t, KindTimeout, EventKind(err))
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, Status(err))
}

func TestPlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, http.StatusInternalServerError, Status(err))
}

func TestStatus_ClientKinds(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Validation("question required")))
	assert.Equal(t, http.StatusBadRequest, Status(Ingestion(nil, "no text")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("no such file")))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "ValidationError: question required", Validation("question required").Error())
	assert.Equal(t, "IngestionError: bad pdf: eof", Ingestion(errors.New("eof"), "bad pdf").Error())
}
