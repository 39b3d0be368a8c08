package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("GetImage", "image 3 not found")
	wrapped := fmt.Errorf("loading: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestRemote_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Remote("SaveImage", cause)

	assert.True(t, IsRemote(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", Message(err))
	assert.Equal(t, "SaveImage: remote call failed: connection refused", err.Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "folder name is required", Message(Validation("CreateFolder", "folder name is required")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
