package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/core"
)

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "hello there")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserContent("hi")},
	})

	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "hello there", responses[0].Content.Text())
	assert.Equal(t, "stop", responses[0].FinishReason)
}

func TestMockModel_StreamingEmitsPartials(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "ok")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserContent("hi")},
		Stream:   true,
	})

	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 3) // two char chunks + final

	assert.True(t, responses[0].Partial)
	assert.True(t, responses[1].Partial)
	assert.False(t, responses[2].Partial)
	assert.Equal(t, "ok", responses[2].Content.Text())
}

func TestMockModel_NoContents(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := drain(t, respCh, errCh)
	assert.Error(t, err)
}
