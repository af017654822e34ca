package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"order.placed.whatsapp.tmpl":      {Data: []byte("Order {{.ID}} is {{upper .Status}}\n")},
		"order.placed.email_subject.tmpl": {Data: []byte("{{title .Status}} order")},
		"README.md":                       {Data: []byte("ignored")},
	}

	r, err := NewRendererFS(zap.NewNop(), fsys)
	require.NoError(t, err)

	assert.True(t, r.Has("order.placed.whatsapp"))
	assert.False(t, r.Has("order.placed.email_body"))
	assert.ElementsMatch(t, []string{"order.placed.whatsapp", "order.placed.email_subject"}, r.Names())

	data := struct{ ID, Status string }{"ord-1", "pending"}

	text, err := r.Render("order.placed.whatsapp", data)
	require.NoError(t, err)
	assert.Equal(t, "Order ord-1 is PENDING", text)

	text, err = r.Render("order.placed.email_subject", data)
	require.NoError(t, err)
	assert.Equal(t, "Pending order", text)

	_, err = r.Render("order.placed.email_body", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = r.Render("order.placed.whatsapp", struct{ Name string }{"x"})
	require.Error(t, err)
}

func TestNewRenderer_NoTemplates(t *testing.T) {
	_, err := NewRendererFS(zap.NewNop(), fstest.MapFS{})
	require.Error(t, err)
}
