package web_test

import (
	"bytes"
	"testing"

	"github.com/jt828/wolam/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages_Render(t *testing.T) {
	pages, err := web.NewPages()
	require.NoError(t, err)

	tests := []struct {
		page web.Page
		want string
	}{
		{web.PageIndex, "Log Analytics &amp; Monitoring"},
		{web.PageLog, `name="loggerlevel"`},
		{web.PageMonitor, `name="metriccount"`},
		{web.PageNotFound, "Page not found"},
		{web.PageError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(string(tt.page), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, pages.Render(&buf, tt.page, web.PageData{ApplicationName: "Local Log"}))
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "<title>Local Log</title>")
		})
	}
}

func TestPages_ActiveFlag(t *testing.T) {
	pages, err := web.NewPages()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pages.Render(&buf, web.PageLog, web.PageData{LogPage: "active"}))
	assert.Contains(t, buf.String(), `<a href="/log" class="active">`)
	assert.Contains(t, buf.String(), `<a href="/monitor" class="">`)
}
