package format

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/quickpython/internal/config"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestFormatPipesToolsInOrder(t *testing.T) {
	requireTool(t, "tr")
	requireTool(t, "sed")
	f := NewWithTools(
		Tool{Name: "upper", Command: "tr", Args: []string{"a-z", "A-Z"}},
		Tool{Name: "exclaim", Command: "sed", Args: []string{"s/$/!/"}},
	)
	res, err := f.Format(context.Background(), "print(x)\n")
	require.NoError(t, err)
	assert.Equal(t, "PRINT(X)!\n", res.Text)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"upper", "exclaim"}, res.Applied)
	assert.Empty(t, res.Skipped)
}

func TestFormatSkipsMissingTools(t *testing.T) {
	requireTool(t, "cat")
	f := NewWithTools(
		Tool{Name: "ghost", Command: "quickpython-no-such-formatter"},
		Tool{Name: "cat", Command: "cat"},
	)
	res, err := f.Format(context.Background(), "x = 1\n")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, []string{"ghost"}, res.Skipped)
}

func TestFormatAllMissing(t *testing.T) {
	f := NewWithTools(Tool{Name: "ghost", Command: "quickpython-no-such-formatter"})
	res, err := f.Format(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolMissing))
	assert.Equal(t, "x", res.Text)

	_, err = New(config.FormatConfig{}).Format(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrToolMissing))
}

func TestFormatReportsToolFailure(t *testing.T) {
	requireTool(t, "sh")
	f := NewWithTools(Tool{Name: "broken", Command: "sh", Args: []string{"-c", "echo 'cannot parse: 1:4' >&2; exit 123"}})
	_, err := f.Format(context.Background(), "def (")
	require.Error(t, err)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "broken", toolErr.Tool)
	assert.True(t, strings.Contains(err.Error(), "cannot parse"))
}

func TestAvailable(t *testing.T) {
	f := New(config.FormatConfig{Tools: []config.FormatTool{
		{Name: "ghost", Command: "quickpython-no-such-formatter"},
		{Name: "real", Command: "real"},
	}})
	f.lookPath = func(name string) (string, error) {
		if name == "real" {
			return "/usr/bin/real", nil
		}
		return "", exec.ErrNotFound
	}
	found, err := f.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ghost": false, "real": true}, found)
}
