package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/cmd/forge/commands"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/build"
	"go.trai.ch/forge/internal/core/domain"
)

type mockApp struct {
	json bool

	installFunc       func(ctx context.Context, opts app.InstallOptions) error
	installLockedFunc func(ctx context.Context, opts app.Options) error
	removeFunc        func(ctx context.Context, opts app.RemoveOptions) error
	listFunc          func(ctx context.Context, w io.Writer, opts app.ListOptions) error
	updateFunc        func(ctx context.Context, opts app.UpdateOptions) error
}

func (m *mockApp) SetJSON(enable bool) {
	m.json = enable
}

func (m *mockApp) Install(ctx context.Context, opts app.InstallOptions) error {
	if m.installFunc != nil {
		return m.installFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) InstallLocked(ctx context.Context, opts app.Options) error {
	if m.installLockedFunc != nil {
		return m.installLockedFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Remove(ctx context.Context, opts app.RemoveOptions) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) List(ctx context.Context, w io.Writer, opts app.ListOptions) error {
	if m.listFunc != nil {
		return m.listFunc(ctx, w, opts)
	}
	return nil
}

func (m *mockApp) Update(ctx context.Context, opts app.UpdateOptions) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, opts)
	}
	return nil
}

func execute(t *testing.T, m *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(m)
	cli.SetArgs(args)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Install(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.InstallOptions
		mock := &mockApp{
			installFunc: func(_ context.Context, opts app.InstallOptions) error {
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "install", "zlib@1.3.1", "--locked", "-c", "custom.yaml", "--json")
		require.NoError(t, err)
		assert.Equal(t, "zlib@1.3.1", captured.Package)
		assert.True(t, captured.Locked)
		assert.Equal(t, "custom.yaml", captured.ConfigPath)
		assert.True(t, mock.json)
	})

	t.Run("defaults", func(t *testing.T) {
		var captured app.InstallOptions
		mock := &mockApp{
			installFunc: func(_ context.Context, opts app.InstallOptions) error {
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "install", "zlib@1.3.1")
		require.NoError(t, err)
		assert.False(t, captured.Locked)
		assert.Equal(t, domain.ConfigFileName, captured.ConfigPath)
		assert.False(t, mock.json)
	})

	t.Run("no argument installs the lock file", func(t *testing.T) {
		called := false
		mock := &mockApp{
			installFunc: func(context.Context, app.InstallOptions) error {
				panic("should not be called")
			},
			installLockedFunc: func(_ context.Context, opts app.Options) error {
				called = true
				assert.Equal(t, domain.ConfigFileName, opts.ConfigPath)
				return nil
			},
		}

		_, err := execute(t, mock, "install")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("returns error on install failure", func(t *testing.T) {
		mock := &mockApp{
			installFunc: func(context.Context, app.InstallOptions) error {
				return errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "install", "zlib@1.3.1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("rejects extra arguments", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "install", "a@1", "b@1")
		require.Error(t, err)
	})
}

func TestCommands_Remove(t *testing.T) {
	t.Run("passes the package", func(t *testing.T) {
		var captured app.RemoveOptions
		mock := &mockApp{
			removeFunc: func(_ context.Context, opts app.RemoveOptions) error {
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "rm", "zlib@1.3.1")
		require.NoError(t, err)
		assert.Equal(t, "zlib@1.3.1", captured.Package)
	})

	t.Run("requires exactly one argument", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "remove")
		require.Error(t, err)
	})
}

func TestCommands_List(t *testing.T) {
	var captured app.ListOptions
	mock := &mockApp{
		listFunc: func(_ context.Context, w io.Writer, opts app.ListOptions) error {
			captured = opts
			_, err := fmt.Fprintln(w, "  • zlib@1.3.1")
			return err
		},
	}

	out, err := execute(t, mock, "list", "--fingerprint")
	require.NoError(t, err)
	assert.True(t, captured.Fingerprint)
	assert.Equal(t, "  • zlib@1.3.1\n", out)
}

func TestCommands_Update(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"all", []string{"update"}, ""},
		{"one", []string{"update", "zlib@1.3.1"}, "zlib@1.3.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured app.UpdateOptions
			mock := &mockApp{
				updateFunc: func(_ context.Context, opts app.UpdateOptions) error {
					captured = opts
					return nil
				},
			}

			_, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured.Package)
		})
	}
}

func TestCommands_Version(t *testing.T) {
	want := fmt.Sprintf("forge version %s (commit: %s, date: %s)\n", build.Version, build.Commit, build.Date)

	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Equal(t, want, out)
}
