package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

type fakeApp struct {
	result   watcher.Result
	checkErr error
	served   bool
	closed   bool
}

func (f *fakeApp) Serve(context.Context) error {
	f.served = true
	f.closed = true
	return nil
}

func (f *fakeApp) Check(context.Context) (watcher.Result, error) {
	return f.result, f.checkErr
}

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

// withFakeApp swaps the app factory; tests using it must not run in parallel.
func withFakeApp(t *testing.T, app *fakeApp, gotPath *string) {
	t.Helper()
	orig := newApp
	newApp = func(_ context.Context, cfgPath string) (App, error) {
		if gotPath != nil {
			*gotPath = cfgPath
		}
		return app, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand_Success(t *testing.T) {
	app := &fakeApp{result: watcher.Result{Outcome: watcher.OutcomeChanged, Latest: "2024", Date: "2024-06-02"}}
	var cfgPath string
	withFakeApp(t, app, &cfgPath)

	out, err := run(t, "check", "--config", "/etc/mapwatch.yaml")
	require.NoError(t, err)
	require.Equal(t, "/etc/mapwatch.yaml", cfgPath)
	require.Contains(t, out, "changed: 2024 (date 2024-06-02)")
	require.True(t, app.closed)
}

func TestCheckCommand_FailureReturnsError(t *testing.T) {
	app := &fakeApp{checkErr: &watcher.FetchError{URL: "https://example.com", StatusCode: 500}}
	withFakeApp(t, app, nil)

	out, err := run(t, "check")
	var fetchErr *watcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, out, "check failed")
	require.True(t, app.closed)
}

func TestServeCommand(t *testing.T) {
	app := &fakeApp{}
	withFakeApp(t, app, nil)

	_, err := run(t, "serve")
	require.NoError(t, err)
	require.True(t, app.served)
}

func TestRootCommand_InitFailure(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, string) (App, error) { return nil, errors.New("source.url must be set") }
	t.Cleanup(func() { newApp = orig })

	_, err := run(t, "check")
	require.ErrorContains(t, err, "source.url must be set")
}

func TestResolveApp_Missing(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
