package lifecycle

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpdzap/berth/internal/compose"
)

type fakeNames map[string]string

func (f fakeNames) ContainerName(_ context.Context, id string) (string, error) {
	if name, ok := f[id]; ok {
		return name, nil
	}
	return "", errors.New("no such container")
}

// stubPrompter fails the test if it is ever asked.
type stubPrompter struct{ t *testing.T }

func (s stubPrompter) Choose(context.Context, int) (int, error) {
	s.t.Fatal("prompter should not be used")
	return 0, nil
}

var names = fakeNames{"c1": "web-app-1", "c2": "web-worker-1", "c3": "web-cron-1"}

func TestShellNoContainers(t *testing.T) {
	h := newHarness(Options{Names: names, Prompter: stubPrompter{t}})
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("\n")}

	err := h.ctrl.Shell(context.Background(), svcs("web"))
	assert.ErrorIs(t, err, ErrNoContainers)
	assert.Empty(t, h.exec.interactive)
	assert.Contains(t, h.out.String(), "No containers running")
}

func TestShellSingleContainerSkipsPrompt(t *testing.T) {
	h := newHarness(Options{Names: names, Prompter: stubPrompter{t}})
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("c1\n")}

	require.NoError(t, h.ctrl.Shell(context.Background(), svcs("web")))
	assert.Equal(t, [][]string{{"docker", "exec", "-it", "c1", "sh"}}, h.exec.interactive)
	assert.Contains(t, h.out.String(), "Entering container web-app-1")
}

func TestShellMenuRejectsInvalidInput(t *testing.T) {
	in := "abc\n4\n-1\n\n2\n"
	h := newHarness(Options{Names: names})
	h.ctrl.prompt = NewLinePrompter(strings.NewReader(in), h.out)
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("c1\nc2\nc3\n")}

	require.NoError(t, h.ctrl.Shell(context.Background(), svcs("web")))

	out := h.out.String()
	assert.Contains(t, out, "0 : Exit\n1 : web-app-1\n2 : web-worker-1\n3 : web-cron-1\n")
	assert.Contains(t, out, "abc is not an integer")
	assert.Contains(t, out, "4 is greater than the maximum number (3)")
	assert.Contains(t, out, "-1 is not an integer")
	assert.Equal(t, [][]string{{"docker", "exec", "-it", "c2", "sh"}}, h.exec.interactive)
}

// A standalone compose tool cannot exec by container ID, so the shell goes
// through the configured runtime whatever the compose command is.
func TestShellUsesRuntimeCommand(t *testing.T) {
	cfg := testConfig()
	cfg.ComposeCommand = []string{"podman-compose"}
	cfg.RuntimeCommand = "podman"
	cfg.Shell = "bash"

	h := newHarness(Options{Names: names, Prompter: stubPrompter{t}})
	h.ctrl = New(h.exec, cfg, Options{Out: h.out, Log: log.New(h.logs), Names: names, Prompter: stubPrompter{t}})
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("c1\n")}

	require.NoError(t, h.ctrl.Shell(context.Background(), svcs("web")))
	assert.Equal(t, [][]string{{"podman", "exec", "-it", "c1", "bash"}}, h.exec.interactive)
}

func TestShellMenuZeroExits(t *testing.T) {
	h := newHarness(Options{Names: names})
	h.ctrl.prompt = NewLinePrompter(strings.NewReader("9\n0\n"), h.out)
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("c1\nc2\n")}

	err := h.ctrl.Shell(context.Background(), svcs("web"))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, h.exec.interactive)
	assert.Contains(t, h.out.String(), "Exiting")
}

func TestShellMenuEOFCancels(t *testing.T) {
	h := newHarness(Options{Names: names})
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte("c1\nc2\n")}

	err := h.ctrl.Shell(context.Background(), svcs("web"))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, h.exec.interactive)
}

func TestShellFallsBackToShortID(t *testing.T) {
	h := newHarness(Options{Prompter: stubPrompter{t}})
	long := "0123456789abcdef0123"
	h.exec.results["web ps -q"] = compose.Result{Stdout: []byte(long + "\n")}

	require.NoError(t, h.ctrl.Shell(context.Background(), svcs("web")))
	assert.Contains(t, h.out.String(), "Entering container 0123456789ab")
	assert.Equal(t, long, h.exec.interactive[0][3])
}

func TestShellErrors(t *testing.T) {
	h := newHarness(Options{Prompter: stubPrompter{t}})
	assert.ErrorIs(t, h.ctrl.Shell(context.Background(), svcs("a", "b")), ErrSingleService)
	assert.Empty(t, h.exec.calls)

	h.exec.results["a ps -q"] = compose.Result{ExitCode: 1}
	var exitErr *compose.ExitError
	assert.ErrorAs(t, h.ctrl.Shell(context.Background(), svcs("a")), &exitErr)
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr string
	}{
		{"0", 0, ""},
		{" 3 ", 3, ""},
		{"4", 0, "4 is greater than the maximum number (3)"},
		{"99999999999999999999", 0, "greater than the maximum number"},
		{"x", 0, "x is not an integer"},
		{"+1", 0, "+1 is not an integer"},
		{"1.5", 0, "1.5 is not an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseChoice(tt.input, 3)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinePrompterCancelledContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := NewLinePrompter(r, &strings.Builder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Choose(ctx, 2)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestLinePrompterLeavesRemainingInput(t *testing.T) {
	in := strings.NewReader("7\n2\nnext command\n")
	var out strings.Builder
	p := NewLinePrompter(in, &out)

	n, err := p.Choose(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rest, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "next command\n", string(rest))
}

func TestLinePrompterPartialLastLine(t *testing.T) {
	p := NewLinePrompter(strings.NewReader("1"), &strings.Builder{})
	n, err := p.Choose(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = p.Choose(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCancelled)
}
