package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-drift/reactbind/pkg/core"
)

func mustRun(t *testing.T, path string, opts ...core.Option) *Report {
	t.Helper()
	s, err := Load(path)
	require.NoError(t, err)
	prog, err := Compile(s)
	require.NoError(t, err)
	return prog.Run(t.Context(), opts...)
}

func TestRun_Counter(t *testing.T) {
	report := mustRun(t, "testdata/counter.yaml")

	require.True(t, report.Passed(), report.String())
	require.Equal(t, 13, report.Steps)
	require.Empty(t, report.Errors)
}

func TestRun_Form(t *testing.T) {
	report := mustRun(t, "testdata/form.yaml")

	require.True(t, report.Passed(), report.String())
	require.Len(t, report.Errors, 1)
	require.Equal(t, "Heading", report.Errors[0].Type)
	require.Equal(t, "Heading.did_update[0]", report.Errors[0].Callback)
	require.ErrorContains(t, report.Errors[0], "heading broke")
}

func TestRun_ReportsFailures(t *testing.T) {
	s, err := Parse([]byte(`
name: wrong
components:
  Label:
    render: 'sprintf("clicks: %v", props.n)'
steps:
  - mount: {id: l, type: Label, props: {n: 0}}
  - expect: {id: l, render: "clicks: 9", renders: 3, expr: 'props.n == 1'}
  - pump: {cycles: 4}
`))
	require.NoError(t, err)
	prog, err := Compile(s)
	require.NoError(t, err)

	report := prog.Run(t.Context())

	require.False(t, report.Passed())
	require.Len(t, report.Failures, 4)
	assert.Equal(t, "l: render mismatch", report.Failures[0].Message)
	assert.Contains(t, report.Failures[0].Diff, "-clicks: 9")
	assert.Contains(t, report.Failures[0].Diff, "+clicks: 0")
	assert.Equal(t, "l: renders = 1, want 3", report.Failures[1].Message)
	assert.Equal(t, "l: props.n == 1 is false", report.Failures[2].Message)
	assert.Equal(t, Failure{Step: 3, Action: "pump", Message: "cycles = 0, want 4"}, report.Failures[3])
	assert.Contains(t, report.String(), "4 failed")
}

func TestRun_Cancelled(t *testing.T) {
	s, err := Load("testdata/counter.yaml")
	require.NoError(t, err)
	prog, err := Compile(s)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report := prog.Run(ctx)

	require.Zero(t, report.Steps)
	require.Len(t, report.Failures, 1)
	require.Contains(t, report.Failures[0].Message, "cancelled")
}

func TestRun_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	report := mustRun(t, "testdata/counter.yaml", core.WithTracer(tp.Tracer(core.TracerName)))

	require.True(t, report.Passed(), report.String())
	names := make(map[string]int)
	for _, span := range sr.Ended() {
		names[span.Name()]++
	}
	require.Equal(t, 3, names["lifecycle.render"])
	require.Equal(t, 1, names["lifecycle.will_unmount"])
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	_, err := Load("testdata/unsupported.yaml")
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorContains(t, err, "unsupported version v2.0.0")
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing name",
			src:  "components: {A: {render: '1'}}",
			want: "name is required",
		},
		{
			name: "no components",
			src:  "name: x",
			want: "at least one component",
		},
		{
			name: "missing render",
			src:  "name: x\ncomponents: {A: {}}",
			want: "render is required",
		},
		{
			name: "bad version",
			src:  "version: one\nname: x\ncomponents: {A: {render: '1'}}",
			want: "not a semantic version",
		},
		{
			name: "unknown phase",
			src:  "name: x\ncomponents: {A: {render: '1', callbacks: {render: ['1']}}}",
			want: `unknown callback phase "render"`,
		},
		{
			name: "unknown type",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{mount: {id: a, type: B}}]",
			want: `unknown type "B"`,
		},
		{
			name: "duplicate id",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{mount: {id: a, type: A}}, {mount: {id: a, type: A}}]",
			want: `duplicate id "a"`,
		},
		{
			name: "unknown ref",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{set: {id: a, name: n, value: 1}}]",
			want: `unknown component "a"`,
		},
		{
			name: "two actions",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{pump: {}, advance: 1s}]",
			want: "want exactly one action, got 2",
		},
		{
			name: "bad duration",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{advance: soon}]",
			want: "step 1 (advance)",
		},
		{
			name: "assertion without id",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{expect: {renders: 1}}]",
			want: "component assertions need an id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.ErrorIs(t, err, ErrInvalid)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParse_DefaultVersion(t *testing.T) {
	s, err := Parse([]byte("name: x\ncomponents: {A: {render: '1'}}"))
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, s.Version)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "render",
			src:  "name: x\ncomponents: {A: {render: 'get(('}}",
			want: "component A: render",
		},
		{
			name: "callback",
			src:  "name: x\ncomponents: {A: {render: '1', callbacks: {did_mount: ['1', 'set(']}}}",
			want: "component A: did_mount[1]",
		},
		{
			name: "needs_update must be boolean",
			src:  "name: x\ncomponents: {A: {render: '1', needs_update: '\"yes\"'}}",
			want: "component A: needs_update",
		},
		{
			name: "expect",
			src:  "name: x\ncomponents: {A: {render: '1'}}\nsteps: [{mount: {id: a, type: A}}, {expect: {id: a, expr: 'nope('}}]",
			want: "step 2: expect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = Compile(s)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestStep_Action(t *testing.T) {
	require.Equal(t, "pump", Step{Pump: &PumpStep{}}.Action())
	require.Equal(t, "advance", Step{Advance: "1s"}.Action())
	require.Empty(t, Step{}.Action())
	require.Empty(t, Step{Pump: &PumpStep{}, Expect: &ExpectStep{}}.Action())
}
