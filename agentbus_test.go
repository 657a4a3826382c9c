package agentbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/agent"
	"github.com/hupe1980/agentbus/bus"
	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/selector"
)

func reviewAgents() []core.Agent {
	author := agent.New("author").React(
		selector.MustCompile(`{role: "author", task: =task}`),
		func(act *core.Activation) error {
			act.Emit("draft.ready", map[string]any{
				"role": "critic",
				"task": act.StringBinding("task"),
				"text": "first draft",
			})
			return nil
		},
	)
	critic := agent.New("critic").React(
		selector.MustCompile(`{role: "critic", task: =task}`),
		func(act *core.Activation) error {
			act.Emit("workflow.done", map[string]any{"verdict": "approve"})
			return nil
		},
	)
	return []core.Agent{author, critic}
}

func TestAgentBus_EndToEnd(t *testing.T) {
	store := checkpoint.NewInMemoryStore()
	ab := New(func(o *Options) {
		o.TerminationKinds = []string{"workflow.done"}
		o.CheckpointStore = store
	})
	require.NoError(t, ab.Register(reviewAgents()...))

	ab.Emit("kickoff", map[string]any{"role": "author", "task": "write summary"})
	outcome, err := ab.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, bus.StatusTerminated, outcome.Status)
	require.NotNil(t, outcome.TerminatedBy)
	assert.Equal(t, "workflow.done", outcome.TerminatedBy.Kind)

	cp, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, outcome.Log[len(outcome.Log)-1].Seq, cp.Cursor)
}

func TestAgentBus_CaptureResume(t *testing.T) {
	ab := New()
	require.NoError(t, ab.Register(reviewAgents()...))

	ab.Emit("kickoff", map[string]any{"role": "author", "task": "write summary"})
	_, err := ab.Run(context.Background())
	require.NoError(t, err)

	cp, err := ab.Capture()
	require.NoError(t, err)

	resumed, err := Resume(cp, reviewAgents())
	require.NoError(t, err)
	assert.Equal(t, len(ab.Log()), len(resumed.Log()))
}

func TestAgentBus_DuplicateRegistration(t *testing.T) {
	ab := New()
	require.NoError(t, ab.Register(agent.New("alpha")))
	assert.Error(t, ab.Register(agent.New("alpha")))
}
