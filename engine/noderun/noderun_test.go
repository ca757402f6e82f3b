package noderun

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/diagflow/engine/execctx"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/resolve"
)

type fakeNode struct {
	validateErr error
	execErr     error
	panicValue  interface{}
	data        interface{}
}

func (f *fakeNode) Validate(cfg map[string]interface{}) error { return f.validateErr }

func (f *fakeNode) Execute(ctx context.Context, ec *execctx.ExecutionContext, n *model.Node, in map[string]interface{}) (*model.NodeExecutionResult, error) {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &model.NodeExecutionResult{NodeID: n.ID, Data: f.data}, nil
}

func TestRunSuccess(t *testing.T) {
	n, _ := model.NewNode("n1", "n1", model.KindScript)
	ec := execctx.New("e1", "wf1")
	impl := &fakeNode{data: "ok"}

	res := Run(context.Background(), ec, n, impl, nil, resolve.Metadata{})
	assert.True(t, res.Success)
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "ok", res.Data)
}

func TestRunValidateFailure(t *testing.T) {
	n, _ := model.NewNode("n1", "n1", model.KindScript)
	ec := execctx.New("e1", "wf1")
	impl := &fakeNode{validateErr: errors.New("bad config")}

	res := Run(context.Background(), ec, n, impl, nil, resolve.Metadata{})
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrConfigError, res.ErrorKind)
}

func TestRunExecuteFailure(t *testing.T) {
	n, _ := model.NewNode("n1", "n1", model.KindScript)
	ec := execctx.New("e1", "wf1")
	impl := &fakeNode{execErr: errors.New("boom")}

	res := Run(context.Background(), ec, n, impl, nil, resolve.Metadata{})
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrNodeFailure, res.ErrorKind)
	assert.Equal(t, model.StatusFailed, res.Status)
}

func TestRunPanicRecovered(t *testing.T) {
	n, _ := model.NewNode("n1", "n1", model.KindScript)
	ec := execctx.New("e1", "wf1")
	impl := &fakeNode{panicValue: fmt.Errorf("kaboom")}

	res := Run(context.Background(), ec, n, impl, nil, resolve.Metadata{})
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrNodeFailure, res.ErrorKind)
}

func TestRunTimeout(t *testing.T) {
	n, _ := model.NewNode("n1", "n1", model.KindScript)
	ec := execctx.New("e1", "wf1")

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	impl := &fakeNode{execErr: context.DeadlineExceeded}
	res := Run(ctx, ec, n, impl, nil, resolve.Metadata{})
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrTimeout, res.ErrorKind)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	impl := &fakeNode{}
	r.Register(model.KindScript, impl)

	got, ok := r.Lookup(model.KindScript)
	assert.True(t, ok)
	assert.Same(t, impl, got)

	_, ok = r.Lookup(model.KindPlugin)
	assert.False(t, ok)
}
