package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeUnknownEntity, "entity usitc not registered")
	assert.Equal(t, "[STRUCT_001] entity usitc not registered", err.Error())

	withDetail := err.WithDetail("deal_id=d2")
	assert.Equal(t, "[STRUCT_001] entity usitc not registered: deal_id=d2", withDetail.Error())
	// WithDetail clones: original untouched.
	assert.Empty(t, err.Detail)
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("connection refused")
	wrapped := Wrap(root, CodeCacheError, "failed to load memoized valuation")
	require.NotNil(t, wrapped)

	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, CodeCacheError, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, CodeCacheError))
	assert.False(t, IsCode(wrapped, CodeOptFailed))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "should vanish"))
}

func TestWrapUnknownKeepsInnerCode(t *testing.T) {
	inner := CyclicDependency("deal d1 depends on itself via d3")
	outer := Wrap(inner, CodeUnknown, "graph build failed")
	assert.Equal(t, CodeCyclicDependency, outer.Code)
}

func TestIsCodeDeepChain(t *testing.T) {
	inner := ProbabilityOutOfRange("probability 1.3 for component c7")
	mid := fmt.Errorf("validating component: %w", inner)
	outer := Wrap(mid, CodeEvalFailed, "evaluation aborted")

	assert.True(t, IsCode(outer, CodeProbabilityRange))
	assert.True(t, IsCode(outer, CodeEvalFailed))
	assert.True(t, IsStructural(outer))
}

func TestIsStructural(t *testing.T) {
	assert.True(t, IsStructural(UnknownEntity("x")))
	assert.True(t, IsStructural(MalformedHyperedge("one participant")))
	assert.False(t, IsStructural(New(CodeOptFailed, "no roadmap")))
	assert.False(t, IsStructural(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeInvalidParam, GetCode(InvalidParam("bad weight")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "STRUCT", ModuleForCode(CodeCyclicDependency))
	assert.Equal(t, "OPT", ModuleForCode(CodeOptIncomplete))
	assert.Equal(t, "CACHE", ModuleForCode(CodeCacheSerialization))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("nonsense")))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "cyclic deal dependency", DefaultMessageForCode(CodeCyclicDependency))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("ZZZ_999")))
}

func TestStackCaptured(t *testing.T) {
	err := New(CodeInternal, "boom")
	assert.Contains(t, err.Stack, "errors_test.go")
}
